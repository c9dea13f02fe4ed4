package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestManager(t *testing.T, opts ...ManagerOption) *Manager {
	t.Helper()
	opts = append([]ManagerOption{WithConfigPath(filepath.Join(t.TempDir(), configFileName))}, opts...)
	mgr, err := NewManager(opts...)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return mgr
}

func TestManagerCreatesFile(t *testing.T) {
	mgr := newTestManager(t)

	if _, err := os.Stat(mgr.Path()); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	cfg := mgr.Get()
	if cfg.LLMProvider != ProviderMistral || cfg.MarketDataProvider != MarketYahoo {
		t.Fatalf("expected defaults, got %q/%q", cfg.LLMProvider, cfg.MarketDataProvider)
	}
	if cfg.DataDir != filepath.Join(filepath.Dir(mgr.Path()), "data") {
		t.Fatalf("data dir should sit next to the config file, got %s", cfg.DataDir)
	}
}

func TestManagerUsesInitialConfig(t *testing.T) {
	seed := DefaultConfigWithRoot(t.TempDir())
	seed.MaxConcurrentFetches = 2
	mgr := newTestManager(t, WithInitialConfig(seed))

	if got := mgr.Get().MaxConcurrentFetches; got != 2 {
		t.Fatalf("expected seeded value 2, got %d", got)
	}
}

func TestManagerReloadsFileChanges(t *testing.T) {
	mgr := newTestManager(t)

	if err := os.WriteFile(mgr.Path(), []byte(`{"max_concurrent_fetches": 8, "request_timeout": "5s"}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	changed, err := mgr.Reload(nil)
	if err != nil || !changed {
		t.Fatalf("Reload: changed=%v err=%v", changed, err)
	}

	cfg := mgr.Get()
	if cfg.MaxConcurrentFetches != 8 {
		t.Fatalf("expected 8 concurrent fetches, got %d", cfg.MaxConcurrentFetches)
	}
	if cfg.RequestTimeout.Std() != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", cfg.RequestTimeout.Std())
	}
	if cfg.LLMProvider != ProviderMistral {
		t.Fatalf("keys missing from the file must keep their defaults, got provider %q", cfg.LLMProvider)
	}

	changed, err = mgr.Reload(nil)
	if err != nil || changed {
		t.Fatalf("unchanged file must not report a change: changed=%v err=%v", changed, err)
	}
}

func TestManagerKeepsConfigOnRejectedReload(t *testing.T) {
	mgr := newTestManager(t)

	if err := os.WriteFile(mgr.Path(), []byte(`{"market_data_provider": "bloomberg"}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := mgr.Reload(nil); err == nil {
		t.Fatalf("expected validation error")
	}
	if got := mgr.Get().MarketDataProvider; got != MarketYahoo {
		t.Fatalf("config must be unchanged after invalid file, got %q", got)
	}

	if err := os.WriteFile(mgr.Path(), []byte(`{"router_strict": true}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	refused := errors.New("engine build failed")
	_, err := mgr.Reload(func(Config) error { return refused })
	if !errors.Is(err, refused) {
		t.Fatalf("expected apply error, got %v", err)
	}
	if mgr.Get().RouterStrict {
		t.Fatalf("config must be unchanged when apply refuses it")
	}
}

func TestManagerDoesNotPersistCredentials(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "sk-test-secret")
	t.Setenv("LONGPORT_APP_SECRET", "lp-test-secret")

	seed := DefaultConfigWithRoot(t.TempDir())
	seed.LoadFromEnv()
	mgr := newTestManager(t, WithInitialConfig(seed))

	if mgr.Get().MistralAPIKey != "sk-test-secret" {
		t.Fatalf("expected key from environment")
	}
	if seed.MistralAPIKey != "sk-test-secret" {
		t.Fatalf("writing the file must not modify the caller's config")
	}

	data, err := os.ReadFile(mgr.Path())
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if len(data) == 0 || strings.Contains(string(data), "test-secret") {
		t.Fatalf("credential leaked into config file: %s", data)
	}
}

func TestManagerWatchReloads(t *testing.T) {
	mgr := newTestManager(t, WithDebounce(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Config, 1)
	if err := mgr.Watch(ctx, func(cfg Config) error {
		reloaded <- cfg
		return nil
	}); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	cfg := mgr.Get()
	cfg.RouterStrict = true
	if err := writeFile(mgr.Path(), cfg); err != nil {
		t.Fatalf("writeFile: %v", err)
	}

	select {
	case got := <-reloaded:
		if !got.RouterStrict {
			t.Fatalf("expected reloaded config to be strict")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not fire on config change")
	}

	deadline := time.Now().Add(time.Second)
	for !mgr.Get().RouterStrict {
		if time.Now().After(deadline) {
			t.Fatalf("accepted config not visible through Get")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
