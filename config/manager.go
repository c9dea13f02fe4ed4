package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const (
	configFileName  = "config.json"
	defaultDebounce = 300 * time.Millisecond
)

// ApplyFunc receives a freshly loaded config. Returning an error rejects it
// and the manager keeps serving the previous value.
type ApplyFunc func(Config) error

// Manager owns the JSON config file. Every load starts from the defaults,
// overlays the file and then the environment. Credentials only ever come
// from the environment.
type Manager struct {
	path     string
	debounce time.Duration
	seed     *Config

	mu      sync.RWMutex
	current Config

	// serializes Reload
	reloadMu sync.Mutex
}

type ManagerOption func(*Manager)

// WithConfigPath points the manager at a specific file.
func WithConfigPath(path string) ManagerOption {
	return func(m *Manager) {
		if path != "" {
			m.path = path
		}
	}
}

// WithInitialConfig is written to disk when the file does not exist yet.
func WithInitialConfig(cfg *Config) ManagerOption {
	return func(m *Manager) {
		m.seed = cfg
	}
}

// WithDebounce sets how long Watch waits for a burst of file events to settle.
func WithDebounce(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.debounce = d
		}
	}
}

// NewManager loads the config file, creating it first when missing.
func NewManager(opts ...ManagerOption) (*Manager, error) {
	m := &Manager{debounce: defaultDebounce}
	for _, opt := range opts {
		opt(m)
	}
	if m.path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("locate config dir: %w", err)
		}
		m.path = filepath.Join(dir, "StockAgent", configFileName)
	}

	if err := m.ensureFile(); err != nil {
		return nil, err
	}
	cfg, err := m.load()
	if err != nil {
		return nil, err
	}
	m.current = cfg
	return m, nil
}

// Get returns the config currently in effect.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *Manager) Path() string {
	return m.path
}

// Reload reads the file again. It reports whether a changed config was
// accepted; a config that fails validation or apply leaves Get unchanged.
func (m *Manager) Reload(apply ApplyFunc) (bool, error) {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	next, err := m.load()
	if err != nil {
		return false, err
	}
	if reflect.DeepEqual(m.Get(), next) {
		return false, nil
	}
	if apply != nil {
		if err := apply(next); err != nil {
			return false, err
		}
	}

	m.mu.Lock()
	m.current = next
	m.mu.Unlock()
	return true, nil
}

// Watch reloads the config whenever the file changes until ctx is done.
func (m *Manager) Watch(ctx context.Context, apply ApplyFunc) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	// editors replace the file, so watch the directory rather than the inode
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(m.path), err)
	}

	go m.watchLoop(ctx, watcher, apply)
	return nil
}

func (m *Manager) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, apply ApplyFunc) {
	defer watcher.Close()

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) == filepath.Clean(m.path) &&
				evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				settle = time.After(m.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("config watcher error")
		case <-settle:
			settle = nil
			changed, err := m.Reload(apply)
			switch {
			case err != nil:
				log.Warn().Err(err).Str("path", m.path).Msg("config change rejected, keeping previous config")
			case changed:
				log.Info().Str("path", m.path).Msg("config reloaded")
			}
		}
	}
}

func (m *Manager) load() (Config, error) {
	cfg := *DefaultConfigWithRoot(filepath.Dir(m.path))
	data, err := os.ReadFile(m.path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", m.path, err)
	}
	cfg.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", m.path, err)
	}
	return cfg, nil
}

func (m *Manager) ensureFile() error {
	if _, err := os.Stat(m.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	seed := DefaultConfigWithRoot(filepath.Dir(m.path))
	if m.seed != nil {
		seed = m.seed
	}
	return writeFile(m.path, *seed)
}

// writeFile stores cfg without credentials, replacing path atomically.
func writeFile(path string, cfg Config) error {
	cfg.clearCredentials()
	data, err := json.MarshalIndent(&cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
