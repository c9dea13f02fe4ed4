package router

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed symbols.yaml
var embeddedSymbols []byte

// Symbols holds the lists that steer the ticker policy.
type Symbols struct {
	known       map[string]struct{}
	upperDeny   map[string]struct{}
	commonWords map[string]struct{}
}

type symbolsFile struct {
	KnownSymbols      []string `yaml:"known_symbols"`
	UppercaseDenylist []string `yaml:"uppercase_denylist"`
	CommonWords       []string `yaml:"common_words"`
}

var defaultSymbols = mustParseSymbols(embeddedSymbols)

// DefaultSymbols returns the lists compiled into the binary.
func DefaultSymbols() *Symbols {
	return defaultSymbols
}

// LoadSymbols reads the lists from a YAML file, or returns the embedded
// defaults when path is empty.
func LoadSymbols(path string) (*Symbols, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSymbols(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read symbols file: %w", err)
	}
	return ParseSymbols(data)
}

// ParseSymbols decodes the YAML symbol lists.
func ParseSymbols(data []byte) (*Symbols, error) {
	var f symbolsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse symbols: %w", err)
	}
	return &Symbols{
		known:       toSet(f.KnownSymbols, strings.ToUpper),
		upperDeny:   toSet(f.UppercaseDenylist, strings.ToUpper),
		commonWords: toSet(f.CommonWords, strings.ToLower),
	}, nil
}

func mustParseSymbols(data []byte) *Symbols {
	s, err := ParseSymbols(data)
	if err != nil {
		panic(err)
	}
	return s
}

func toSet(values []string, norm func(string) string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		set[norm(v)] = struct{}{}
	}
	return set
}

// Known reports whether sym is on the allow-list.
func (s *Symbols) Known(sym string) bool {
	_, ok := s.known[strings.ToUpper(sym)]
	return ok
}

// Denied reports whether an uppercase token is a common acronym.
func (s *Symbols) Denied(tok string) bool {
	_, ok := s.upperDeny[strings.ToUpper(tok)]
	return ok
}

// CommonWord reports whether a lowercase token is an everyday English word.
func (s *Symbols) CommonWord(tok string) bool {
	_, ok := s.commonWords[strings.ToLower(tok)]
	return ok
}

