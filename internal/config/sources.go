package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cryptonews/internal/pubdate"

	"gopkg.in/yaml.v3"
)

// ErrInvalidSource reports a sources file entry that cannot be used.
var ErrInvalidSource = errors.New("invalid source")

// SourceSpec is one entry of the sources file. Pointer fields are optional
// overrides; nil leaves the built-in value alone.
type SourceSpec struct {
	Name            string   `yaml:"name"`
	URL             string   `yaml:"url"`
	Enabled         *bool    `yaml:"enabled"`
	DateFormat      string   `yaml:"date_format"`
	HTMLDescription *bool    `yaml:"html_description"`
	SkipDescription *bool    `yaml:"skip_description"`
	FirstSentence   *bool    `yaml:"first_sentence"`
	Images          []string `yaml:"images"`
}

type sourcesFile struct {
	Sources []SourceSpec `yaml:"sources"`
}

// LoadSources reads the YAML sources file at path. An empty path yields no specs.
func LoadSources(path string) ([]SourceSpec, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	return ParseSources(data)
}

// ParseSources decodes and validates a sources document.
func ParseSources(data []byte) ([]SourceSpec, error) {
	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}
	seen := make(map[string]bool, len(f.Sources))
	for i, s := range f.Sources {
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		key := strings.ToLower(s.Name)
		if seen[key] {
			return nil, fmt.Errorf("sources[%d]: %w: duplicate name %q", i, ErrInvalidSource, s.Name)
		}
		seen[key] = true
	}
	return f.Sources, nil
}

func (s SourceSpec) validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSource)
	}
	switch pubdate.Family(s.DateFormat) {
	case "", pubdate.RFC822Numeric, pubdate.RFC822Named, pubdate.RFC3339, pubdate.Plain, pubdate.Auto:
	default:
		return fmt.Errorf("%w: %q has unknown date_format %q", ErrInvalidSource, s.Name, s.DateFormat)
	}
	if s.URL != "" && !strings.HasPrefix(s.URL, "http://") && !strings.HasPrefix(s.URL, "https://") {
		return fmt.Errorf("%w: %q url must be http(s)", ErrInvalidSource, s.Name)
	}
	return nil
}
