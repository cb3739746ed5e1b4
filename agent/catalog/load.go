package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

const (
	SourceEmbedded = "embedded"
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

type Config struct {
	Source  string        `split_words:"true" default:"embedded"`
	Path    string        `split_words:"true"`
	DSN     string        `split_words:"true"`
	Timeout time.Duration `split_words:"true" default:"10s"`
}

// Load builds a snapshot from the configured source.
func Load(ctx context.Context, cfg Config) (*Snapshot, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Source)) {
	case "", SourceEmbedded:
		return LoadEmbedded()
	case SourceFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("catalog: source %q requires CATALOG_PATH", SourceFile)
		}
		return LoadFile(cfg.Path)
	case SourcePostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("catalog: source %q requires CATALOG_DSN", SourcePostgres)
		}
		if cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
		}
		db := OpenPostgres(cfg.DSN)
		defer db.Close()
		ds, err := LoadPostgres(ctx, db)
		if err != nil {
			return nil, err
		}
		return New(ds)
	default:
		return nil, fmt.Errorf("catalog: unknown source %q", cfg.Source)
	}
}

func LoadEmbedded() (*Snapshot, error) {
	return LoadYAML(seedYAML)
}

func LoadFile(path string) (*Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return LoadYAML(raw)
}

func LoadYAML(raw []byte) (*Snapshot, error) {
	var ds Dataset
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&ds); err != nil {
		return nil, fmt.Errorf("catalog: decode yaml: %w", err)
	}
	return New(ds)
}
