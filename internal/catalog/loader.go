package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"tourism-workers/internal/common/config"
	"tourism-workers/internal/common/logger"
)

// Load builds the catalog from the configured source. The postgres source
// overlays database rows on top of the embedded tables; db may be nil for
// the other sources.
func Load(ctx context.Context, cfg config.CatalogConfig, db *sql.DB, log logger.Logger) (*Catalog, error) {
	var (
		c   *Catalog
		err error
	)
	switch cfg.Source {
	case "", "embedded":
		c, err = Embedded()
	case "file":
		c, err = LoadFile(cfg.Path)
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("%w: postgres source without a database handle", ErrCatalogLoadFailed)
		}
		base, baseErr := Embedded()
		if baseErr != nil {
			return nil, baseErr
		}
		c, err = LoadFromPostgres(ctx, db, base)
	default:
		return nil, fmt.Errorf("%w: unknown source %q", ErrCatalogLoadFailed, cfg.Source)
	}
	if err != nil {
		return nil, err
	}

	log.Info("catalog loaded", map[string]interface{}{
		"source":        orDefault(cfg.Source, "embedded"),
		"version":       c.Version,
		"accessibility": len(c.Accessibility),
		"routes":        len(c.Routes),
		"venues":        len(c.Venues),
	})
	return c, nil
}

func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogLoadFailed, err)
	}
	return Parse(data)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
