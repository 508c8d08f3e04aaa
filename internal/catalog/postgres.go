package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

const (
	accessibilityQuery = `
		SELECT name, accessibility_level, venue_rating, facilities, accessibility_score, certification
		FROM venue_accessibility`

	venuesQuery = `
		SELECT name, venue_type, opening_hours, pricing, accessibility_reviews,
		       special_exhibitions, accessibility_services, contact
		FROM tourism_venues`
)

// LoadFromPostgres copies base and overlays the rows of venue_accessibility
// and tourism_venues. JSON columns are decoded into the catalog types. Routes
// and the lookup rules always come from base.
func LoadFromPostgres(ctx context.Context, db *sql.DB, base *Catalog) (*Catalog, error) {
	c := base.clone()

	if err := loadAccessibility(ctx, db, c); err != nil {
		return nil, fmt.Errorf("%w: venue_accessibility: %v", ErrCatalogLoadFailed, err)
	}
	if err := loadVenues(ctx, db, c); err != nil {
		return nil, fmt.Errorf("%w: tourism_venues: %v", ErrCatalogLoadFailed, err)
	}

	c.reindex()
	return c, nil
}

func loadAccessibility(ctx context.Context, db *sql.DB, c *Catalog) error {
	rows, err := db.QueryContext(ctx, accessibilityQuery)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name       string
			entry      AccessibilityEntry
			facilities []byte
			cert       sql.NullString
		)
		if err := rows.Scan(&name, &entry.Level, &entry.VenueRating, &facilities, &entry.Score, &cert); err != nil {
			return err
		}
		if err := decodeJSON(facilities, &entry.Facilities); err != nil {
			return fmt.Errorf("%s facilities: %w", name, err)
		}
		entry.Certification = cert.String
		c.Accessibility[name] = entry
	}
	return rows.Err()
}

func loadVenues(ctx context.Context, db *sql.DB, c *Catalog) error {
	rows, err := db.QueryContext(ctx, venuesQuery)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name, venueType                             sql.NullString
			hours, pricing, reviews, exhibits, services []byte
			contact                                     []byte
		)
		if err := rows.Scan(&name, &venueType, &hours, &pricing, &reviews, &exhibits, &services, &contact); err != nil {
			return err
		}
		if !name.Valid || name.String == "" {
			continue
		}

		entry := VenueEntry{Type: venueType.String}
		for _, f := range []struct {
			raw []byte
			dst interface{}
		}{
			{hours, &entry.OpeningHours},
			{pricing, &entry.Pricing},
			{reviews, &entry.AccessibilityReviews},
			{exhibits, &entry.SpecialExhibitions},
			{services, &entry.AccessibilityServices},
			{contact, &entry.Contact},
		} {
			if err := decodeJSON(f.raw, f.dst); err != nil {
				return fmt.Errorf("%s: %w", name.String, err)
			}
		}
		c.Venues[name.String] = entry
	}
	return rows.Err()
}

func decodeJSON(raw []byte, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func (c *Catalog) clone() *Catalog {
	out := *c
	out.Accessibility = make(map[string]AccessibilityEntry, len(c.Accessibility))
	for k, v := range c.Accessibility {
		out.Accessibility[k] = v
	}
	out.Venues = make(map[string]VenueEntry, len(c.Venues))
	for k, v := range c.Venues {
		out.Venues[k] = v
	}
	out.Routes = make(map[string]RouteEntry, len(c.Routes))
	for k, v := range c.Routes {
		out.Routes[k] = v
	}
	return &out
}
