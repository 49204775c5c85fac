package resolver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/ghalamif/kioskbridge/internal/domain"
	"github.com/ghalamif/kioskbridge/internal/ports"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// SQLResolver loads the catalog from the videos table maintained by the
// kiosk's admin screens.
type SQLResolver struct {
	db    *sql.DB
	table string
	obs   ports.Observability
	cat   catalog
}

func NewSQLResolver(db *sql.DB, table string, obs ports.Observability) (*SQLResolver, error) {
	if db == nil {
		return nil, errors.New("resolver: db is required")
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("resolver: invalid table name %q", table)
	}
	if obs == nil {
		return nil, errors.New("resolver: observability is required")
	}
	return &SQLResolver{db: db, table: table, obs: obs}, nil
}

func (r *SQLResolver) Name() string { return "postgres" }

func (r *SQLResolver) Lookup(key int32) (domain.ResolvedEntry, bool) { return r.cat.lookup(key) }

func (r *SQLResolver) Len() int { return r.cat.len() }

// Reload reads every row; on error the previous entries stay in place.
func (r *SQLResolver) Reload(ctx context.Context) error {
	query := "SELECT video_key, description, file_path FROM " + r.table + " ORDER BY id"
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("query %s: %w", r.table, err)
	}
	defer rows.Close()

	var (
		entries []domain.ResolvedEntry
		skipped int
	)
	for rows.Next() {
		var (
			key        sql.NullInt32
			desc, path sql.NullString
		)
		if err := rows.Scan(&key, &desc, &path); err != nil {
			return fmt.Errorf("scan %s: %w", r.table, err)
		}
		if !key.Valid {
			skipped++
			continue
		}
		entries = append(entries, domain.ResolvedEntry{
			Key:         key.Int32,
			Description: desc.String,
			AssetRef:    path.String,
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s: %w", r.table, err)
	}

	if skipped > 0 {
		r.obs.LogError("catalog_rows_skipped", errors.New("NULL video_key"),
			ports.Field{Key: "table", Value: r.table},
			ports.Field{Key: "rows", Value: skipped})
	}
	r.cat.replace(entries)
	r.obs.LogInfo("catalog_loaded",
		ports.Field{Key: "table", Value: r.table},
		ports.Field{Key: "entries", Value: r.cat.len()})
	return nil
}

// Watch reloads every interval until ctx is cancelled.
func (r *SQLResolver) Watch(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.Reload(ctx); err != nil && ctx.Err() == nil {
				r.obs.LogError("catalog_reload_failed", err, ports.Field{Key: "table", Value: r.table})
			}
		}
	}
}

var _ ports.KeyResolver = (*SQLResolver)(nil)
