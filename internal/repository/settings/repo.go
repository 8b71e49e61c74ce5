package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wb-go/wbf/dbpg"

	"github.com/lumeshot/hero-optimizer/internal/model"
)

var ErrHeroNotFound = errors.New("hero settings not found")

// Repository persists hero manifests. Every successful upload appends a new
// row; the newest row is the site's current hero.
type Repository struct {
	db *dbpg.DB
}

func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) SaveHero(ctx context.Context, rec model.HeroRecord) error {
	query := `
		INSERT INTO hero_settings (id, hero_url, manifest, created_at)
		VALUES ($1, $2, $3, $4)
   `

	manifest, err := json.Marshal(rec.Manifest)
	if err != nil {
		return fmt.Errorf("save: failed to marshal manifest: %w", err)
	}

	_, err = r.db.Master.ExecContext(ctx, query, rec.ID, rec.HeroURL, manifest, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("save: failed to save hero record: %w", err)
	}

	return nil
}

func (r *Repository) GetHero(ctx context.Context) (model.HeroRecord, error) {
	query := `
		SELECT id, hero_url, manifest, created_at
		FROM hero_settings
		ORDER BY created_at DESC
		LIMIT 1
    `

	var (
		rec      model.HeroRecord
		manifest []byte
	)
	err := r.db.Master.QueryRowContext(ctx, query).
		Scan(&rec.ID, &rec.HeroURL, &manifest, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.HeroRecord{}, ErrHeroNotFound
		}

		return model.HeroRecord{}, fmt.Errorf("get: failed to get hero record: %w", err)
	}

	if err := json.Unmarshal(manifest, &rec.Manifest); err != nil {
		return model.HeroRecord{}, fmt.Errorf("get: failed to unmarshal manifest: %w", err)
	}

	return rec, nil
}
