package hero

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/lumeshot/hero-optimizer/internal/model"
	"github.com/lumeshot/hero-optimizer/internal/optimizer"
	"github.com/lumeshot/hero-optimizer/internal/repository/settings"
)

// heroOptimizer runs the variant pipeline for one uploaded image.
type heroOptimizer interface {
	ProcessHeroImage(ctx context.Context, fileBuffer []byte, originalName string) (model.ProcessedImages, error)
}

// settingsRepo persists hero records.
type settingsRepo interface {
	SaveHero(ctx context.Context, rec model.HeroRecord) error
	GetHero(ctx context.Context) (model.HeroRecord, error)
}

// producer publishes events to a message broker (e.g., Kafka).
type producer interface {
	Produce(ctx context.Context, key []byte, payload any) error
}

// Service orchestrates hero uploads: it runs the pipeline, persists the
// resulting manifest, and publishes events for downstream consumers.
type Service struct {
	optimizer heroOptimizer
	repo      settingsRepo
	processed producer
	orphans   producer
}

// NewService creates a Service. processed and orphans may be nil when event
// publication is disabled.
func NewService(o heroOptimizer, repo settingsRepo, processed, orphans producer) *Service {
	return &Service{
		optimizer: o,
		repo:      repo,
		processed: processed,
		orphans:   orphans,
	}
}

// UploadHero processes the uploaded image into the full variant set and
// persists the manifest as the new current hero.
//
// On pipeline failure the error is returned unchanged; if objects were
// already uploaded, their keys are published for best-effort cleanup first.
// The pipeline itself never deletes anything.
func (s *Service) UploadHero(ctx context.Context, fileBuffer []byte, originalName string) (model.ProcessedImages, error) {
	manifest, err := s.optimizer.ProcessHeroImage(ctx, fileBuffer, originalName)
	if err != nil {
		s.publishOrphans(ctx, err)
		return model.ProcessedImages{}, err
	}

	rec := model.HeroRecord{
		ID:        uuid.New(),
		HeroURL:   manifest.Variants[model.BreakpointDesktop].JPG.URL,
		Manifest:  manifest,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.SaveHero(ctx, rec); err != nil {
		return model.ProcessedImages{}, fmt.Errorf("upload: failed to save hero record: %w", err)
	}

	if s.processed != nil {
		event := model.HeroProcessedEvent{
			RecordID:    rec.ID,
			HeroURL:     rec.HeroURL,
			Manifest:    manifest,
			ProcessedAt: rec.CreatedAt,
		}
		if err := s.processed.Produce(ctx, []byte(rec.ID.String()), event); err != nil {
			// The manifest is already persisted; event delivery is advisory.
			zlog.Logger.Err(err).Msg("failed to publish hero processed event")
		}
	}

	return manifest, nil
}

// CurrentHero returns the most recently persisted hero record.
func (s *Service) CurrentHero(ctx context.Context) (model.HeroRecord, error) {
	rec, err := s.repo.GetHero(ctx)
	if err != nil {
		if errors.Is(err, settings.ErrHeroNotFound) {
			return model.HeroRecord{}, settings.ErrHeroNotFound
		}

		return model.HeroRecord{}, fmt.Errorf("current: failed to get hero record: %w", err)
	}

	return rec, nil
}

// publishOrphans reports keys stranded by a failed run to the cleanup topic.
func (s *Service) publishOrphans(ctx context.Context, err error) {
	var orphaned *optimizer.OrphanedError
	if s.orphans == nil || !errors.As(err, &orphaned) {
		return
	}

	event := model.OrphanObjectsEvent{
		Keys:     orphaned.Keys,
		Reason:   orphaned.Err.Error(),
		FailedAt: time.Now().UTC(),
	}
	if pubErr := s.orphans.Produce(ctx, []byte("orphans"), event); pubErr != nil {
		zlog.Logger.Err(pubErr).
			Int("keys", len(orphaned.Keys)).
			Msg("failed to publish orphan cleanup event")
	}
}
