package hero

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/lumeshot/hero-optimizer/internal/model"
)

// objectRemover deletes a single object from storage.
type objectRemover interface {
	Remove(ctx context.Context, key string) error
}

// CleanupHandler consumes orphan-object events and deletes the stranded
// keys on a best-effort basis. A key that fails to delete is logged and
// skipped; the event is still considered handled.
type CleanupHandler struct {
	store objectRemover
}

// NewCleanupHandler creates a new handler backed by the given store.
func NewCleanupHandler(store objectRemover) *CleanupHandler {
	return &CleanupHandler{store: store}
}

// Handle processes one orphan-object event.
func (h *CleanupHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event model.OrphanObjectsEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("unmarshal orphan event: %w", err)
	}

	removed := 0
	for _, key := range event.Keys {
		if err := h.store.Remove(ctx, key); err != nil {
			zlog.Logger.Err(err).
				Str("key", key).
				Msg("failed to remove orphan object")
			continue
		}
		removed++
	}

	zlog.Logger.Info().
		Int("removed", removed).
		Int("total", len(event.Keys)).
		Str("reason", event.Reason).
		Msg("orphan cleanup finished")

	return nil
}
