package hero

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumeshot/hero-optimizer/internal/model"
)

type fakeRemover struct {
	removed []string
	failOn  string
}

func (f *fakeRemover) Remove(_ context.Context, key string) error {
	if key == f.failOn {
		return errors.New("object locked")
	}
	f.removed = append(f.removed, key)
	return nil
}

func orphanMessage(t *testing.T, keys []string) kafka.Message {
	t.Helper()

	event := model.OrphanObjectsEvent{
		Keys:     keys,
		Reason:   "failed to upload WebP: quota exceeded",
		FailedAt: time.Now().UTC(),
	}
	value, err := json.Marshal(event)
	require.NoError(t, err)

	return kafka.Message{Value: value}
}

func TestHandle_RemovesAllKeys(t *testing.T) {
	store := &fakeRemover{}
	h := NewCleanupHandler(store)

	keys := []string{
		"hero/original/hero-1-a.jpg",
		"hero/mobile/hero-1-768w.avif",
		"hero/mobile/hero-1-768w.webp",
	}
	require.NoError(t, h.Handle(context.Background(), orphanMessage(t, keys)))
	assert.Equal(t, keys, store.removed)
}

func TestHandle_ContinuesPastFailedKey(t *testing.T) {
	store := &fakeRemover{failOn: "hero/mobile/hero-1-768w.avif"}
	h := NewCleanupHandler(store)

	keys := []string{
		"hero/original/hero-1-a.jpg",
		"hero/mobile/hero-1-768w.avif",
		"hero/mobile/hero-1-768w.webp",
	}

	// A stuck key is logged and skipped, not retried forever.
	require.NoError(t, h.Handle(context.Background(), orphanMessage(t, keys)))
	assert.Equal(t, []string{keys[0], keys[2]}, store.removed)
}

func TestHandle_MalformedPayload(t *testing.T) {
	h := NewCleanupHandler(&fakeRemover{})

	err := h.Handle(context.Background(), kafka.Message{Value: []byte("{broken")})
	assert.Error(t, err)
}
