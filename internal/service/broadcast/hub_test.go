package broadcast

import (
	"testing"
	"time"

	"PillarCast/internal/domain/models"
	applogger "PillarCast/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id string) models.PredictionRecord {
	return models.PredictionRecord{ID: id, Timestamp: time.Unix(0, 0)}
}

func TestPublishReachesAllSubscribers(t *testing.T) {
	h := NewHub(4, applogger.Nop())
	a, cancelA := h.Subscribe()
	b, cancelB := h.Subscribe()
	defer cancelA()
	defer cancelB()

	assert.Equal(t, 2, h.Publish(rec("1")))
	assert.Equal(t, "1", (<-a).ID)
	assert.Equal(t, "1", (<-b).ID)
}

func TestSlowSubscriberIsEvictedWithoutBlockingOthers(t *testing.T) {
	h := NewHub(1, applogger.Nop())
	slow, _ := h.Subscribe()
	fast, cancel := h.Subscribe()
	defer cancel()

	h.Publish(rec("1"))
	require.Equal(t, "1", (<-fast).ID)

	done := make(chan int)
	go func() { done <- h.Publish(rec("2")) }()
	select {
	case n := <-done:
		assert.Equal(t, 1, n)
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.Equal(t, "2", (<-fast).ID)

	// The slow subscriber still gets what was buffered, then sees the close.
	assert.Equal(t, "1", (<-slow).ID)
	_, open := <-slow
	assert.False(t, open)
	assert.Equal(t, 1, h.Len())
}

func TestCancelIsIdempotent(t *testing.T) {
	h := NewHub(1, applogger.Nop())
	ch, cancel := h.Subscribe()
	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, h.Publish(rec("x")))
}

func TestCloseDisconnectsEveryone(t *testing.T) {
	h := NewHub(1, applogger.Nop())
	ch, cancel := h.Subscribe()
	h.Close()
	cancel()
	_, open := <-ch
	assert.False(t, open)

	late, _ := h.Subscribe()
	_, open = <-late
	assert.False(t, open)
}
