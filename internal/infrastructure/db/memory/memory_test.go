package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unionportal/ballot-system/internal/core/domain"
)

func TestCandidates(t *testing.T) {
	c := NewCandidates(map[string]string{
		" candidate-9 ": "Candidate Nine",
		"candidate-7":   "  ",
		"   ":           "Nobody",
	})
	ctx := context.Background()

	found, err := c.Find(ctx, "candidate-9")
	require.NoError(t, err)
	assert.Equal(t, "Candidate Nine", found.Name)

	found, err = c.Find(ctx, "candidate-7")
	require.NoError(t, err)
	assert.Equal(t, "candidate-7", found.Name, "blank name falls back to the id")

	_, err = c.Find(ctx, "candidate-1")
	assert.ErrorIs(t, err, domain.ErrInvalidCandidate)
	_, err = c.Find(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidCandidate)

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "candidate-7", list[0].ID)
	assert.Equal(t, "candidate-9", list[1].ID)

	list[0].Name = "changed"
	again, _ := c.List(ctx)
	assert.Equal(t, "candidate-7", again[0].Name, "List must hand out a copy")
}

func TestSlotsPurge(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	slots := NewSlots().WithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, slots.Slot("session:a").Save(ctx, []byte("a")))
	now = now.Add(time.Hour)
	require.NoError(t, slots.Slot("session:b").Save(ctx, []byte("b")))

	n, err := slots.PurgeSlots(ctx, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, 1, slots.Len())

	payload, err := slots.Slot("session:b").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", string(payload))
}
