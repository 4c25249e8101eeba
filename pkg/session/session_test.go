package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forzalog/lap-engine-go/pkg/model"
)

func storedLap(num int, lapTime float64, invalid bool) *model.Lap {
	return &model.Lap{
		ID:      fmt.Sprintf("lap-%d", num),
		Number:  num,
		LapTime: lapTime,
		Invalid: invalid,
	}
}

func TestStore_CollectsLaps(t *testing.T) {
	store := NewStore(WithPlayer("tester"), WithTrack("oval"))
	assert.NotEmpty(t, store.ID())
	assert.Equal(t, "tester", store.Player())
	assert.Equal(t, "oval", store.Track())
	assert.False(t, store.Started().IsZero())

	store.AddLap(storedLap(0, 61.5, false))
	store.AddLap(storedLap(1, 60.1, false))

	laps := store.Laps()
	require.Len(t, laps, 2)
	assert.Equal(t, 0, laps[0].Number)
	assert.Equal(t, 1, laps[1].Number)

	// callers get their own slice
	laps[0] = nil
	assert.NotNil(t, store.Laps()[0])
}

func TestStore_BestLap(t *testing.T) {
	store := NewStore()

	_, ok := store.BestLap()
	assert.False(t, ok, "no laps, no best")

	store.AddLap(storedLap(0, 58.0, true))
	_, ok = store.BestLap()
	assert.False(t, ok, "invalid laps never count as best")

	store.AddLap(storedLap(1, 61.2, false))
	store.AddLap(storedLap(2, 60.1, false))

	best, ok := store.BestLap()
	require.True(t, ok)
	// the faster invalid lap is ignored
	assert.Equal(t, 2, best.Number)
	assert.InDelta(t, 60.1, best.LapTime, 1e-9)
}

func TestStore_Summary(t *testing.T) {
	store := NewStore(WithPlayer("tester"), WithTrack("oval"))
	store.AddLap(storedLap(0, 61.5, false))
	store.AddLap(storedLap(1, 60.1, false))
	store.AddLap(storedLap(2, 58.0, true))

	summary := store.Summary()
	assert.Equal(t, store.ID(), summary.SessionID)
	assert.Equal(t, "tester", summary.Player)
	assert.Equal(t, "oval", summary.Track)
	assert.Equal(t, 3, summary.Laps)
	assert.Equal(t, 2, summary.ValidLaps)
	assert.InDelta(t, 60.1, summary.BestLap, 1e-9)
}

func TestStore_SummaryWithoutValidLaps(t *testing.T) {
	store := NewStore()
	store.AddLap(storedLap(0, 58.0, true))

	summary := store.Summary()
	assert.Equal(t, 1, summary.Laps)
	assert.Zero(t, summary.ValidLaps)
	assert.Zero(t, summary.BestLap)
}
