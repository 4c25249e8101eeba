package publish

import (
	"testing"

	"github.com/ohler55/ojg/oj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forzalog/lap-engine-go/pkg/model"
)

func TestSubjects(t *testing.T) {
	p := &NatsPublisher{sessionID: "4a7b9c"}
	assert.Equal(t, "fle.laps.4a7b9c", p.LapSubject())
	assert.Equal(t, "fle.live.4a7b9c", p.LiveSubject())
}

// consumers parse the published payloads by key, so the JSON field names
// are part of the contract
func TestLapPayloadKeys(t *testing.T) {
	lap := &model.Lap{ID: "lap-1", Number: 3, Player: "tester", LapTime: 61.5}
	data, err := oj.Marshal(lap)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, oj.Unmarshal(data, &decoded))
	assert.Equal(t, "lap-1", decoded["id"])
	assert.InDelta(t, 3, decoded["lapNumber"], 1e-9)
	assert.Equal(t, "tester", decoded["player"])
	assert.InDelta(t, 61.5, decoded["lapTime"], 1e-9)
}
