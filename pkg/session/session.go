// Package session keeps the laps collected during one ingest or replay
// run in memory, for live queries and the end-of-run summary.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/forzalog/lap-engine-go/pkg/model"
)

// Store collects the laps of one session. Methods are safe for
// concurrent use; the processing pipeline writes while publishers and
// summaries read.
type Store struct {
	mu      sync.RWMutex
	id      string
	player  string
	track   string
	started time.Time
	laps    []*model.Lap
}

type Option func(*Store)

// WithPlayer sets the player name reported in summaries.
func WithPlayer(player string) Option {
	return func(s *Store) { s.player = player }
}

// WithTrack sets the track name reported in summaries.
func WithTrack(name string) Option {
	return func(s *Store) { s.track = name }
}

func NewStore(opts ...Option) *Store {
	ret := &Store{
		id:      uuid.NewString(),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (s *Store) ID() string         { return s.id }
func (s *Store) Player() string     { return s.player }
func (s *Store) Track() string      { return s.track }
func (s *Store) Started() time.Time { return s.started }

func (s *Store) AddLap(lap *model.Lap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.laps = append(s.laps, lap)
}

// Laps returns the collected laps in arrival order.
func (s *Store) Laps() []*model.Lap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]*model.Lap, len(s.laps))
	copy(ret, s.laps)
	return ret
}

// BestLap is the fastest valid lap seen so far.
func (s *Store) BestLap() (*model.Lap, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	valid := lo.Filter(s.laps, func(l *model.Lap, _ int) bool {
		return !l.Invalid
	})
	if len(valid) == 0 {
		return nil, false
	}
	best := lo.MinBy(valid, func(a, b *model.Lap) bool {
		return a.LapTime < b.LapTime
	})
	return best, true
}

// Summary condenses the session for logging and the replay report.
type Summary struct {
	SessionID string
	Player    string
	Track     string
	Laps      int
	ValidLaps int
	BestLap   float64 // seconds, 0 when no valid lap exists
}

func (s *Store) Summary() Summary {
	s.mu.RLock()
	laps := len(s.laps)
	valid := lo.CountBy(s.laps, func(l *model.Lap) bool { return !l.Invalid })
	s.mu.RUnlock()

	ret := Summary{
		SessionID: s.id,
		Player:    s.player,
		Track:     s.track,
		Laps:      laps,
		ValidLaps: valid,
	}
	if best, ok := s.BestLap(); ok {
		ret.BestLap = best.LapTime
	}
	return ret
}
