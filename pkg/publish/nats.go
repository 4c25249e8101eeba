// Package publish pushes finalized laps and live samples to NATS so
// external consumers (dashboards, recorders) can follow a session
// without talking to the engine process.
package publish

import (
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/ohler55/ojg/oj"

	"github.com/forzalog/lap-engine-go/log"
	"github.com/forzalog/lap-engine-go/pkg/model"
	"github.com/forzalog/lap-engine-go/pkg/utils/broadcast"
)

// NatsPublisher drains one subscription on each broadcast server and
// publishes the messages as JSON. Subjects carry the session ID so
// several engine instances can share a NATS server.
type NatsPublisher struct {
	conn      *nats.Conn
	l         *log.Logger
	sessionID string
	lapBcst   broadcast.BroadcastServer[*model.Lap]
	liveBcst  broadcast.BroadcastServer[*model.TelemetrySample]
	lapChan   <-chan *model.Lap
	liveChan  <-chan *model.TelemetrySample
	wg        sync.WaitGroup
}

type Option func(*NatsPublisher)

func WithLogger(l *log.Logger) Option {
	return func(p *NatsPublisher) { p.l = l }
}

//nolint:whitespace // editor/linter issue
func NewNatsPublisher(
	conn *nats.Conn,
	sessionID string,
	laps broadcast.BroadcastServer[*model.Lap],
	live broadcast.BroadcastServer[*model.TelemetrySample],
	opts ...Option,
) *NatsPublisher {
	ret := &NatsPublisher{
		conn:      conn,
		sessionID: sessionID,
		lapBcst:   laps,
		liveBcst:  live,
		l:         log.Default().Named("nats"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.lapChan = laps.Subscribe()
	ret.liveChan = live.Subscribe()
	ret.wg.Add(2)
	go ret.pumpLaps()
	go ret.pumpLive()
	return ret
}

func (p *NatsPublisher) LapSubject() string {
	return fmt.Sprintf("fle.laps.%s", p.sessionID)
}

func (p *NatsPublisher) LiveSubject() string {
	return fmt.Sprintf("fle.live.%s", p.sessionID)
}

// Close cancels the broadcast subscriptions, waits for the pumps to
// drain and closes the connection.
func (p *NatsPublisher) Close() {
	p.lapBcst.CancelSubscription(p.lapChan)
	p.liveBcst.CancelSubscription(p.liveChan)
	p.wg.Wait()
	if err := p.conn.Flush(); err != nil {
		p.l.Warn("could not flush nats connection", log.ErrorField(err))
	}
	p.conn.Close()
}

func (p *NatsPublisher) pumpLaps() {
	defer p.wg.Done()
	subject := p.LapSubject()
	for lap := range p.lapChan {
		data, err := oj.Marshal(lap)
		if err != nil {
			p.l.Error("could not marshal lap", log.ErrorField(err))
			continue
		}
		if err := p.conn.Publish(subject, data); err != nil {
			p.l.Warn("could not publish lap",
				log.String("subject", subject), log.ErrorField(err))
		}
	}
	p.l.Debug("lap pump done", log.String("subject", subject))
}

func (p *NatsPublisher) pumpLive() {
	defer p.wg.Done()
	subject := p.LiveSubject()
	for sample := range p.liveChan {
		data, err := oj.Marshal(sample)
		if err != nil {
			p.l.Error("could not marshal sample", log.ErrorField(err))
			continue
		}
		if err := p.conn.Publish(subject, data); err != nil {
			p.l.Warn("could not publish sample",
				log.String("subject", subject), log.ErrorField(err))
		}
	}
	p.l.Debug("live pump done", log.String("subject", subject))
}
