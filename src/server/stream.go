package server

import (
	"context"
	"time"

	"broker-gateway/src/logger"
	"broker-gateway/src/models"
)

// -----------------------------------------------------------------------------
// Streaming Session
// -----------------------------------------------------------------------------

// snapshotFunc fetches one market-data slice for the session's target.
type snapshotFunc func(ctx context.Context) (interface{}, error)

// StreamSession is a per-client polling loop for one contract. A successful
// fetch emits a data frame and schedules the next fetch after the update
// interval; a failed fetch emits an error frame and backs off for the longer
// interval, then tries again. Sessions are fully independent and end only
// when the context is cancelled.
type StreamSession struct {
	Conid  string
	Logger *logger.Logger

	fetch    snapshotFunc
	interval time.Duration
	backoff  time.Duration
}

// -----------------------------------------------------------------------------

func NewStreamSession(conid string, fetch snapshotFunc, interval, backoff time.Duration, log *logger.Logger) *StreamSession {
	return &StreamSession{
		Conid:    conid,
		Logger:   log,
		fetch:    fetch,
		interval: interval,
		backoff:  backoff,
	}
}

// -----------------------------------------------------------------------------

// Run executes the fetch/emit loop until ctx is cancelled, closing out on
// exit. The fetch carries ctx so cancellation is observable mid-fetch, not
// just between cycles.
func (s *StreamSession) Run(ctx context.Context, out chan<- models.MStreamFrame) {
	defer close(out)

	for {
		data, err := s.fetch(ctx)
		if ctx.Err() != nil {
			return
		}

		frame := models.MStreamFrame{
			Conid: s.Conid,
			Time:  time.Now().UTC().Format(time.RFC3339Nano),
		}

		wait := s.interval
		if err != nil {
			s.Logger.Info("Stream fetch failed for %s: %v", s.Conid, err)
			frame.Error = err.Error()
			wait = s.backoff
		} else {
			frame.Data = data
		}

		select {
		case out <- frame:
		case <-ctx.Done():
			return
		}

		// Interruptible wait before the next cycle
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}
