package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	pgrepo "github.com/yoockh/lingualink/internal/repositories/postgres"
)

// ExpirySweeper is the server-side timeout supervisor: it periodically ends
// waiting sessions that outlived the matching deadline with a no_agent
// outcome. Because it runs in the server, the guarantee holds even when the
// creating client process has exited.
type ExpirySweeper struct {
	Calls  pgrepo.CallSessionRepository
	Logger *logrus.Logger

	Interval time.Duration // default 15s between sweeps
	Deadline time.Duration // default 60s in waiting before expiry
}

// Run sweeps until the context is cancelled.
func (s *ExpirySweeper) Run(ctx context.Context) {
	if s.Interval <= 0 {
		s.Interval = 15 * time.Second
	}
	if s.Deadline <= 0 {
		s.Deadline = 60 * time.Second
	}
	log := s.Logger
	if log == nil {
		log = logrus.New()
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		cutoff := time.Now().UTC().Add(-s.Deadline)
		n, err := s.Calls.ExpireWaiting(ctx, cutoff)
		if err != nil {
			log.WithError(err).Warn("expiry sweep failed")
			continue
		}
		if n > 0 {
			log.WithField("expired", n).Info("expired unanswered calls")
		}
	}
}
