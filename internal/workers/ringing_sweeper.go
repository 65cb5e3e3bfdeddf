package workers

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// RingingExpirer is implemented by services.CallService.
type RingingExpirer interface {
	ExpireRinging(ctx context.Context, timeout time.Duration) (int, error)
}

// RingingSweeper periodically marks calls that rang for longer than Timeout as missed.
type RingingSweeper struct {
	Calls    RingingExpirer
	Timeout  time.Duration
	Interval time.Duration
	Logger   *logrus.Logger

	done chan struct{}
}

// Start runs the sweep loop in the background until ctx is cancelled.
func (s *RingingSweeper) Start(ctx context.Context) error {
	if s.Calls == nil {
		return errors.New("RingingSweeper missing dependency: Calls must be set")
	}
	if s.Timeout <= 0 {
		return errors.New("RingingSweeper: Timeout must be positive")
	}
	if s.Interval <= 0 {
		s.Interval = 15 * time.Second
	}
	if s.Logger == nil {
		s.Logger = logrus.New()
	}

	s.done = make(chan struct{})
	go s.run(ctx)
	return nil
}

// Wait blocks until the loop started by Start has returned. It returns
// immediately if Start was never called.
func (s *RingingSweeper) Wait() {
	if s.done != nil {
		<-s.done
	}
}

func (s *RingingSweeper) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *RingingSweeper) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.Interval)
	defer cancel()

	n, err := s.Calls.ExpireRinging(ctx, s.Timeout)
	if err != nil {
		s.Logger.WithError(err).Warn("ringing sweep failed")
		return
	}
	if n > 0 {
		s.Logger.WithField("expired", n).Info("ringing calls marked missed")
	}
}
