package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilkumar000/Intern/internal/events"
	"github.com/nikhilkumar000/Intern/internal/models"
	"github.com/nikhilkumar000/Intern/internal/utils"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturePublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Name)
	}
	return out
}

func newCallFixture() (CallService, *memCalls, *clock, *capturePublisher) {
	repo := newMemCalls()
	clk := newClock()
	pub := &capturePublisher{}
	return NewCallService(repo, WithClock(clk.Now), WithPublisher(pub)), repo, clk, pub
}

func TestCallServiceStart(t *testing.T) {
	ctx := context.Background()

	t.Run("creates ringing session", func(t *testing.T) {
		svc, repo, clk, pub := newCallFixture()

		call, err := svc.Start(ctx, "U1", "E1")
		require.NoError(t, err)

		assert.Equal(t, models.CallRinging, call.Status)
		assert.Equal(t, "U1", call.CallerID)
		assert.Equal(t, "E1", call.ExpertID)
		assert.Equal(t, models.InitiatedByUser, call.InitiatedBy)
		require.NotNil(t, call.StartedAt)
		assert.Equal(t, clk.Now(), *call.StartedAt)
		assert.Nil(t, call.EndedAt)
		assert.Nil(t, call.DurationSeconds)
		assert.NotEmpty(t, call.ID)

		stored, err := repo.GetByID(ctx, call.ID)
		require.NoError(t, err)
		assert.Equal(t, models.CallRinging, stored.Status)
		assert.Equal(t, []string{events.CallStarted}, pub.names())
	})

	t.Run("missing expert is a validation error", func(t *testing.T) {
		svc, _, _, _ := newCallFixture()
		_, err := svc.Start(ctx, "U1", "  ")
		assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	})

	t.Run("missing caller is unauthorized", func(t *testing.T) {
		svc, _, _, _ := newCallFixture()
		_, err := svc.Start(ctx, "", "E1")
		assert.True(t, utils.IsCode(err, utils.CodeUnauthorized))
	})

	t.Run("unknown expert in directory", func(t *testing.T) {
		svc := NewCallService(newMemCalls(), WithExpertDirectory(fakeDirectory{known: map[string]bool{"E1": true}}))

		_, err := svc.Start(ctx, "U1", "E2")
		assert.True(t, utils.IsCode(err, utils.CodeNotFound))

		_, err = svc.Start(ctx, "U1", "E1")
		assert.NoError(t, err)
	})

	t.Run("directory outage", func(t *testing.T) {
		svc := NewCallService(newMemCalls(), WithExpertDirectory(fakeDirectory{err: errors.New("db down")}))
		_, err := svc.Start(ctx, "U1", "E1")
		assert.True(t, utils.IsCode(err, utils.CodeUnavailable))
	})

	t.Run("persistence failure", func(t *testing.T) {
		repo := newMemCalls()
		repo.failErr = errors.New("mongo unavailable")
		svc := NewCallService(repo)

		_, err := svc.Start(ctx, "U1", "E1")
		assert.True(t, utils.IsCode(err, utils.CodeInternal))
	})
}

func TestCallServiceEnd(t *testing.T) {
	ctx := context.Background()

	t.Run("computes duration", func(t *testing.T) {
		svc, _, clk, pub := newCallFixture()
		call, err := svc.Start(ctx, "U1", "E1")
		require.NoError(t, err)

		clk.Advance(10 * time.Second)
		ended, err := svc.End(ctx, call.ID, "user-ended")
		require.NoError(t, err)

		assert.Equal(t, models.CallEnded, ended.Status)
		assert.Equal(t, models.EndUserEnded, ended.EndReason)
		require.NotNil(t, ended.DurationSeconds)
		assert.Equal(t, int64(10), *ended.DurationSeconds)
		require.NotNil(t, ended.EndedAt)
		assert.Equal(t, clk.Now(), *ended.EndedAt)
		assert.Equal(t, []string{events.CallStarted, events.CallEnded}, pub.names())
	})

	t.Run("default reason", func(t *testing.T) {
		svc, _, _, _ := newCallFixture()
		call, _ := svc.Start(ctx, "U1", "E1")

		ended, err := svc.End(ctx, call.ID, "")
		require.NoError(t, err)
		assert.Equal(t, models.EndUnknown, ended.EndReason)
	})

	t.Run("unknown call is not found and nothing is created", func(t *testing.T) {
		svc, repo, _, _ := newCallFixture()
		_, err := svc.End(ctx, "nonexistent", "")
		assert.True(t, utils.IsCode(err, utils.CodeNotFound))
		assert.Empty(t, repo.calls)
	})

	t.Run("missing call id", func(t *testing.T) {
		svc, _, _, _ := newCallFixture()
		_, err := svc.End(ctx, "", "")
		assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	})

	t.Run("invalid reason", func(t *testing.T) {
		svc, _, _, _ := newCallFixture()
		call, _ := svc.Start(ctx, "U1", "E1")
		_, err := svc.End(ctx, call.ID, "bored")
		assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
	})

	t.Run("second end returns first result unchanged", func(t *testing.T) {
		svc, _, clk, pub := newCallFixture()
		call, _ := svc.Start(ctx, "U1", "E1")
		clk.Advance(5 * time.Second)
		first, err := svc.End(ctx, call.ID, "user-ended")
		require.NoError(t, err)

		clk.Advance(time.Minute)
		second, err := svc.End(ctx, call.ID, "expert-ended")
		require.NoError(t, err)

		assert.Equal(t, *first.EndedAt, *second.EndedAt)
		assert.Equal(t, int64(5), *second.DurationSeconds)
		assert.Equal(t, models.EndUserEnded, second.EndReason)
		assert.Equal(t, []string{events.CallStarted, events.CallEnded}, pub.names())
	})

	t.Run("ending a missed call leaves it missed", func(t *testing.T) {
		svc, _, _, _ := newCallFixture()
		call, _ := svc.Start(ctx, "U1", "E1")
		_, err := svc.SetStatus(ctx, call.ID, "missed", "timeout")
		require.NoError(t, err)

		got, err := svc.End(ctx, call.ID, "user-ended")
		require.NoError(t, err)
		assert.Equal(t, models.CallMissed, got.Status)
	})
}

func TestCallServiceSetStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("forward path", func(t *testing.T) {
		svc, _, clk, _ := newCallFixture()
		call, _ := svc.Start(ctx, "U1", "E1")

		got, err := svc.SetStatus(ctx, call.ID, "accepted", "")
		require.NoError(t, err)
		assert.Equal(t, models.CallAccepted, got.Status)
		assert.Nil(t, got.EndedAt)

		got, err = svc.SetStatus(ctx, call.ID, "ongoing", "")
		require.NoError(t, err)
		assert.Equal(t, models.CallOngoing, got.Status)

		clk.Advance(90 * time.Second)
		got, err = svc.SetStatus(ctx, call.ID, "ended", "expert-ended")
		require.NoError(t, err)
		assert.Equal(t, models.CallEnded, got.Status)
		assert.Equal(t, int64(90), *got.DurationSeconds)
	})

	t.Run("same non-terminal status is a no-op", func(t *testing.T) {
		svc, _, _, pub := newCallFixture()
		call, _ := svc.Start(ctx, "U1", "E1")
		_, err := svc.SetStatus(ctx, call.ID, "accepted", "")
		require.NoError(t, err)
		_, err = svc.SetStatus(ctx, call.ID, "accepted", "")
		require.NoError(t, err)
		assert.Equal(t, []string{events.CallStarted, events.CallStatus}, pub.names())
	})

	t.Run("invalid edges conflict", func(t *testing.T) {
		svc, _, _, _ := newCallFixture()
		call, _ := svc.Start(ctx, "U1", "E1")
		_, err := svc.SetStatus(ctx, call.ID, "ongoing", "")
		assert.True(t, utils.IsCode(err, utils.CodeConflict))

		_, err = svc.End(ctx, call.ID, "")
		require.NoError(t, err)
		_, err = svc.SetStatus(ctx, call.ID, "failed", "network-error")
		assert.True(t, utils.IsCode(err, utils.CodeConflict))
	})

	t.Run("rejected is terminal", func(t *testing.T) {
		svc, _, _, _ := newCallFixture()
		call, _ := svc.Start(ctx, "U1", "E1")
		got, err := svc.SetStatus(ctx, call.ID, "rejected", "")
		require.NoError(t, err)
		assert.Equal(t, models.CallRejected, got.Status)
		assert.NotNil(t, got.EndedAt)

		_, err = svc.SetStatus(ctx, call.ID, "accepted", "")
		assert.True(t, utils.IsCode(err, utils.CodeConflict))
	})

	t.Run("unknown status", func(t *testing.T) {
		svc, _, _, _ := newCallFixture()
		call, _ := svc.Start(ctx, "U1", "E1")
		for _, s := range []string{"", "ringing", "paused"} {
			_, err := svc.SetStatus(ctx, call.ID, s, "")
			assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument), s)
		}
	})
}

func TestCallServiceConcurrentEnd(t *testing.T) {
	ctx := context.Background()
	svc, _, _, pub := newCallFixture()
	call, _ := svc.Start(ctx, "U1", "E1")

	var wg sync.WaitGroup
	results := make([]*models.CallSession, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := svc.End(ctx, call.ID, "user-ended")
			assert.NoError(t, err)
			results[i] = got
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, models.CallEnded, r.Status)
	}
	// exactly one writer wins the transition
	ended := 0
	for _, n := range pub.names() {
		if n == events.CallEnded {
			ended++
		}
	}
	assert.Equal(t, 1, ended)
}

func TestCallServiceExpireRinging(t *testing.T) {
	ctx := context.Background()
	svc, repo, clk, _ := newCallFixture()

	stale, _ := svc.Start(ctx, "U1", "E1")
	answered, _ := svc.Start(ctx, "U2", "E1")
	_, err := svc.SetStatus(ctx, answered.ID, "accepted", "")
	require.NoError(t, err)

	clk.Advance(30 * time.Second)
	fresh, _ := svc.Start(ctx, "U3", "E2")
	clk.Advance(20 * time.Second)

	n, err := svc.ExpireRinging(ctx, 45*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := repo.GetByID(ctx, stale.ID)
	assert.Equal(t, models.CallMissed, got.Status)
	assert.Equal(t, models.EndTimeout, got.EndReason)
	assert.Equal(t, int64(50), *got.DurationSeconds)

	got, _ = repo.GetByID(ctx, answered.ID)
	assert.Equal(t, models.CallAccepted, got.Status)
	got, _ = repo.GetByID(ctx, fresh.ID)
	assert.Equal(t, models.CallRinging, got.Status)
}

func TestCallServiceHistoryAndList(t *testing.T) {
	ctx := context.Background()
	svc, _, clk, _ := newCallFixture()

	a, _ := svc.Start(ctx, "U1", "E1")
	clk.Advance(time.Second)
	b, _ := svc.Start(ctx, "U2", "E1")
	clk.Advance(time.Second)
	_, _ = svc.Start(ctx, "U2", "E2")
	_, _ = svc.End(ctx, a.ID, "")

	hist, err := svc.History(ctx, "E1", 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, b.ID, hist[0].ID)

	_, err = svc.History(ctx, "", 10)
	assert.True(t, utils.IsCode(err, utils.CodeUnauthorized))

	ended, err := svc.List(ctx, "ended", 10)
	require.NoError(t, err)
	require.Len(t, ended, 1)
	assert.Equal(t, a.ID, ended[0].ID)

	_, err = svc.List(ctx, "bogus", 10)
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestCallServiceAvailability(t *testing.T) {
	ctx := context.Background()

	t.Run("live call engages the expert until it ends", func(t *testing.T) {
		avail := &availabilityLog{}
		svc := NewCallService(newMemCalls(), WithClock(newClock().Now), WithAvailability(avail))

		call, err := svc.Start(ctx, "U1", "E1")
		require.NoError(t, err)
		assert.Empty(t, avail.snapshot())

		_, err = svc.SetStatus(ctx, call.ID, "accepted", "")
		require.NoError(t, err)
		_, err = svc.SetStatus(ctx, call.ID, "ongoing", "")
		require.NoError(t, err)
		_, err = svc.End(ctx, call.ID, "user-ended")
		require.NoError(t, err)
		// idempotent end does not release twice
		_, err = svc.End(ctx, call.ID, "user-ended")
		require.NoError(t, err)

		assert.Equal(t, []string{"engaged:E1", "engaged:E1", "released:E1"}, avail.snapshot())
	})

	t.Run("expired ringing call releases the expert", func(t *testing.T) {
		avail := &availabilityLog{}
		clk := newClock()
		svc := NewCallService(newMemCalls(), WithClock(clk.Now), WithAvailability(avail))

		_, err := svc.Start(ctx, "U1", "E2")
		require.NoError(t, err)
		clk.Advance(time.Minute)

		n, err := svc.ExpireRinging(ctx, 30*time.Second)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, []string{"released:E2"}, avail.snapshot())
	})
}
