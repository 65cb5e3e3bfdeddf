package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/nikhilkumar000/Intern/internal/models"
	"github.com/nikhilkumar000/Intern/internal/utils"
)

// memCalls mirrors callRepo, including the status guard on Transition.
type memCalls struct {
	mu      sync.Mutex
	calls   map[string]models.CallSession
	failErr error
}

func newMemCalls() *memCalls { return &memCalls{calls: map[string]models.CallSession{}} }

func (m *memCalls) Create(_ context.Context, c *models.CallSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	if _, ok := m.calls[c.ID]; ok {
		return errors.New("duplicate key")
	}
	m.calls[c.ID] = *c
	return nil
}

func (m *memCalls) GetByID(_ context.Context, id string) (*models.CallSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.calls[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &c, nil
}

func (m *memCalls) Transition(_ context.Context, next *models.CallSession, from []models.CallStatus) (*models.CallSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.calls[next.ID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	allowed := false
	for _, f := range from {
		if cur.Status == f {
			allowed = true
		}
	}
	if !allowed {
		return nil, utils.ErrConflict
	}
	cur.Status = next.Status
	cur.UpdatedAt = next.UpdatedAt
	if next.EndedAt != nil {
		cur.EndedAt = next.EndedAt
	}
	if next.DurationSeconds != nil {
		cur.DurationSeconds = next.DurationSeconds
	}
	if next.EndReason != "" {
		cur.EndReason = next.EndReason
	}
	m.calls[cur.ID] = cur
	return &cur, nil
}

func (m *memCalls) ListByParty(_ context.Context, partyID string, limit int64) ([]models.CallSession, error) {
	return m.filter(func(c models.CallSession) bool {
		return c.CallerID == partyID || c.ExpertID == partyID
	}, limit), nil
}

func (m *memCalls) List(_ context.Context, status models.CallStatus, limit int64) ([]models.CallSession, error) {
	return m.filter(func(c models.CallSession) bool {
		return status == "" || c.Status == status
	}, limit), nil
}

func (m *memCalls) ListStale(_ context.Context, status models.CallStatus, before time.Time, limit int64) ([]models.CallSession, error) {
	return m.filter(func(c models.CallSession) bool {
		return c.Status == status && c.StartedAt != nil && c.StartedAt.Before(before)
	}, limit), nil
}

func (m *memCalls) filter(keep func(models.CallSession) bool, limit int64) []models.CallSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.CallSession{}
	for _, c := range m.calls {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out
}

// memTranscripts assigns sequence numbers the way the counters collection does.
type memTranscripts struct {
	mu      sync.Mutex
	seq     map[string]int64
	chunks  []models.TranscriptChunk
	failErr error
}

func newMemTranscripts() *memTranscripts { return &memTranscripts{seq: map[string]int64{}} }

func (m *memTranscripts) NextSeq(_ context.Context, callID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq[callID]++
	return m.seq[callID], nil
}

func (m *memTranscripts) Insert(_ context.Context, c *models.TranscriptChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.chunks = append(m.chunks, *c)
	return nil
}

func (m *memTranscripts) ListByCall(_ context.Context, callID string) ([]models.TranscriptChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TranscriptChunk
	for _, c := range m.chunks {
		if c.CallID == callID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

type fakeDirectory struct {
	known map[string]bool
	err   error
}

func (d fakeDirectory) Exists(_ context.Context, id string) (bool, error) {
	return d.known[id], d.err
}

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// availabilityLog records busy/free notifications as "engaged:E1" / "released:E1".
type availabilityLog struct {
	mu    sync.Mutex
	calls []string
}

func (a *availabilityLog) CallEngaged(id string)  { a.add("engaged:" + id) }
func (a *availabilityLog) CallReleased(id string) { a.add("released:" + id) }

func (a *availabilityLog) add(s string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, s)
}

func (a *availabilityLog) snapshot() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.calls...)
}
