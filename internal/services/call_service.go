package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilkumar000/Intern/internal/events"
	"github.com/nikhilkumar000/Intern/internal/metrics"
	"github.com/nikhilkumar000/Intern/internal/models"
	mongorepo "github.com/nikhilkumar000/Intern/internal/repositories/mongo"
	"github.com/nikhilkumar000/Intern/internal/utils"
)

type CallService interface {
	Start(ctx context.Context, callerID, expertID string) (*models.CallSession, error)
	End(ctx context.Context, callID, endReason string) (*models.CallSession, error)
	SetStatus(ctx context.Context, callID, status, endReason string) (*models.CallSession, error)
	Get(ctx context.Context, callID string) (*models.CallSession, error)
	History(ctx context.Context, partyID string, limit int64) ([]models.CallSession, error)
	List(ctx context.Context, status string, limit int64) ([]models.CallSession, error)
	// ExpireRinging moves sessions ringing for longer than timeout to missed.
	ExpireRinging(ctx context.Context, timeout time.Duration) (int, error)
}

// ExpertDirectory answers whether an expert account exists.
type ExpertDirectory interface {
	Exists(ctx context.Context, expertID string) (bool, error)
}

// ExpertAvailability is told when an expert enters or leaves a live call.
// Implementations must not block.
type ExpertAvailability interface {
	CallEngaged(expertID string)
	CallReleased(expertID string)
}

type callService struct {
	calls        mongorepo.CallRepository
	experts      ExpertDirectory
	availability ExpertAvailability
	publisher    events.Publisher
	now          func() time.Time
}

type CallServiceOption func(*callService)

func WithExpertDirectory(d ExpertDirectory) CallServiceOption {
	return func(s *callService) { s.experts = d }
}

func WithAvailability(a ExpertAvailability) CallServiceOption {
	return func(s *callService) { s.availability = a }
}

func WithPublisher(p events.Publisher) CallServiceOption {
	return func(s *callService) { s.publisher = p }
}

func WithClock(now func() time.Time) CallServiceOption {
	return func(s *callService) { s.now = now }
}

func NewCallService(calls mongorepo.CallRepository, opts ...CallServiceOption) CallService {
	s := &callService{
		calls:     calls,
		publisher: events.Noop{},
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *callService) Start(ctx context.Context, callerID, expertID string) (*models.CallSession, error) {
	const op = "CallService.Start"

	expertID = strings.TrimSpace(expertID)
	callerID = strings.TrimSpace(callerID)
	if expertID == "" {
		return nil, utils.Invalid(op, "expertId is required")
	}
	if callerID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "User not authenticated", nil)
	}

	if s.experts != nil {
		ok, err := s.experts.Exists(ctx, expertID)
		if err != nil {
			return nil, utils.E(utils.CodeUnavailable, op, "failed to look up expert", err)
		}
		if !ok {
			return nil, utils.E(utils.CodeNotFound, op, "expert not found", nil)
		}
	}

	now := s.now().UTC()
	call := &models.CallSession{
		ID:          uuid.NewString(),
		CallerID:    callerID,
		ExpertID:    expertID,
		InitiatedBy: models.InitiatedByUser,
		Status:      models.CallRinging,
		StartedAt:   &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.calls.Create(ctx, call); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to start call session", err)
	}

	metrics.ObserveCall(string(call.Status), nil)
	s.publish(ctx, events.CallStarted, call)
	return call, nil
}

// End closes a call. A session that is already terminal is returned unchanged.
func (s *callService) End(ctx context.Context, callID, endReason string) (*models.CallSession, error) {
	const op = "CallService.End"

	reason, err := parseEndReason(op, endReason)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, op, callID, models.CallEnded, reason, true)
}

func (s *callService) SetStatus(ctx context.Context, callID, status, endReason string) (*models.CallSession, error) {
	const op = "CallService.SetStatus"

	to := models.CallStatus(strings.TrimSpace(status))
	if !to.Valid() || to == models.CallRinging {
		return nil, utils.Invalid(op, "status must be one of accepted, ongoing, ended, rejected, missed, failed")
	}
	reason, err := parseEndReason(op, endReason)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, op, callID, to, reason, to == models.CallEnded)
}

func (s *callService) transition(ctx context.Context, op, callID string, to models.CallStatus, reason models.EndReason, idempotentEnd bool) (*models.CallSession, error) {
	callID = strings.TrimSpace(callID)
	if callID == "" {
		return nil, utils.Invalid(op, "callId is required")
	}

	current, err := s.Get(ctx, callID)
	if err != nil {
		return nil, err
	}

	if current.Status.Terminal() && idempotentEnd {
		return current, nil
	}
	if current.Status == to && !to.Terminal() {
		return current, nil
	}
	if !current.Status.CanTransition(to) {
		return nil, utils.E(utils.CodeConflict, op, "cannot move call from "+string(current.Status)+" to "+string(to), nil)
	}

	next := *current
	now := s.now().UTC()
	if to.Terminal() {
		next.Terminate(to, reason, now)
	} else {
		next.Status = to
		next.UpdatedAt = now
	}

	saved, err := s.calls.Transition(ctx, &next, to.AllowedFrom())
	switch {
	case errors.Is(err, utils.ErrNotFound):
		return nil, utils.E(utils.CodeNotFound, op, "Call session not found", err)
	case errors.Is(err, utils.ErrConflict):
		// lost a race with another writer; report what won
		latest, gerr := s.Get(ctx, callID)
		if gerr != nil {
			return nil, gerr
		}
		if latest.Status.Terminal() && idempotentEnd {
			return latest, nil
		}
		return nil, utils.E(utils.CodeConflict, op, "call status changed concurrently to "+string(latest.Status), err)
	case err != nil:
		return nil, utils.E(utils.CodeInternal, op, "failed to update call session", err)
	}

	metrics.ObserveCall(string(saved.Status), saved.DurationSeconds)
	s.trackAvailability(saved)
	if to == models.CallEnded {
		s.publish(ctx, events.CallEnded, saved)
	} else {
		s.publish(ctx, events.CallStatus, saved)
	}
	return saved, nil
}

func (s *callService) Get(ctx context.Context, callID string) (*models.CallSession, error) {
	const op = "CallService.Get"

	if callID == "" {
		return nil, utils.Invalid(op, "callId is required")
	}

	out, err := s.calls.GetByID(ctx, callID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "Call session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get call session", err)
	}
	return out, nil
}

func (s *callService) History(ctx context.Context, partyID string, limit int64) ([]models.CallSession, error) {
	const op = "CallService.History"

	if partyID == "" {
		return nil, utils.E(utils.CodeUnauthorized, op, "unauthorized", nil)
	}
	out, err := s.calls.ListByParty(ctx, partyID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list calls", err)
	}
	return out, nil
}

func (s *callService) List(ctx context.Context, status string, limit int64) ([]models.CallSession, error) {
	const op = "CallService.List"

	st := models.CallStatus(status)
	if st != "" && !st.Valid() {
		return nil, utils.Invalid(op, "unknown status filter")
	}
	out, err := s.calls.List(ctx, st, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list calls", err)
	}
	return out, nil
}

func (s *callService) ExpireRinging(ctx context.Context, timeout time.Duration) (int, error) {
	const op = "CallService.ExpireRinging"

	cutoff := s.now().UTC().Add(-timeout)
	stale, err := s.calls.ListStale(ctx, models.CallRinging, cutoff, 100)
	if err != nil {
		return 0, utils.E(utils.CodeInternal, op, "failed to list ringing calls", err)
	}

	expired := 0
	for i := range stale {
		next := stale[i]
		next.Terminate(models.CallMissed, models.EndTimeout, s.now().UTC())

		saved, err := s.calls.Transition(ctx, &next, models.CallMissed.AllowedFrom())
		if errors.Is(err, utils.ErrConflict) || errors.Is(err, utils.ErrNotFound) {
			continue // answered or ended meanwhile
		}
		if err != nil {
			return expired, utils.E(utils.CodeInternal, op, "failed to expire call", err)
		}
		expired++
		metrics.ObserveCall(string(saved.Status), saved.DurationSeconds)
		s.trackAvailability(saved)
		s.publish(ctx, events.CallStatus, saved)
	}
	return expired, nil
}

// trackAvailability marks the expert busy while a call is live and frees them
// once it terminates.
func (s *callService) trackAvailability(call *models.CallSession) {
	if s.availability == nil {
		return
	}
	switch {
	case call.Status == models.CallAccepted || call.Status == models.CallOngoing:
		s.availability.CallEngaged(call.ExpertID)
	case call.Status.Terminal():
		s.availability.CallReleased(call.ExpertID)
	}
}

func (s *callService) publish(ctx context.Context, name string, call *models.CallSession) {
	_ = s.publisher.Publish(ctx, events.Event{
		Name:       name,
		CallID:     call.ID,
		OccurredAt: call.UpdatedAt,
		Data:       call,
	})
}

func parseEndReason(op, raw string) (models.EndReason, error) {
	r := models.EndReason(strings.TrimSpace(raw))
	if r == "" {
		return models.EndUnknown, nil
	}
	if !r.Valid() {
		return "", utils.Invalid(op, "endReason must be one of user-ended, expert-ended, network-error, timeout, unknown")
	}
	return r, nil
}
