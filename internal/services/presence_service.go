package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nikhilkumar000/Intern/internal/cache"
	"github.com/nikhilkumar000/Intern/internal/logger"
	"github.com/nikhilkumar000/Intern/internal/models"
	"github.com/nikhilkumar000/Intern/internal/presence"
)

const (
	OnlineExpertsKey     = "presence:online-experts"
	OnlineExpertsChannel = "presence:online-experts"
	onlineExpertsTTL     = 10 * time.Minute
)

// ExpertStore is the slice of the account store presence needs.
type ExpertStore interface {
	SetCurrentStatus(ctx context.Context, expertID string, status models.ExpertStatus) error
	ResetStatuses(ctx context.Context) (int64, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Expert, error)
}

type OnlineExpertsSnapshot struct {
	Experts   []string               `json:"experts"`
	Busy      []string               `json:"busy"`
	Profiles  []models.ExpertProfile `json:"profiles,omitempty"`
	UpdatedAt time.Time              `json:"updatedAt"`
}

type changeKind int

const (
	changeOnline changeKind = iota
	changeOffline
	changeEngaged
	changeReleased
)

type presenceChange struct {
	kind  changeKind
	entry presence.Entry
}

// PresenceService mirrors the in-memory registry to Redis and the expert
// directory. Changes are applied in order by a single goroutine (see Run).
//
// The registry is the only source for reads. Redis receives a write-only
// mirror for other consumers and is cleared by Reset on startup.
type PresenceService struct {
	registry *presence.Registry
	store    interface {
		cache.Cache
		cache.Notifier
	}
	experts ExpertStore
	log     *logrus.Logger
	changes chan presenceChange

	mu   sync.RWMutex
	busy map[string]bool
}

func NewPresenceService(registry *presence.Registry, store *cache.RedisCache, experts ExpertStore, log *logrus.Logger) *PresenceService {
	if log == nil {
		log = logger.Discard()
	}
	s := &PresenceService{
		registry: registry,
		experts:  experts,
		log:      log,
		changes:  make(chan presenceChange, 256),
		busy:     map[string]bool{},
	}
	if store != nil {
		s.store = store
	}
	return s
}

// Reset discards presence left behind by a previous process: the Redis
// snapshot is overwritten and every expert still online or busy in the
// directory goes offline. Call it before accepting connections.
func (s *PresenceService) Reset(ctx context.Context) error {
	if s.experts != nil {
		n, err := s.experts.ResetStatuses(ctx)
		if err != nil {
			return err
		}
		s.log.WithField("experts", n).Info("reset stale expert statuses")
	}
	if s.store != nil {
		snap := s.snapshot()
		if err := s.store.SetJSON(ctx, OnlineExpertsKey, snap, onlineExpertsTTL); err != nil {
			return err
		}
		if err := s.store.PublishJSON(ctx, OnlineExpertsChannel, snap); err != nil {
			return err
		}
	}
	return nil
}

// PresenceChanged implements signaling.PresenceListener. It never blocks.
func (s *PresenceService) PresenceChanged(e presence.Entry, online bool) {
	kind := changeOffline
	if online {
		kind = changeOnline
	}
	s.enqueue(presenceChange{kind: kind, entry: e})
}

// CallEngaged implements ExpertAvailability.
func (s *PresenceService) CallEngaged(expertID string) {
	s.enqueue(presenceChange{kind: changeEngaged, entry: presence.Entry{PartyID: expertID, Role: presence.RoleExpert}})
}

// CallReleased implements ExpertAvailability.
func (s *PresenceService) CallReleased(expertID string) {
	s.enqueue(presenceChange{kind: changeReleased, entry: presence.Entry{PartyID: expertID, Role: presence.RoleExpert}})
}

func (s *PresenceService) enqueue(ch presenceChange) {
	select {
	case s.changes <- ch:
	default:
		s.log.WithField("party_id", ch.entry.PartyID).Warn("presence queue full, dropping change")
	}
}

func (s *PresenceService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ch := <-s.changes:
			s.apply(ctx, ch)
		}
	}
}

func (s *PresenceService) apply(ctx context.Context, ch presenceChange) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if ch.entry.Role != presence.RoleExpert {
		return
	}
	id := ch.entry.PartyID
	_, registered := s.registry.Resolve(id)

	s.mu.Lock()
	switch ch.kind {
	case changeEngaged:
		s.busy[id] = true
	case changeReleased:
		delete(s.busy, id)
	}
	busy := s.busy[id]
	s.mu.Unlock()

	status := models.ExpertOffline
	switch {
	case ch.kind == changeOffline:
	case !registered:
		// engaged or released while not connected
	case busy:
		status = models.ExpertBusy
	default:
		status = models.ExpertOnline
	}

	log := s.log.WithFields(logrus.Fields{
		"party_id": id,
		"status":   status,
	})

	if s.experts != nil {
		if err := s.experts.SetCurrentStatus(ctx, id, status); err != nil {
			log.WithError(err).Warn("failed to update expert status")
		}
	}

	if s.store == nil {
		return
	}
	snap := s.snapshot()
	if err := s.store.SetJSON(ctx, OnlineExpertsKey, snap, onlineExpertsTTL); err != nil {
		log.WithError(err).Warn("failed to cache presence snapshot")
	}
	if err := s.store.PublishJSON(ctx, OnlineExpertsChannel, snap); err != nil {
		log.WithError(err).Warn("failed to publish presence snapshot")
	}
}

func (s *PresenceService) snapshot() OnlineExpertsSnapshot {
	experts := s.registry.Parties(presence.RoleExpert)
	if experts == nil {
		experts = []string{}
	}

	busy := []string{}
	s.mu.RLock()
	for _, id := range experts {
		if s.busy[id] {
			busy = append(busy, id)
		}
	}
	s.mu.RUnlock()
	sort.Strings(busy)

	return OnlineExpertsSnapshot{Experts: experts, Busy: busy, UpdatedAt: time.Now().UTC()}
}

// OnlineExperts lists experts registered on this process. When the expert
// directory is wired, their profiles are attached with the live status.
func (s *PresenceService) OnlineExperts(ctx context.Context) OnlineExpertsSnapshot {
	snap := s.snapshot()
	if s.experts == nil || len(snap.Experts) == 0 {
		return snap
	}

	rows, err := s.experts.ListByIDs(ctx, snap.Experts)
	if err != nil {
		s.log.WithError(err).Warn("failed to load expert profiles")
		return snap
	}

	busy := make(map[string]bool, len(snap.Busy))
	for _, id := range snap.Busy {
		busy[id] = true
	}
	snap.Profiles = make([]models.ExpertProfile, 0, len(rows))
	for _, row := range rows {
		p, err := row.Profile()
		if err != nil {
			s.log.WithError(err).WithField("party_id", row.ID).Warn("skipping malformed expert profile")
			continue
		}
		p.Status = models.ExpertOnline
		if busy[p.ID] {
			p.Status = models.ExpertBusy
		}
		snap.Profiles = append(snap.Profiles, p)
	}
	return snap
}
