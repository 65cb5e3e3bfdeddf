// Package signaling routes call-control and media negotiation events between
// the two parties of a call.
//
// Events are addressed by durable party id and resolved against the presence
// registry at send time, so a party that reconnects mid-call keeps receiving
// events on its new connection. Forwarding is best-effort: an event whose
// target is not registered is dropped and logged, never surfaced as an error.
package signaling

import (
	"github.com/sirupsen/logrus"

	"github.com/nikhilkumar000/Intern/internal/logger"
	"github.com/nikhilkumar000/Intern/internal/metrics"
	"github.com/nikhilkumar000/Intern/internal/presence"
)

// PresenceListener is told when a party comes online or goes offline.
// Implementations must not block.
type PresenceListener interface {
	PresenceChanged(e presence.Entry, online bool)
}

type Router struct {
	registry *presence.Registry
	listener PresenceListener
	log      *logrus.Logger
}

func NewRouter(registry *presence.Registry, listener PresenceListener, log *logrus.Logger) *Router {
	if log == nil {
		log = logger.Discard()
	}
	return &Router{registry: registry, listener: listener, log: log}
}

// Route applies one inbound event from connectionID and returns the deliveries it produces.
func (r *Router) Route(connectionID string, in Inbound) []Delivery {
	switch ev := in.(type) {
	case RegisterExpert:
		return r.register(connectionID, ev.ExpertID, presence.RoleExpert, EvRegisterExpert)
	case RegisterUser:
		return r.register(connectionID, ev.UserID, presence.RoleCaller, EvRegisterUser)
	case CallUser:
		return r.forward(connectionID, EvCallUser, ev.To, ev.CallID, func(from string) Outbound {
			return IncomingCall{From: from, CallerName: ev.CallerName, CallID: ev.CallID}
		}, ev.From)
	case AcceptCall:
		return r.forward(connectionID, EvAcceptCall, ev.To, ev.CallID, func(from string) Outbound {
			return CallAccepted{From: from, CallID: ev.CallID}
		}, ev.From)
	case RejectCall:
		return r.forward(connectionID, EvRejectCall, ev.To, ev.CallID, func(from string) Outbound {
			return CallRejected{From: from, CallID: ev.CallID}
		}, ev.From)
	case Signal:
		return r.forward(connectionID, EvSignal, ev.To, "", func(from string) Outbound {
			return SignalRelay{From: from, Payload: ev.Payload}
		}, ev.From)
	case EndCall:
		return r.forward(connectionID, EvEndCall, ev.To, "", func(string) Outbound {
			return CallEnded{}
		}, "")
	case Disconnect:
		return r.disconnect(connectionID)
	default:
		metrics.SignalingEvents.WithLabelValues("unknown", "invalid").Inc()
		return nil
	}
}

func (r *Router) register(connectionID, partyID string, role presence.Role, event string) []Delivery {
	if partyID == "" {
		metrics.SignalingEvents.WithLabelValues(event, "invalid").Inc()
		r.log.WithField("connection_id", connectionID).Warn("register without party id")
		return nil
	}

	displaced, wasDisplaced := r.registry.Register(partyID, role, connectionID)
	metrics.SignalingEvents.WithLabelValues(event, "registered").Inc()
	r.log.WithFields(logrus.Fields{
		"connection_id": connectionID,
		"party_id":      partyID,
		"role":          role,
	}).Info("party registered")

	if wasDisplaced {
		metrics.SignalingEvents.WithLabelValues(event, "displaced").Inc()
		r.log.WithFields(logrus.Fields{
			"connection_id": connectionID,
			"party_id":      displaced.PartyID,
			"role":          displaced.Role,
		}).Info("party displaced by re-registration")
		r.notify(displaced, false)
	}
	r.notify(presence.Entry{PartyID: partyID, Role: role, ConnectionID: connectionID}, true)

	snapshot := r.snapshot()
	if role == presence.RoleExpert || (wasDisplaced && displaced.Role == presence.RoleExpert) {
		return []Delivery{{Broadcast: true, Event: snapshot}}
	}
	return []Delivery{{ConnectionID: connectionID, Event: snapshot}}
}

func (r *Router) disconnect(connectionID string) []Delivery {
	e, ok := r.registry.Unregister(connectionID)
	if !ok {
		metrics.SignalingEvents.WithLabelValues(EvDisconnect, "ignored").Inc()
		return nil
	}

	metrics.SignalingEvents.WithLabelValues(EvDisconnect, "unregistered").Inc()
	r.log.WithFields(logrus.Fields{
		"connection_id": connectionID,
		"party_id":      e.PartyID,
		"role":          e.Role,
	}).Info("party unregistered")

	r.notify(e, false)
	return []Delivery{{Broadcast: true, Event: r.snapshot()}}
}

func (r *Router) notify(e presence.Entry, online bool) {
	if r.listener != nil {
		r.listener.PresenceChanged(e, online)
	}
}

// snapshot lists online experts and refreshes the registry gauges.
func (r *Router) snapshot() OnlineExperts {
	experts := r.registry.Parties(presence.RoleExpert)
	metrics.RegisteredParties.WithLabelValues(string(presence.RoleExpert)).Set(float64(len(experts)))
	metrics.RegisteredParties.WithLabelValues(string(presence.RoleCaller)).Set(float64(r.registry.Len() - len(experts)))
	return OnlineExperts{Experts: experts}
}

// forward resolves to at send time and addresses exactly one delivery to it.
func (r *Router) forward(connectionID, event, to, callID string, build func(from string) Outbound, claimedFrom string) []Delivery {
	fields := logrus.Fields{
		"event":         event,
		"connection_id": connectionID,
		"to":            to,
	}
	if callID != "" {
		fields["call_id"] = callID
	}

	if to == "" {
		metrics.SignalingEvents.WithLabelValues(event, "invalid").Inc()
		r.log.WithFields(fields).Warn("signaling event without target")
		return nil
	}

	target, ok := r.registry.Resolve(to)
	if !ok {
		metrics.SignalingEvents.WithLabelValues(event, "dropped").Inc()
		r.log.WithFields(fields).Info("target not reachable, dropping")
		return nil
	}

	metrics.SignalingEvents.WithLabelValues(event, "forwarded").Inc()
	r.log.WithFields(fields).Debug("forwarding")
	return []Delivery{{ConnectionID: target, Event: build(r.sender(connectionID, claimedFrom))}}
}

// sender prefers the party registered on the emitting connection over the claimed id.
func (r *Router) sender(connectionID, claimed string) string {
	if p, ok := r.registry.PartyOf(connectionID); ok {
		return p
	}
	return claimed
}
