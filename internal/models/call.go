package models

import "time"

type CallStatus string

const (
	CallRinging  CallStatus = "ringing"
	CallAccepted CallStatus = "accepted"
	CallOngoing  CallStatus = "ongoing"
	CallEnded    CallStatus = "ended"
	CallRejected CallStatus = "rejected"
	CallMissed   CallStatus = "missed"
	CallFailed   CallStatus = "failed"
)

// transitions lists, for every target status, the statuses it may be entered from.
var transitions = map[CallStatus][]CallStatus{
	CallAccepted: {CallRinging},
	CallOngoing:  {CallAccepted},
	CallEnded:    {CallRinging, CallAccepted, CallOngoing},
	CallRejected: {CallRinging},
	CallMissed:   {CallRinging},
	CallFailed:   {CallRinging, CallAccepted, CallOngoing},
}

func (s CallStatus) Valid() bool {
	return s == CallRinging || transitions[s] != nil
}

func (s CallStatus) Terminal() bool {
	switch s {
	case CallEnded, CallRejected, CallMissed, CallFailed:
		return true
	}
	return false
}

// AllowedFrom returns the statuses a session must be in to move to s.
func (s CallStatus) AllowedFrom() []CallStatus {
	return transitions[s]
}

func (s CallStatus) CanTransition(to CallStatus) bool {
	for _, from := range transitions[to] {
		if from == s {
			return true
		}
	}
	return false
}

type Initiator string

const (
	InitiatedByUser   Initiator = "user"
	InitiatedByExpert Initiator = "expert"
)

type EndReason string

const (
	EndUserEnded    EndReason = "user-ended"
	EndExpertEnded  EndReason = "expert-ended"
	EndNetworkError EndReason = "network-error"
	EndTimeout      EndReason = "timeout"
	EndUnknown      EndReason = "unknown"
)

func (r EndReason) Valid() bool {
	switch r {
	case EndUserEnded, EndExpertEnded, EndNetworkError, EndTimeout, EndUnknown:
		return true
	}
	return false
}

// CallSession is the audit record of one call attempt. Terminal sessions are never modified.
type CallSession struct {
	ID          string     `bson:"_id" json:"id"` // uuid v4
	CallerID    string     `bson:"caller_id" json:"callerId"`
	ExpertID    string     `bson:"expert_id" json:"expertId"`
	InitiatedBy Initiator  `bson:"initiated_by" json:"initiatedBy"`
	Status      CallStatus `bson:"status" json:"status"`

	StartedAt *time.Time `bson:"started_at,omitempty" json:"startedAt,omitempty"`
	EndedAt   *time.Time `bson:"ended_at,omitempty" json:"endedAt,omitempty"`

	DurationSeconds *int64    `bson:"duration_seconds,omitempty" json:"durationSeconds,omitempty"`
	EndReason       EndReason `bson:"end_reason,omitempty" json:"endReason,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Terminate computes the terminal fields for a move into status at now.
// durationSeconds stays nil when the session has no start time.
func (c *CallSession) Terminate(status CallStatus, reason EndReason, now time.Time) {
	c.Status = status
	c.EndedAt = &now
	c.EndReason = reason
	c.UpdatedAt = now
	c.DurationSeconds = nil
	if c.StartedAt != nil {
		d := int64(now.Sub(*c.StartedAt) / time.Second)
		if d < 0 {
			d = 0
		}
		c.DurationSeconds = &d
	}
}
