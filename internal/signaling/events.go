package signaling

import "encoding/json"

// Inbound event names (client -> server).
const (
	EvRegisterExpert = "register-expert"
	EvRegisterUser   = "register-user"
	EvCallUser       = "call-user"
	EvAcceptCall     = "accept-call"
	EvRejectCall     = "reject-call"
	EvSignal         = "signal"
	EvEndCall        = "end-call"
	EvDisconnect     = "disconnect"
)

// Outbound event names (server -> client).
const (
	EvOnlineExperts = "online-experts"
	EvIncomingCall  = "incoming-call"
	EvCallAccepted  = "call-accepted"
	EvCallRejected  = "call-rejected"
	EvCallEnded     = "call-ended"
)

// Inbound is the closed set of events a live connection can emit.
type Inbound interface {
	inboundName() string
}

type RegisterExpert struct {
	ExpertID string
}

type RegisterUser struct {
	UserID string
}

type CallUser struct {
	To         string `json:"to"`
	From       string `json:"from"`
	CallerName string `json:"callerName,omitempty"`
	CallID     string `json:"callId"`
}

type AcceptCall struct {
	To     string `json:"to"`
	From   string `json:"from"`
	CallID string `json:"callId"`
}

type RejectCall struct {
	To     string `json:"to"`
	From   string `json:"from"`
	CallID string `json:"callId"`
}

// Signal carries an opaque media negotiation payload (SDP offer/answer, ICE candidate).
type Signal struct {
	To      string          `json:"to"`
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

type EndCall struct {
	To string `json:"to"`
}

// Disconnect is synthesized by the transport when a connection closes.
type Disconnect struct{}

func (RegisterExpert) inboundName() string { return EvRegisterExpert }
func (RegisterUser) inboundName() string   { return EvRegisterUser }
func (CallUser) inboundName() string       { return EvCallUser }
func (AcceptCall) inboundName() string     { return EvAcceptCall }
func (RejectCall) inboundName() string     { return EvRejectCall }
func (Signal) inboundName() string         { return EvSignal }
func (EndCall) inboundName() string        { return EvEndCall }
func (Disconnect) inboundName() string     { return EvDisconnect }

// Outbound is an event the server pushes to a connection.
type Outbound interface {
	Name() string
}

type OnlineExperts struct {
	Experts []string
}

type IncomingCall struct {
	From       string `json:"from"`
	CallerName string `json:"callerName,omitempty"`
	CallID     string `json:"callId"`
}

type CallAccepted struct {
	From   string `json:"from"`
	CallID string `json:"callId"`
}

type CallRejected struct {
	From   string `json:"from"`
	CallID string `json:"callId"`
}

type SignalRelay struct {
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

type CallEnded struct{}

func (OnlineExperts) Name() string { return EvOnlineExperts }
func (IncomingCall) Name() string  { return EvIncomingCall }
func (CallAccepted) Name() string  { return EvCallAccepted }
func (CallRejected) Name() string  { return EvCallRejected }
func (SignalRelay) Name() string   { return EvSignal }
func (CallEnded) Name() string     { return EvCallEnded }

// Delivery addresses one outbound event. Broadcast deliveries go to every open connection.
type Delivery struct {
	ConnectionID string
	Broadcast    bool
	Event        Outbound
}
