package signaling

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Every frame on the live channel is {"event": "<name>", "data": <payload>}.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

var ErrUnknownEvent = errors.New("unknown event")

// Decode parses one inbound frame.
func Decode(frame []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Event {
	case EvRegisterExpert:
		id, err := decodeID(env.Data, "expertId")
		return RegisterExpert{ExpertID: id}, err
	case EvRegisterUser:
		id, err := decodeID(env.Data, "userId")
		return RegisterUser{UserID: id}, err
	case EvCallUser:
		var ev CallUser
		return ev, decodeInto(env, &ev)
	case EvAcceptCall:
		var ev AcceptCall
		return ev, decodeInto(env, &ev)
	case EvRejectCall:
		var ev RejectCall
		return ev, decodeInto(env, &ev)
	case EvSignal:
		var ev Signal
		return ev, decodeInto(env, &ev)
	case EvEndCall:
		var ev EndCall
		return ev, decodeInto(env, &ev)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
}

func decodeInto(env envelope, dst any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%s: missing data", env.Event)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return fmt.Errorf("%s: %w", env.Event, err)
	}
	return nil
}

// decodeID accepts either a bare JSON string or an object carrying key.
func decodeID(raw json.RawMessage, key string) (string, error) {
	if len(raw) == 0 {
		return "", errors.New("missing id")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s), nil
	}
	var obj map[string]string
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("invalid id payload: %w", err)
	}
	return strings.TrimSpace(obj[key]), nil
}

// Encode renders an outbound event as a frame.
func Encode(ev Outbound) ([]byte, error) {
	var data any = ev
	switch v := ev.(type) {
	case OnlineExperts:
		experts := v.Experts
		if experts == nil {
			experts = []string{}
		}
		data = experts
	case CallEnded:
		data = nil
	}

	env := struct {
		Event string `json:"event"`
		Data  any    `json:"data,omitempty"`
	}{Event: ev.Name(), Data: data}
	return json.Marshal(env)
}
