package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"signaling-service/internal/models"
)

// Envelope types carried over the signaling connection.
const (
	TypeMessage      = "message"
	TypeIceCandidate = "ice_candidate"
	TypeCallRequest  = "call_request"
	TypeCallAccepted = "call_accepted"
	TypeCallRejected = "call_rejected"
	TypeCallEnded    = "call_ended"
)

var (
	ErrUnknownEnvelope = errors.New("unknown envelope type")
	ErrBadEnvelope     = errors.New("malformed envelope")
)

// inboundEnvelope is the raw wire shape of client-to-server frames.
type inboundEnvelope struct {
	Type      string          `json:"type"`
	Candidate json.RawMessage `json:"candidate"`
	ChatID    int64           `json:"chatId"`
	PeerID    int64           `json:"peerId"`
}

// IceCandidate is a connectivity-negotiation datum relayed verbatim.
// Either PeerID (direct) or ChatID (broadcast to the chat's other
// participants) selects the target.
type IceCandidate struct {
	Candidate json.RawMessage
	ChatID    int64
	PeerID    int64
}

// ParseEnvelope decodes one inbound frame into its typed variant. The
// returned string is the envelope type as far as it could be determined,
// for logging and metrics even when parsing fails.
func ParseEnvelope(raw []byte) (any, string, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, "invalid", fmt.Errorf("%w: %v", ErrBadEnvelope, err)
	}

	switch env.Type {
	case TypeIceCandidate:
		if len(env.Candidate) == 0 {
			return nil, env.Type, fmt.Errorf("%w: ice_candidate without candidate", ErrBadEnvelope)
		}
		if env.PeerID == 0 && env.ChatID == 0 {
			return nil, env.Type, fmt.Errorf("%w: ice_candidate without target", ErrBadEnvelope)
		}
		return IceCandidate{Candidate: env.Candidate, ChatID: env.ChatID, PeerID: env.PeerID}, env.Type, nil
	case "":
		return nil, "invalid", fmt.Errorf("%w: missing type", ErrBadEnvelope)
	default:
		return nil, env.Type, fmt.Errorf("%w: %q", ErrUnknownEnvelope, env.Type)
	}
}

// IceCandidateEvent is the server-to-client form of a relayed candidate,
// tagged with the sender's id.
type IceCandidateEvent struct {
	Type      string          `json:"type"`
	Candidate json.RawMessage `json:"candidate"`
	ChatID    int64           `json:"chatId,omitempty"`
	SenderID  int64           `json:"senderId"`
}

// MessageEvent notifies participants of a newly appended chat message.
type MessageEvent struct {
	Type    string          `json:"type"`
	Message *models.Message `json:"message"`
}

// CallEvent notifies participants of a call lifecycle transition. The
// fields mirror the Call record parts relevant to the transition.
type CallEvent struct {
	Type     string `json:"type"`
	ChatID   int64  `json:"chatId"`
	CallID   int64  `json:"callId"`
	CallType string `json:"callType,omitempty"`
	CallerID int64  `json:"callerId,omitempty"`
	UserID   int64  `json:"userId,omitempty"`
	Duration *int64 `json:"duration,omitempty"`
}
