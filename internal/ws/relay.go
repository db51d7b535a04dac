package ws

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"signaling-service/internal/observability"
)

// ParticipantSource resolves a chat's participant list for broadcast
// fan-out.
type ParticipantSource interface {
	ParticipantIDs(ctx context.Context, chatID int64) ([]int64, error)
}

// Relay routes signaling envelopes between live connections. Payloads
// are transient: there is no queuing, persistence, or redelivery, and a
// target without a live connection simply misses the payload.
type Relay struct {
	registry *Registry
	chats    ParticipantSource
	log      *zap.Logger
}

// NewRelay constructs a Relay.
func NewRelay(registry *Registry, chats ParticipantSource, log *zap.Logger) *Relay {
	return &Relay{registry: registry, chats: chats, log: log}
}

// HandleInbound routes one raw envelope from an authenticated
// connection. Malformed and unroutable envelopes are dropped; nothing
// here may take down the connection loop or affect other sessions.
func (r *Relay) HandleInbound(ctx context.Context, senderID int64, raw []byte) {
	parsed, envType, err := ParseEnvelope(raw)
	if err != nil {
		observability.IncRelayEnvelope(envType, observability.OutcomeMalformed)
		r.log.Debug("dropping envelope",
			zap.Int64("sender_id", senderID),
			zap.String("envelope_type", envType),
			zap.Error(err))
		return
	}

	switch ev := parsed.(type) {
	case IceCandidate:
		r.relayCandidate(ctx, senderID, ev)
	default:
		// ParseEnvelope only yields known variants; keep the drop arm anyway.
		observability.IncRelayEnvelope(envType, observability.OutcomeDropped)
	}
}

func (r *Relay) relayCandidate(ctx context.Context, senderID int64, ev IceCandidate) {
	out := IceCandidateEvent{
		Type:      TypeIceCandidate,
		Candidate: ev.Candidate,
		ChatID:    ev.ChatID,
		SenderID:  senderID,
	}

	if ev.PeerID != 0 {
		r.sendTo(ev.PeerID, TypeIceCandidate, out)
		return
	}

	ids, err := r.chats.ParticipantIDs(ctx, ev.ChatID)
	if err != nil {
		observability.IncRelayEnvelope(TypeIceCandidate, observability.OutcomeUnroutable)
		r.log.Debug("dropping candidate for unresolvable chat",
			zap.Int64("sender_id", senderID),
			zap.Int64("chat_id", ev.ChatID),
			zap.Error(err))
		return
	}
	if !contains(ids, senderID) {
		observability.IncRelayEnvelope(TypeIceCandidate, observability.OutcomeDropped)
		r.log.Debug("dropping candidate from non-participant",
			zap.Int64("sender_id", senderID),
			zap.Int64("chat_id", ev.ChatID))
		return
	}
	for _, id := range ids {
		if id == senderID {
			continue
		}
		r.sendTo(id, TypeIceCandidate, out)
	}
}

// BroadcastToChat forwards a payload to every chat participant's live
// connection except excludeUserID. Used for message and call events.
func (r *Relay) BroadcastToChat(ctx context.Context, chatID int64, envType string, payload any, excludeUserID int64) {
	ids, err := r.chats.ParticipantIDs(ctx, chatID)
	if err != nil {
		observability.IncRelayEnvelope(envType, observability.OutcomeUnroutable)
		r.log.Warn("broadcast participant lookup failed",
			zap.Int64("chat_id", chatID),
			zap.String("envelope_type", envType),
			zap.Error(err))
		return
	}
	for _, id := range ids {
		if id == excludeUserID {
			continue
		}
		r.sendTo(id, envType, payload)
	}
}

// sendTo forwards a payload to the user's live connection, dropping it
// silently when the user is offline. A failed write closes the dead
// connection; its read loop then exits and runs the shared teardown
// (unregister plus presence flip), so that path stays the single owner
// of disconnect bookkeeping.
func (r *Relay) sendTo(userID int64, envType string, payload any) {
	client, ok := r.registry.Lookup(userID)
	if !ok {
		observability.IncRelayEnvelope(envType, observability.OutcomeDropped)
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		observability.IncRelayEnvelope(envType, observability.OutcomeMalformed)
		r.log.Error("marshal outbound envelope",
			zap.String("envelope_type", envType),
			zap.Error(err))
		return
	}

	if err := client.Send(body); err != nil {
		observability.IncRelayEnvelope(envType, observability.OutcomeDropped)
		r.log.Debug("write to signaling connection failed",
			zap.Int64("user_id", userID),
			zap.String("conn_id", client.ID),
			zap.Error(err))
		_ = client.Close()
		return
	}
	observability.IncRelayEnvelope(envType, observability.OutcomeForwarded)
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
