package services

import (
	"context"
	"encoding/json"
	"time"

	"burnchat-backend/internal/models"
	"burnchat-backend/internal/realtime"
	"burnchat-backend/internal/store"
	"burnchat-backend/internal/utils"

	"github.com/google/uuid"
)

// MessageService owns the append-only message log of a room. Every append
// re-arms the auxiliary room keys to the room's current remaining TTL so the
// whole room expires in lock-step; the room's own TTL is never extended.
type MessageService struct {
	store store.Store
	bus   realtime.Bus
}

func NewMessageService(st store.Store, bus realtime.Bus) *MessageService {
	return &MessageService{store: st, bus: bus}
}

// Append persists a new message (author token embedded for later redaction)
// and publishes it, token stripped, on the room's channel.
func (s *MessageService) Append(ctx context.Context, roomID string, req models.PostMessageRequest, authorToken string) (models.Message, error) {
	exists, err := s.store.Exists(ctx, metaKey(roomID))
	if err != nil {
		return models.Message{}, err
	}
	if !exists {
		return models.Message{}, ErrRoomNotFound
	}

	msg := models.Message{
		ID:        uuid.NewString(),
		Sender:    req.Sender,
		Text:      req.Text,
		Timestamp: time.Now().UnixMilli(),
		RoomID:    roomID,
		ReplyTo:   req.ReplyTo,
		Encrypted: req.Encrypted,
	}

	stored := msg
	stored.Token = authorToken
	raw, err := json.Marshal(stored)
	if err != nil {
		return models.Message{}, err
	}
	if err := s.store.RPush(ctx, messagesKey(roomID), string(raw)); err != nil {
		return models.Message{}, err
	}

	if err := s.bus.Publish(ctx, roomID, realtime.EventMessage, msg); err != nil {
		return models.Message{}, err
	}

	// Housekeeping: copy the room's remaining TTL onto the auxiliary keys.
	remaining, err := s.store.TTL(ctx, metaKey(roomID))
	if err != nil {
		return models.Message{}, err
	}
	if remaining > 0 {
		ttl := time.Duration(remaining) * time.Second
		err = s.store.ExpireMany(ctx, ttl,
			messagesKey(roomID),
			membersKey(roomID),
			historyKey(roomID),
			roomID,
		)
		if err != nil {
			return models.Message{}, err
		}
	}
	return msg, nil
}

// List returns the room's messages in append order. The author token is
// included only on the requester's own messages so a client can recognize
// its authorship without ever seeing another user's token.
func (s *MessageService) List(ctx context.Context, roomID, requesterToken string) ([]models.Message, error) {
	exists, err := s.store.Exists(ctx, metaKey(roomID))
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrRoomNotFound
	}

	raw, err := s.store.LRange(ctx, messagesKey(roomID), 0, -1)
	if err != nil {
		return nil, err
	}

	messages := make([]models.Message, 0, len(raw))
	for _, entry := range raw {
		var msg models.Message
		if err := utils.SafeJSONParse([]byte(entry), &msg); err != nil {
			utils.LogError(err, "message decode")
			continue
		}
		if msg.Token != requesterToken {
			msg.Token = ""
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Delete removes the message(s) with the given id, by id rather than by
// position, and announces the removal. Owner only.
func (s *MessageService) Delete(ctx context.Context, roomID, messageID, requesterToken string) error {
	owner, ok, err := s.store.HGet(ctx, metaKey(roomID), "owner")
	if err != nil {
		return err
	}
	if !ok {
		return ErrRoomNotFound
	}
	if requesterToken != owner {
		return ErrUnauthorized
	}

	raw, err := s.store.LRange(ctx, messagesKey(roomID), 0, -1)
	if err != nil {
		return err
	}
	for _, entry := range raw {
		var msg models.Message
		if err := utils.SafeJSONParse([]byte(entry), &msg); err != nil {
			continue
		}
		if msg.ID != messageID {
			continue
		}
		if _, err := s.store.LRem(ctx, messagesKey(roomID), 1, entry); err != nil {
			return err
		}
	}

	return s.bus.Publish(ctx, roomID, realtime.EventDelete, realtime.DeletePayload{ID: messageID})
}
