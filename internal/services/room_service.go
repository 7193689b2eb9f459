package services

import (
	"context"
	"strconv"
	"time"

	"burnchat-backend/internal/models"
	"burnchat-backend/internal/realtime"
	"burnchat-backend/internal/store"
	"burnchat-backend/internal/token"

	"github.com/google/uuid"
)

// RoomService owns the room lifecycle: Absent -> Active(ttl>0) -> Absent.
// The store is the single source of truth; no in-process locks are taken.
type RoomService struct {
	store   store.Store
	bus     realtime.Bus
	roomTTL time.Duration
}

func NewRoomService(st store.Store, bus realtime.Bus, roomTTL time.Duration) *RoomService {
	return &RoomService{store: st, bus: bus, roomTTL: roomTTL}
}

// Create allocates a room id and owner token, writes the metadata record
// with the configured TTL and seeds the member set with the owner.
func (s *RoomService) Create(ctx context.Context) (string, string, error) {
	roomID := uuid.NewString()
	ownerToken := token.NewOwner()

	fields := map[string]string{
		"owner":     ownerToken,
		"createdAt": strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	if err := s.store.HSetEx(ctx, metaKey(roomID), fields, s.roomTTL); err != nil {
		return "", "", err
	}
	if err := s.store.SAddEx(ctx, membersKey(roomID), s.roomTTL, ownerToken); err != nil {
		return "", "", err
	}
	return roomID, ownerToken, nil
}

// Lookup is total: a missing metadata record means Absent, whether the room
// was destroyed or its TTL lapsed.
func (s *RoomService) Lookup(ctx context.Context, roomID string) (models.RoomMeta, bool, error) {
	fields, err := s.store.HGetAll(ctx, metaKey(roomID))
	if err != nil {
		return models.RoomMeta{}, false, err
	}
	owner, ok := fields["owner"]
	if !ok {
		return models.RoomMeta{}, false, nil
	}
	createdAt, _ := strconv.ParseInt(fields["createdAt"], 10, 64)
	return models.RoomMeta{Owner: owner, CreatedAt: createdAt}, true, nil
}

// Join admits a new member. Membership is a single atomic add-to-set so
// concurrent joins never lose entries. The member set inherits the room's
// current remaining TTL, never more.
func (s *RoomService) Join(ctx context.Context, roomID string) (string, error) {
	remaining, err := s.store.TTL(ctx, metaKey(roomID))
	if err != nil {
		return "", err
	}
	if remaining == store.TTLKeyAbsent || remaining == 0 {
		return "", ErrRoomNotFound
	}

	memberToken := token.NewMember()
	ttl := s.roomTTL
	if remaining > 0 {
		ttl = time.Duration(remaining) * time.Second
	}
	if err := s.store.SAddEx(ctx, membersKey(roomID), ttl, memberToken); err != nil {
		return "", err
	}
	return memberToken, nil
}

// Classify resolves tok's role for the room.
func (s *RoomService) Classify(ctx context.Context, roomID, tok string) (token.Role, error) {
	meta, ok, err := s.Lookup(ctx, roomID)
	if err != nil {
		return token.RoleNone, err
	}
	if !ok {
		return token.RoleNone, ErrRoomNotFound
	}
	isMember, err := s.store.SIsMember(ctx, membersKey(roomID), tok)
	if err != nil {
		return token.RoleNone, err
	}
	return token.Classify(tok, meta.Owner, isMember), nil
}

// IsOwner reports whether tok is the room's owner token.
func (s *RoomService) IsOwner(ctx context.Context, roomID, tok string) (bool, error) {
	role, err := s.Classify(ctx, roomID, tok)
	if err != nil {
		return false, err
	}
	return role == token.RoleOwner, nil
}

// RemainingTTL returns the room's remaining seconds, 0 if absent or lapsed.
func (s *RoomService) RemainingTTL(ctx context.Context, roomID string) (int64, error) {
	ttl, err := s.store.TTL(ctx, metaKey(roomID))
	if err != nil {
		return 0, err
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

// destroyedBufferLinger bounds how long a destroyed room's event buffer
// stays readable. Long enough for every poll subscriber to pick up the
// destroy event, far shorter than the buffer's normal TTL.
const destroyedBufferLinger = time.Minute

// Destroy tears the room down: destroy event first so live subscribers hear
// about it, then every room-scoped key in one pipelined delete. The poll
// transport's ring buffer is exempt from the delete because it carries the
// destroy event itself; it is left to lapse on a shortened expiry.
func (s *RoomService) Destroy(ctx context.Context, roomID, requesterToken string) error {
	meta, ok, err := s.Lookup(ctx, roomID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRoomNotFound
	}
	if requesterToken != meta.Owner {
		return ErrUnauthorized
	}

	if err := s.bus.Publish(ctx, roomID, realtime.EventDestroy, realtime.DestroyPayload{IsDestroyed: true}); err != nil {
		return err
	}
	if err := s.store.Del(ctx,
		roomID,
		metaKey(roomID),
		messagesKey(roomID),
		membersKey(roomID),
		historyKey(roomID),
	); err != nil {
		return err
	}
	return s.store.Expire(ctx, realtime.BufferKey(roomID), destroyedBufferLinger)
}
