package models

// RoomMeta is the durable metadata record for a room. Its presence in the
// store is what makes the room exist; once the record is gone (explicit
// destroy or lapsed TTL) the room is gone. There is no deleted flag.
type RoomMeta struct {
	Owner     string `json:"owner"`
	CreatedAt int64  `json:"createdAt"`
}

type CreateRoomResponse struct {
	RoomID     string `json:"roomId"`
	OwnerToken string `json:"ownerToken"`
}

type JoinRoomRequest struct {
	RoomID string `json:"roomId"`
}

type JoinRoomResponse struct {
	Success   bool   `json:"success"`
	RoomID    string `json:"roomId"`
	UserToken string `json:"userToken"`
}
