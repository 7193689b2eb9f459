package services

// Store key layout. Every room-scoped key expires in lock-step with the
// room's metadata record.
// The poll transport's ring buffer key lives with the bus, realtime.BufferKey.
func metaKey(roomID string) string     { return "meta:" + roomID }
func messagesKey(roomID string) string { return "messages:" + roomID }
func membersKey(roomID string) string  { return "members:" + roomID }
func historyKey(roomID string) string  { return "history:" + roomID }
