package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Presence status tiers derived from a user's record at query time.
const (
	PresenceOnline  = "online"
	PresenceAway    = "away"
	PresenceOffline = "offline"
)

// PresenceRecord holds per-user presence state: an online flag set by
// explicit login/logout (or a heartbeat) and the last activity timestamp.
// The flag is never decayed by a background job; reachability queries apply
// the timeout window themselves.
type PresenceRecord struct {
	UserID   primitive.ObjectID `json:"userId" bson:"_id"`
	Online   bool               `json:"online" bson:"online"`
	LastSeen time.Time          `json:"lastSeen" bson:"lastSeen"`
}

// PresenceStatusResponse is what the presence status endpoint returns.
type PresenceStatusResponse struct {
	UserID   string    `json:"userId"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"lastSeen"`
}
