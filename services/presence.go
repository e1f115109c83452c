package services

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskhive/taskhive_backend/config"
	"github.com/taskhive/taskhive_backend/models"
)

const (
	defaultOnlineTimeout = 5 * time.Minute
	defaultAwayTimeout   = 30 * time.Minute
)

// PresenceStore persists per-user presence records. lastSeen only moves
// forward, so concurrent heartbeats from multiple sessions converge to the
// latest timestamp regardless of write order.
type PresenceStore interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*models.PresenceRecord, error)
	SetOnline(ctx context.Context, userID primitive.ObjectID, at time.Time) error
	SetOffline(ctx context.Context, userID primitive.ObjectID, at time.Time) error
}

// PresenceTracker answers whether a user is currently reachable. The online
// flag is only ever flipped by explicit calls; staleness is applied at query
// time, never by a background sweep, so a cleanup job can never race a fresh
// heartbeat.
type PresenceTracker struct {
	store         PresenceStore
	onlineTimeout time.Duration
	awayTimeout   time.Duration
	now           func() time.Time
}

func NewPresenceTracker(store PresenceStore) *PresenceTracker {
	return &PresenceTracker{
		store:         store,
		onlineTimeout: envDuration("ONLINE_TIMEOUT_MINUTES", defaultOnlineTimeout),
		awayTimeout:   envDuration("AWAY_TIMEOUT_MINUTES", defaultAwayTimeout),
		now:           time.Now,
	}
}

func envDuration(name string, fallback time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			return time.Duration(minutes) * time.Minute
		}
	}
	return fallback
}

// SetOnline marks the user online. Idempotent.
func (t *PresenceTracker) SetOnline(ctx context.Context, userID primitive.ObjectID) error {
	return t.store.SetOnline(ctx, userID, t.now())
}

// SetOffline marks the user offline. Idempotent.
func (t *PresenceTracker) SetOffline(ctx context.Context, userID primitive.ObjectID) error {
	return t.store.SetOffline(ctx, userID, t.now())
}

// Heartbeat records activity. A heartbeat is itself proof of activity, so a
// stored offline state flips back to online.
func (t *PresenceTracker) Heartbeat(ctx context.Context, userID primitive.ObjectID) error {
	return t.store.SetOnline(ctx, userID, t.now())
}

// IsReachable reports whether the user is online and was seen within the
// online timeout window. A record flagged online with no lastSeen yet counts
// as reachable: that is the grace period right after login.
func (t *PresenceTracker) IsReachable(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	rec, err := t.store.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	if rec == nil || !rec.Online {
		return false, nil
	}
	if rec.LastSeen.IsZero() {
		return true, nil
	}
	return t.now().Sub(rec.LastSeen) <= t.onlineTimeout, nil
}

// Status derives the presence tier: online if reachable, away if last seen
// within the away window, offline otherwise.
func (t *PresenceTracker) Status(ctx context.Context, userID primitive.ObjectID) (string, time.Time, error) {
	rec, err := t.store.Get(ctx, userID)
	if err != nil {
		return "", time.Time{}, err
	}
	if rec == nil {
		return models.PresenceOffline, time.Time{}, nil
	}
	if rec.Online && (rec.LastSeen.IsZero() || t.now().Sub(rec.LastSeen) <= t.onlineTimeout) {
		return models.PresenceOnline, rec.LastSeen, nil
	}
	if !rec.LastSeen.IsZero() && t.now().Sub(rec.LastSeen) <= t.awayTimeout {
		return models.PresenceAway, rec.LastSeen, nil
	}
	return models.PresenceOffline, rec.LastSeen, nil
}

// MongoPresenceStore keeps presence records in the presence collection, one
// document per user.
type MongoPresenceStore struct {
	collection *mongo.Collection
}

func NewMongoPresenceStore(db *mongo.Client) *MongoPresenceStore {
	return &MongoPresenceStore{collection: config.GetCollection(db, "presence")}
}

func (s *MongoPresenceStore) Get(ctx context.Context, userID primitive.ObjectID) (*models.PresenceRecord, error) {
	var rec models.PresenceRecord
	err := s.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load presence record: %w", err)
	}
	return &rec, nil
}

func (s *MongoPresenceStore) SetOnline(ctx context.Context, userID primitive.ObjectID, at time.Time) error {
	return s.upsert(ctx, userID, true, at)
}

func (s *MongoPresenceStore) SetOffline(ctx context.Context, userID primitive.ObjectID, at time.Time) error {
	return s.upsert(ctx, userID, false, at)
}

func (s *MongoPresenceStore) upsert(ctx context.Context, userID primitive.ObjectID, online bool, at time.Time) error {
	// $max keeps lastSeen monotonic under concurrent session writes.
	update := bson.M{
		"$set": bson.M{"online": online},
		"$max": bson.M{"lastSeen": at},
	}
	_, err := s.collection.UpdateOne(ctx, bson.M{"_id": userID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update presence record: %w", err)
	}
	return nil
}
