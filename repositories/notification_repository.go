package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskhive/taskhive_backend/config"
	"github.com/taskhive/taskhive_backend/models"
)

// NotificationRepository is the system of record for notifications. All
// mutation paths are scoped to a single recipient, so there is no cross-user
// contention at this layer.
type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Client) *NotificationRepository {
	return &NotificationRepository{
		collection: config.GetCollection(db, "notifications"),
	}
}

func (r *NotificationRepository) Insert(ctx context.Context, notification *models.Notification) error {
	if notification.ID.IsZero() {
		notification.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, notification)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func filterQuery(userID primitive.ObjectID, filter string) bson.M {
	query := bson.M{"userId": userID}
	switch filter {
	case models.FilterUnread:
		query["isRead"] = false
	case models.FilterBookmarked:
		query["isBookmarked"] = true
	case models.FilterArchived:
		query["isArchived"] = true
	case models.FilterActive:
		query["isArchived"] = false
	}
	return query
}

// FindByUser returns one page of a user's notifications, newest first,
// along with the total count for the filter.
func (r *NotificationRepository) FindByUser(ctx context.Context, userID primitive.ObjectID, filter string, page, limit int64) ([]models.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	query := filterQuery(userID, filter)

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, 0, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, total, nil
}

// FindUnread returns up to limit unread notifications, newest first. Used
// for the login reconciliation batch.
func (r *NotificationRepository) FindUnread(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID, "isRead": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find unread notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, nil
}

func (r *NotificationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	var notification models.Notification
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&notification)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find notification: %w", err)
	}
	return &notification, nil
}

// CountUnread is the authoritative unread count used to rebuild the cache.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"userId": userID, "isRead": false})
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// CountUnreadByCategory aggregates unread counts per notification kind and
// folds them into display categories.
func (r *NotificationRepository) CountUnreadByCategory(ctx context.Context, userID primitive.ObjectID) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": userID, "isRead": false}}},
		{{Key: "$group", Value: bson.M{"_id": "$kind", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate unread counts: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Kind  string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode unread counts: %w", err)
	}

	byCategory := map[string]int64{}
	for _, row := range rows {
		byCategory[models.KindCategory(row.Kind)] += row.Count
	}
	return byCategory, nil
}

// MarkRead flips the given notifications to read and returns how many rows
// actually transitioned. The isRead filter makes re-marking idempotent: ids
// that are already read, or belong to someone else, match nothing.
func (r *NotificationRepository) MarkRead(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	now := time.Now()
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "userId": userID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "readAt": now}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.ModifiedCount, nil
}

// MarkAllRead flips every unread notification of the user and returns the
// transitioned count.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	now := time.Now()
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"userId": userID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "readAt": now}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications read: %w", err)
	}
	return result.ModifiedCount, nil
}

// CountForeign reports how many of the given ids exist but belong to a
// different user. Used for ownership verification on archive/delete paths.
func (r *NotificationRepository) CountForeign(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "userId": bson.M{"$ne": userID}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to verify notification ownership: %w", err)
	}
	return count, nil
}

func (r *NotificationRepository) SetBookmarked(ctx context.Context, userID, id primitive.ObjectID, bookmarked bool) error {
	update := bson.M{"$set": bson.M{"isBookmarked": bookmarked}}
	if bookmarked {
		update["$set"].(bson.M)["bookmarkedAt"] = time.Now()
	} else {
		update = bson.M{
			"$set":   bson.M{"isBookmarked": false},
			"$unset": bson.M{"bookmarkedAt": ""},
		}
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "userId": userID}, update)
	if err != nil {
		return fmt.Errorf("failed to update bookmark flag: %w", err)
	}
	return nil
}

// SetArchived flips the archive flag for the given notifications. Archiving
// does not touch the unread state: the two are independent axes.
func (r *NotificationRepository) SetArchived(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID, archived bool) (int64, error) {
	update := bson.M{"$set": bson.M{"isArchived": archived, "archivedAt": time.Now()}}
	if !archived {
		update = bson.M{
			"$set":   bson.M{"isArchived": false},
			"$unset": bson.M{"archivedAt": ""},
		}
	}
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "userId": userID},
		update,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update archive flag: %w", err)
	}
	return result.ModifiedCount, nil
}

// Delete removes the given notifications and reports (deleted, deletedUnread).
// Unread rows are deleted first through their own filter, so whether a row
// counts against the unread counter is decided by the delete itself - there
// is no separate read that a concurrent mark-as-read could slip between.
func (r *NotificationRepository) Delete(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, int64, error) {
	unreadResult, err := r.collection.DeleteMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "userId": userID, "isRead": false},
	)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to delete unread notifications: %w", err)
	}

	readResult, err := r.collection.DeleteMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}, "userId": userID},
	)
	if err != nil {
		return unreadResult.DeletedCount, unreadResult.DeletedCount,
			fmt.Errorf("failed to delete notifications: %w", err)
	}

	deleted := unreadResult.DeletedCount + readResult.DeletedCount
	return deleted, unreadResult.DeletedCount, nil
}
