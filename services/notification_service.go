package services

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhive/taskhive_backend/models"
)

// syncBatchLimit caps how many queued notifications are replayed over the
// live channel on login. Anything older is still reachable through the
// paged list endpoints.
const syncBatchLimit = 50

// deliveryTimeout bounds the asynchronous delivery tail of a create call.
const deliveryTimeout = 15 * time.Second

// NotificationStore is the durable system of record for notifications. The
// production implementation is the Mongo-backed NotificationRepository;
// tests inject in-memory fakes.
type NotificationStore interface {
	Insert(ctx context.Context, notification *models.Notification) error
	FindByUser(ctx context.Context, userID primitive.ObjectID, filter string, page, limit int64) ([]models.Notification, int64, error)
	FindUnread(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Notification, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error)
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
	CountUnreadByCategory(ctx context.Context, userID primitive.ObjectID) (map[string]int64, error)
	MarkRead(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error)
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
	CountForeign(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error)
	SetBookmarked(ctx context.Context, userID, id primitive.ObjectID, bookmarked bool) error
	SetArchived(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID, archived bool) (int64, error)
	Delete(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (deleted, deletedUnread int64, err error)
}

// UserStore is the slice of the user store the notification service needs.
type UserStore interface {
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
}

// NotificationService coordinates the durable store, the unread counter
// cache, presence, and the two delivery channels. It is the only writer of
// notification lifecycle flags and the only mutator of the counter cache.
type NotificationService struct {
	store    NotificationStore
	users    UserStore
	counter  UnreadCounter
	presence *PresenceTracker
	live     LiveChannel
	offline  OfflineChannel
}

func NewNotificationService(store NotificationStore, users UserStore, counter UnreadCounter, presence *PresenceTracker, live LiveChannel, offline OfflineChannel) *NotificationService {
	return &NotificationService{
		store:    store,
		users:    users,
		counter:  counter,
		presence: presence,
		live:     live,
		offline:  offline,
	}
}

// CreateAndSend durably records a notification and kicks off best-effort
// delivery. Phase 1 (persist + counter increment) is synchronous and
// all-or-nothing at the durability boundary: a failed insert mutates
// nothing and delivers nothing. Phase 2 (delivery) runs on its own
// goroutine and can never fail the caller.
func (s *NotificationService) CreateAndSend(ctx context.Context, req models.SendNotificationRequest) (*models.Notification, error) {
	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		return nil, ErrNotFound
	}
	if !models.IsValidKind(req.Kind) {
		return nil, ErrInvalidKind
	}

	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	notification := &models.Notification{
		ID:           primitive.NewObjectID(),
		UserID:       userID,
		Title:        req.Title,
		Message:      req.Message,
		Kind:         req.Kind,
		Data:         req.Data,
		ActionURL:    req.ActionURL,
		SenderName:   req.SenderName,
		SenderAvatar: req.SenderAvatar,
		Priority:     req.Priority,
		IsRead:       false,
		CreatedAt:    time.Now(),
	}
	if notification.Priority == 0 {
		notification.Priority = models.DefaultPriority(req.Kind)
	}
	if req.ReferenceType != "" && req.ReferenceID != "" {
		if refID, err := primitive.ObjectIDFromHex(req.ReferenceID); err == nil {
			notification.Reference = &models.Reference{Type: req.ReferenceType, ID: refID}
		}
	}
	if req.ExpiresInHours > 0 {
		expiry := notification.CreatedAt.Add(time.Duration(req.ExpiresInHours) * time.Hour)
		notification.ExpiresAt = &expiry
	}

	if err := s.store.Insert(ctx, notification); err != nil {
		return nil, err
	}

	if err := s.counter.Increment(ctx, userID, 1); err != nil {
		log.Printf("Error incrementing unread counter for user %s: %v", userID.Hex(), err)
	}

	go s.deliver(notification)

	return notification, nil
}

// deliver is the asynchronous tail of CreateAndSend. Each channel attempt is
// one-shot; the persisted row is the retry mechanism.
func (s *NotificationService) deliver(notification *models.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	userID := notification.UserID

	reachable, err := s.presence.IsReachable(ctx, userID)
	if err != nil {
		log.Printf("Error checking reachability for user %s: %v", userID.Hex(), err)
		reachable = false
	}

	var liveOutcome DeliveryOutcome
	if reachable {
		if err := s.live.SendNotificationToUser(userID, notification); err != nil {
			liveOutcome = failed("live", err)
		} else {
			liveOutcome = delivered("live")
			s.pushUnreadCount(ctx, userID)
		}
	} else {
		liveOutcome = skipped("live", "user not reachable")
	}
	s.logOutcome(notification, liveOutcome)

	// The offline channel runs when the user is out of reach, and also for
	// notifications whose priority was raised above the kind default.
	elevated := notification.Priority > models.DefaultPriority(notification.Kind)
	if !reachable || elevated {
		var offlineOutcome DeliveryOutcome
		if err := s.offline.Push(ctx, userID, notification); err != nil {
			offlineOutcome = failed("offline", err)
		} else {
			offlineOutcome = delivered("offline")
		}
		s.logOutcome(notification, offlineOutcome)
	}
}

func (s *NotificationService) logOutcome(notification *models.Notification, outcome DeliveryOutcome) {
	switch outcome.Status {
	case DeliveryDelivered:
		log.Printf("Notification %s delivered to user %s via %s channel",
			notification.ID.Hex(), notification.UserID.Hex(), outcome.Channel)
	case DeliverySkipped:
		log.Printf("Notification %s skipped %s channel for user %s: %s",
			notification.ID.Hex(), outcome.Channel, notification.UserID.Hex(), outcome.Reason)
	case DeliveryFailed:
		log.Printf("Notification %s failed on %s channel for user %s: %s",
			notification.ID.Hex(), outcome.Channel, notification.UserID.Hex(), outcome.Reason)
	}
}

// pushUnreadCount sends a fresh count snapshot over the live channel.
// Best-effort; failures are logged and dropped.
func (s *NotificationService) pushUnreadCount(ctx context.Context, userID primitive.ObjectID) {
	counts, err := s.GetUnreadCount(ctx, userID)
	if err != nil {
		log.Printf("Error computing unread count for user %s: %v", userID.Hex(), err)
		return
	}
	if err := s.live.SendUnreadCountUpdate(userID, counts); err != nil {
		log.Printf("Error pushing unread count to user %s: %v", userID.Hex(), err)
	}
}

// GetUnreadCount returns the cached total plus a per-category breakdown
// computed from the durable store. When the cache is unavailable the total
// falls back to the authoritative store count.
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID primitive.ObjectID) (models.UnreadCounts, error) {
	total, err := s.counter.Get(ctx, userID)
	if err != nil {
		log.Printf("Unread counter unavailable for user %s, using store count: %v", userID.Hex(), err)
		total, err = s.store.CountUnread(ctx, userID)
		if err != nil {
			return models.UnreadCounts{}, err
		}
	}

	byCategory, err := s.store.CountUnreadByCategory(ctx, userID)
	if err != nil {
		return models.UnreadCounts{}, err
	}

	return models.UnreadCounts{Total: total, ByCategory: byCategory}, nil
}

// MarkAsRead transitions the given notifications to read. Ids that are
// already read, or that belong to another user, are silently ignored; the
// counter is decremented by the rows actually transitioned, never by
// len(ids), which is what keeps it honest under overlapping concurrent
// calls.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	transitioned, err := s.store.MarkRead(ctx, userID, ids)
	if err != nil {
		return 0, err
	}
	s.afterUnreadDecrease(ctx, userID, transitioned)
	return transitioned, nil
}

// MarkAllAsRead transitions every unread notification of the user.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	transitioned, err := s.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.afterUnreadDecrease(ctx, userID, transitioned)
	return transitioned, nil
}

// afterUnreadDecrease applies a counter decrement for rows that left the
// unread state and pushes the new count to a reachable user.
func (s *NotificationService) afterUnreadDecrease(ctx context.Context, userID primitive.ObjectID, n int64) {
	if n > 0 {
		if err := s.counter.Decrement(ctx, userID, n); err != nil {
			log.Printf("Error decrementing unread counter for user %s: %v", userID.Hex(), err)
		}
	}
	reachable, err := s.presence.IsReachable(ctx, userID)
	if err != nil {
		log.Printf("Error checking reachability for user %s: %v", userID.Hex(), err)
		return
	}
	if reachable {
		s.pushUnreadCount(ctx, userID)
	}
}

// ToggleBookmark flips the bookmark flag of a single notification. The
// bookmark axis never touches the unread counter.
func (s *NotificationService) ToggleBookmark(ctx context.Context, userID, id primitive.ObjectID) (*models.Notification, error) {
	notification, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification == nil {
		return nil, ErrNotFound
	}
	if notification.UserID != userID {
		return nil, ErrPermissionDenied
	}

	bookmarked := !notification.IsBookmarked
	if err := s.store.SetBookmarked(ctx, userID, id, bookmarked); err != nil {
		return nil, err
	}
	notification.IsBookmarked = bookmarked
	if bookmarked {
		now := time.Now()
		notification.BookmarkedAt = &now
	} else {
		notification.BookmarkedAt = nil
	}
	return notification, nil
}

// ArchiveNotifications archives the given notifications after verifying
// every id belongs to the caller.
func (s *NotificationService) ArchiveNotifications(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	return s.setArchived(ctx, userID, ids, true)
}

// UnarchiveNotifications reverses ArchiveNotifications.
func (s *NotificationService) UnarchiveNotifications(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	return s.setArchived(ctx, userID, ids, false)
}

func (s *NotificationService) setArchived(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID, archived bool) (int64, error) {
	foreign, err := s.store.CountForeign(ctx, userID, ids)
	if err != nil {
		return 0, err
	}
	if foreign > 0 {
		return 0, ErrPermissionDenied
	}
	return s.store.SetArchived(ctx, userID, ids, archived)
}

// DeleteNotifications permanently removes the given notifications. The
// durable delete and the compensating counter decrement form one logical
// step: the decrement amount comes from rows that were still unread at the
// moment the delete matched them.
func (s *NotificationService) DeleteNotifications(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	foreign, err := s.store.CountForeign(ctx, userID, ids)
	if err != nil {
		return 0, err
	}
	if foreign > 0 {
		return 0, ErrPermissionDenied
	}

	deleted, deletedUnread, err := s.store.Delete(ctx, userID, ids)
	if err != nil {
		return deleted, err
	}
	if deletedUnread > 0 {
		if err := s.counter.Decrement(ctx, userID, deletedUnread); err != nil {
			log.Printf("Error decrementing unread counter for user %s: %v", userID.Hex(), err)
		}
	}
	return deleted, nil
}

// DeleteNotification removes a single notification.
func (s *NotificationService) DeleteNotification(ctx context.Context, userID, id primitive.ObjectID) error {
	deleted, err := s.DeleteNotifications(ctx, userID, []primitive.ObjectID{id})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}

// GetNotifications returns one page of the user's notifications for the
// given filter (models.FilterAll, FilterUnread, FilterBookmarked,
// FilterArchived, FilterActive).
func (s *NotificationService) GetNotifications(ctx context.Context, userID primitive.ObjectID, filter string, page, limit int64) ([]models.Notification, int64, error) {
	return s.store.FindByUser(ctx, userID, filter, page, limit)
}

// SyncOnLogin is the reconciliation procedure run once per session start:
// replay queued notifications as a single batch, rebuild the cached counter
// from the store's authoritative count (reset, not increment - this is what
// heals any drift), and push the fresh count. Delivery failures are logged;
// only store failures are returned.
func (s *NotificationService) SyncOnLogin(ctx context.Context, userID primitive.ObjectID) error {
	unread, err := s.store.FindUnread(ctx, userID, syncBatchLimit)
	if err != nil {
		return err
	}
	if len(unread) > 0 && s.live.IsUserOnline(userID) {
		if err := s.live.SendBatchNotifications(userID, unread); err != nil {
			log.Printf("Error replaying notification batch to user %s: %v", userID.Hex(), err)
		}
	}

	count, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.counter.Reset(ctx, userID, count); err != nil {
		log.Printf("Error resetting unread counter for user %s: %v", userID.Hex(), err)
	}

	s.pushUnreadCount(ctx, userID)
	return nil
}
