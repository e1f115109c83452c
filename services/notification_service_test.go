package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhive/taskhive_backend/models"
)

// memNotificationStore is an in-memory NotificationStore. Mutations hold a
// single lock, mirroring the per-operation atomicity of the Mongo
// implementation's conditional updates.
type memNotificationStore struct {
	mu            sync.Mutex
	notifications map[primitive.ObjectID]*models.Notification
}

func newMemNotificationStore() *memNotificationStore {
	return &memNotificationStore{notifications: make(map[primitive.ObjectID]*models.Notification)}
}

func (s *memNotificationStore) Insert(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	copied := *n
	s.notifications[n.ID] = &copied
	return nil
}

func (s *memNotificationStore) matches(n *models.Notification, filter string) bool {
	switch filter {
	case models.FilterUnread:
		return !n.IsRead
	case models.FilterBookmarked:
		return n.IsBookmarked
	case models.FilterArchived:
		return n.IsArchived
	case models.FilterActive:
		return !n.IsArchived
	}
	return true
}

func (s *memNotificationStore) userNotifications(userID primitive.ObjectID, filter string) []models.Notification {
	var out []models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID && s.matches(n, filter) {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *memNotificationStore) FindByUser(ctx context.Context, userID primitive.ObjectID, filter string, page, limit int64) ([]models.Notification, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.userNotifications(userID, filter)
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= total {
		return []models.Notification{}, total, nil
	}
	end := start + limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (s *memNotificationStore) FindUnread(ctx context.Context, userID primitive.ObjectID, limit int64) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.userNotifications(userID, models.FilterUnread)
	if int64(len(all)) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *memNotificationStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return nil, nil
	}
	copied := *n
	return &copied, nil
}

func (s *memNotificationStore) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *memNotificationStore) CountUnreadByCategory(ctx context.Context, userID primitive.ObjectID) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byCategory := map[string]int64{}
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			byCategory[n.Category()]++
		}
	}
	return byCategory, nil
}

func (s *memNotificationStore) MarkRead(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var transitioned int64
	for _, id := range ids {
		n, ok := s.notifications[id]
		if ok && n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
			transitioned++
		}
	}
	return transitioned, nil
}

func (s *memNotificationStore) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var transitioned int64
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			n.ReadAt = &now
			transitioned++
		}
	}
	return transitioned, nil
}

func (s *memNotificationStore) CountForeign(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var foreign int64
	for _, id := range ids {
		if n, ok := s.notifications[id]; ok && n.UserID != userID {
			foreign++
		}
	}
	return foreign, nil
}

func (s *memNotificationStore) SetBookmarked(ctx context.Context, userID, id primitive.ObjectID, bookmarked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.notifications[id]; ok && n.UserID == userID {
		n.IsBookmarked = bookmarked
	}
	return nil
}

func (s *memNotificationStore) SetArchived(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID, archived bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var updated int64
	for _, id := range ids {
		if n, ok := s.notifications[id]; ok && n.UserID == userID && n.IsArchived != archived {
			n.IsArchived = archived
			updated++
		}
	}
	return updated, nil
}

func (s *memNotificationStore) Delete(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted, deletedUnread int64
	for _, id := range ids {
		n, ok := s.notifications[id]
		if !ok || n.UserID != userID {
			continue
		}
		if !n.IsRead {
			deletedUnread++
		}
		delete(s.notifications, id)
		deleted++
	}
	return deleted, deletedUnread, nil
}

// memCounter is an in-memory UnreadCounter. unavailable simulates a cache
// outage.
type memCounter struct {
	mu          sync.Mutex
	counts      map[primitive.ObjectID]int64
	unavailable bool
}

func newMemCounter() *memCounter {
	return &memCounter{counts: make(map[primitive.ObjectID]int64)}
}

func (c *memCounter) Increment(ctx context.Context, userID primitive.ObjectID, n int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unavailable {
		return ErrCacheUnavailable
	}
	c.counts[userID] += n
	return nil
}

func (c *memCounter) Decrement(ctx context.Context, userID primitive.ObjectID, n int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unavailable {
		return ErrCacheUnavailable
	}
	c.counts[userID] -= n
	if c.counts[userID] < 0 {
		c.counts[userID] = 0
	}
	return nil
}

func (c *memCounter) Reset(ctx context.Context, userID primitive.ObjectID, value int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unavailable {
		return ErrCacheUnavailable
	}
	c.counts[userID] = value
	return nil
}

func (c *memCounter) Get(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.unavailable {
		return 0, ErrCacheUnavailable
	}
	return c.counts[userID], nil
}

func (c *memCounter) value(userID primitive.ObjectID) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[userID]
}

// memUserStore knows a fixed set of user ids.
type memUserStore struct {
	users map[primitive.ObjectID]bool
}

func (u *memUserStore) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	return u.users[id], nil
}

// fakeLiveChannel records pushes instead of writing to sockets.
type fakeLiveChannel struct {
	mu           sync.Mutex
	online       map[primitive.ObjectID]bool
	sent         []primitive.ObjectID // notification ids pushed one at a time
	batches      [][]models.Notification
	countUpdates []models.UnreadCounts
}

func newFakeLiveChannel() *fakeLiveChannel {
	return &fakeLiveChannel{online: make(map[primitive.ObjectID]bool)}
}

func (f *fakeLiveChannel) IsUserOnline(userID primitive.ObjectID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online[userID]
}

func (f *fakeLiveChannel) SendNotificationToUser(userID primitive.ObjectID, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n.ID)
	return nil
}

func (f *fakeLiveChannel) SendUnreadCountUpdate(userID primitive.ObjectID, counts models.UnreadCounts) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countUpdates = append(f.countUpdates, counts)
	return nil
}

func (f *fakeLiveChannel) SendBatchNotifications(userID primitive.ObjectID, notifications []models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, notifications)
	return nil
}

func (f *fakeLiveChannel) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeLiveChannel) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

// fakeOfflineChannel records push attempts.
type fakeOfflineChannel struct {
	mu     sync.Mutex
	pushes []primitive.ObjectID
}

func (f *fakeOfflineChannel) Push(ctx context.Context, userID primitive.ObjectID, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, n.ID)
	return nil
}

func (f *fakeOfflineChannel) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushes)
}

type serviceFixture struct {
	service  *NotificationService
	store    *memNotificationStore
	counter  *memCounter
	users    *memUserStore
	presence *memPresenceStore
	live     *fakeLiveChannel
	offline  *fakeOfflineChannel
	userID   primitive.ObjectID
	now      time.Time
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	userID := primitive.NewObjectID()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	store := newMemNotificationStore()
	counter := newMemCounter()
	users := &memUserStore{users: map[primitive.ObjectID]bool{userID: true}}
	presenceStore := newMemPresenceStore()
	live := newFakeLiveChannel()
	offline := &fakeOfflineChannel{}

	tracker := newTestTracker(presenceStore, now)
	service := NewNotificationService(store, users, counter, tracker, live, offline)

	return &serviceFixture{
		service:  service,
		store:    store,
		counter:  counter,
		users:    users,
		presence: presenceStore,
		live:     live,
		offline:  offline,
		userID:   userID,
		now:      now,
	}
}

func sendRequest(userID primitive.ObjectID, kind string) models.SendNotificationRequest {
	return models.SendNotificationRequest{
		UserID:  userID.Hex(),
		Kind:    kind,
		Title:   "Task assigned",
		Message: "You have been assigned a task",
	}
}

func TestCreateAndSendPersistsAndIncrementsCounter(t *testing.T) {
	f := newServiceFixture(t)

	notification, err := f.service.CreateAndSend(context.Background(), sendRequest(f.userID, models.KindTaskAssigned))
	require.NoError(t, err)
	require.NotNil(t, notification)

	assert.False(t, notification.IsRead)
	assert.Equal(t, models.DefaultPriority(models.KindTaskAssigned), notification.Priority)

	stored, err := f.store.FindByID(context.Background(), notification.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, f.userID, stored.UserID)

	assert.Equal(t, int64(1), f.counter.value(f.userID))
}

func TestCreateAndSendUnknownRecipient(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.CreateAndSend(context.Background(), sendRequest(primitive.NewObjectID(), models.KindTaskAssigned))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int64(0), f.counter.value(f.userID))
}

func TestCreateAndSendRejectsUnknownKind(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.CreateAndSend(context.Background(), sendRequest(f.userID, "party_invite"))
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestCreateAndSendOfflineUserFallsBackToPush(t *testing.T) {
	f := newServiceFixture(t)
	// Last heartbeat 10 minutes ago: outside the reachability window.
	f.presence.seed(f.userID, true, f.now.Add(-10*time.Minute))

	notification, err := f.service.CreateAndSend(context.Background(), sendRequest(f.userID, models.KindTaskAssigned))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return f.offline.pushCount() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, f.live.sentCount())

	stored, err := f.store.FindByID(context.Background(), notification.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.IsRead)
}

func TestCreateAndSendReachableUserGetsLivePush(t *testing.T) {
	f := newServiceFixture(t)
	f.presence.seed(f.userID, true, f.now.Add(-time.Minute))

	_, err := f.service.CreateAndSend(context.Background(), sendRequest(f.userID, models.KindTaskCompleted))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return f.live.sentCount() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, f.offline.pushCount())
}

func TestCreateAndSendElevatedPriorityAlsoPushesOffline(t *testing.T) {
	f := newServiceFixture(t)
	f.presence.seed(f.userID, true, f.now.Add(-time.Minute))

	req := sendRequest(f.userID, models.KindTaskCompleted)
	req.Priority = models.PriorityUrgent

	_, err := f.service.CreateAndSend(context.Background(), req)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return f.live.sentCount() == 1 && f.offline.pushCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestCreateAndSendSurvivesCounterOutage(t *testing.T) {
	f := newServiceFixture(t)
	f.counter.mu.Lock()
	f.counter.unavailable = true
	f.counter.mu.Unlock()

	// Creation only blocks on durability; a dead counter cache is logged
	// and skipped.
	notification, err := f.service.CreateAndSend(context.Background(), sendRequest(f.userID, models.KindTaskAssigned))
	require.NoError(t, err)

	stored, err := f.store.FindByID(context.Background(), notification.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.False(t, stored.IsRead)
	assert.Equal(t, int64(0), f.counter.value(f.userID))

	// Once the cache is back, the next reconciliation rebuilds the count
	// the outage swallowed.
	f.counter.mu.Lock()
	f.counter.unavailable = false
	f.counter.mu.Unlock()

	require.NoError(t, f.service.SyncOnLogin(context.Background(), f.userID))
	assert.Equal(t, int64(1), f.counter.value(f.userID))
}

func TestConcurrentCreatesAllCounted(t *testing.T) {
	f := newServiceFixture(t)
	const n = 20

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.CreateAndSend(context.Background(), sendRequest(f.userID, models.KindCommentAdded))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(n), f.counter.value(f.userID))

	count, err := f.store.CountUnread(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), count)
}

func TestMarkAsReadIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	notification, err := f.service.CreateAndSend(context.Background(), sendRequest(f.userID, models.KindTaskAssigned))
	require.NoError(t, err)
	require.Equal(t, int64(1), f.counter.value(f.userID))

	ids := []primitive.ObjectID{notification.ID}

	transitioned, err := f.service.MarkAsRead(context.Background(), f.userID, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(1), transitioned)
	assert.Equal(t, int64(0), f.counter.value(f.userID))

	// Second call transitions zero rows and must not decrement again.
	transitioned, err = f.service.MarkAsRead(context.Background(), f.userID, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(0), transitioned)
	assert.Equal(t, int64(0), f.counter.value(f.userID))
}

func TestMarkAsReadIgnoresForeignNotifications(t *testing.T) {
	f := newServiceFixture(t)
	otherID := primitive.NewObjectID()
	f.users.users[otherID] = true

	notification, err := f.service.CreateAndSend(context.Background(), sendRequest(otherID, models.KindTaskAssigned))
	require.NoError(t, err)

	// Marking someone else's notification is silently a no-op, not an error.
	transitioned, err := f.service.MarkAsRead(context.Background(), f.userID, []primitive.ObjectID{notification.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(0), transitioned)
	assert.Equal(t, int64(1), f.counter.value(otherID))

	stored, err := f.store.FindByID(context.Background(), notification.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsRead)
}

func TestMarkAllAsRead(t *testing.T) {
	f := newServiceFixture(t)
	for i := 0; i < 3; i++ {
		_, err := f.service.CreateAndSend(context.Background(), sendRequest(f.userID, models.KindCommentAdded))
		require.NoError(t, err)
	}

	transitioned, err := f.service.MarkAllAsRead(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), transitioned)
	assert.Equal(t, int64(0), f.counter.value(f.userID))
}

func TestDeleteUnreadDecrementsCounter(t *testing.T) {
	f := newServiceFixture(t)
	unread, err := f.service.CreateAndSend(context.Background(), sendRequest(f.userID, models.KindTaskAssigned))
	require.NoError(t, err)
	read, err := f.service.CreateAndSend(context.Background(), sendRequest(f.userID, models.KindTaskAssigned))
	require.NoError(t, err)

	_, err = f.service.MarkAsRead(context.Background(), f.userID, []primitive.ObjectID{read.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), f.counter.value(f.userID))

	// Deleting a read notification leaves the counter unchanged.
	require.NoError(t, f.service.DeleteNotification(context.Background(), f.userID, read.ID))
	assert.Equal(t, int64(1), f.counter.value(f.userID))

	// Deleting an unread notification decrements by exactly one.
	require.NoError(t, f.service.DeleteNotification(context.Background(), f.userID, unread.ID))
	assert.Equal(t, int64(0), f.counter.value(f.userID))
}

func TestDeleteForeignNotificationDenied(t *testing.T) {
	f := newServiceFixture(t)
	otherID := primitive.NewObjectID()
	f.users.users[otherID] = true

	notification, err := f.service.CreateAndSend(context.Background(), sendRequest(otherID, models.KindTaskAssigned))
	require.NoError(t, err)

	err = f.service.DeleteNotification(context.Background(), f.userID, notification.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	stored, err := f.store.FindByID(context.Background(), notification.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored)
}

func TestArchiveForeignNotificationDenied(t *testing.T) {
	f := newServiceFixture(t)
	otherID := primitive.NewObjectID()
	f.users.users[otherID] = true

	notification, err := f.service.CreateAndSend(context.Background(), sendRequest(otherID, models.KindTaskAssigned))
	require.NoError(t, err)

	_, err = f.service.ArchiveNotifications(context.Background(), f.userID, []primitive.ObjectID{notification.ID})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestArchiveDoesNotTouchCounter(t *testing.T) {
	f := newServiceFixture(t)
	notification, err := f.service.CreateAndSend(context.Background(), sendRequest(f.userID, models.KindTaskAssigned))
	require.NoError(t, err)

	updated, err := f.service.ArchiveNotifications(context.Background(), f.userID, []primitive.ObjectID{notification.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)
	assert.Equal(t, int64(1), f.counter.value(f.userID))

	// Archived notifications stay queryable until deleted.
	archived, total, err := f.service.GetNotifications(context.Background(), f.userID, models.FilterArchived, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, archived, 1)
}

func TestToggleBookmark(t *testing.T) {
	f := newServiceFixture(t)
	notification, err := f.service.CreateAndSend(context.Background(), sendRequest(f.userID, models.KindMention))
	require.NoError(t, err)

	toggled, err := f.service.ToggleBookmark(context.Background(), f.userID, notification.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsBookmarked)

	toggled, err = f.service.ToggleBookmark(context.Background(), f.userID, notification.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsBookmarked)

	_, err = f.service.ToggleBookmark(context.Background(), primitive.NewObjectID(), notification.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.service.ToggleBookmark(context.Background(), f.userID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSyncOnLoginHealsCounterDrift(t *testing.T) {
	f := newServiceFixture(t)
	f.live.online[f.userID] = true

	for i := 0; i < 3; i++ {
		_, err := f.service.CreateAndSend(context.Background(), sendRequest(f.userID, models.KindTaskAssigned))
		require.NoError(t, err)
	}

	// Simulate drift from a lost decrement or cache eviction.
	require.NoError(t, f.counter.Reset(context.Background(), f.userID, 17))

	require.NoError(t, f.service.SyncOnLogin(context.Background(), f.userID))

	assert.Equal(t, int64(3), f.counter.value(f.userID))
	require.Equal(t, 1, f.live.batchCount())
	assert.Len(t, f.live.batches[0], 3)
}

func TestSyncOnLoginAfterOfflineCreate(t *testing.T) {
	f := newServiceFixture(t)
	f.presence.seed(f.userID, true, f.now.Add(-10*time.Minute))

	_, err := f.service.CreateAndSend(context.Background(), sendRequest(f.userID, models.KindTaskAssigned))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.offline.pushCount() == 1 }, time.Second, 10*time.Millisecond)

	// User reconnects: the hub sees a session and sync replays the batch.
	f.live.mu.Lock()
	f.live.online[f.userID] = true
	f.live.mu.Unlock()

	require.NoError(t, f.service.SyncOnLogin(context.Background(), f.userID))

	assert.Equal(t, int64(1), f.counter.value(f.userID))
	require.Equal(t, 1, f.live.batchCount())
	assert.Len(t, f.live.batches[0], 1)
}

func TestGetUnreadCountFallsBackWhenCacheUnavailable(t *testing.T) {
	f := newServiceFixture(t)
	for i := 0; i < 2; i++ {
		_, err := f.service.CreateAndSend(context.Background(), sendRequest(f.userID, models.KindTaskAssigned))
		require.NoError(t, err)
	}

	f.counter.mu.Lock()
	f.counter.unavailable = true
	f.counter.mu.Unlock()

	counts, err := f.service.GetUnreadCount(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts.Total)
	assert.Equal(t, int64(2), counts.ByCategory[models.CategoryTasks])
}

func TestGetUnreadCountBreakdownByCategory(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.CreateAndSend(context.Background(), sendRequest(f.userID, models.KindTaskAssigned))
	require.NoError(t, err)
	_, err = f.service.CreateAndSend(context.Background(), sendRequest(f.userID, models.KindFriendRequest))
	require.NoError(t, err)
	_, err = f.service.CreateAndSend(context.Background(), sendRequest(f.userID, models.KindProjectInvite))
	require.NoError(t, err)

	counts, err := f.service.GetUnreadCount(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts.Total)
	assert.Equal(t, int64(1), counts.ByCategory[models.CategoryTasks])
	assert.Equal(t, int64(1), counts.ByCategory[models.CategorySocial])
	assert.Equal(t, int64(1), counts.ByCategory[models.CategoryProjects])
}

func TestCounterConsistentAfterMixedOperationsAndSync(t *testing.T) {
	f := newServiceFixture(t)
	f.live.online[f.userID] = true

	var created []primitive.ObjectID
	for i := 0; i < 5; i++ {
		n, err := f.service.CreateAndSend(context.Background(), sendRequest(f.userID, models.KindCommentAdded))
		require.NoError(t, err)
		created = append(created, n.ID)
	}

	_, err := f.service.MarkAsRead(context.Background(), f.userID, created[:2])
	require.NoError(t, err)
	_, err = f.service.DeleteNotifications(context.Background(), f.userID, created[2:3])
	require.NoError(t, err)

	require.NoError(t, f.service.SyncOnLogin(context.Background(), f.userID))

	truth, err := f.store.CountUnread(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Equal(t, truth, f.counter.value(f.userID))
	assert.Equal(t, int64(2), truth)
}
