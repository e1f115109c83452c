package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification kinds. The set is closed: anything outside it is rejected at
// the service boundary.
const (
	KindTaskAssigned   = "task_assigned"
	KindTaskDueSoon    = "task_due_soon"
	KindTaskCompleted  = "task_completed"
	KindCommentAdded   = "comment_added"
	KindProjectInvite  = "project_invite"
	KindFriendRequest  = "friend_request"
	KindFriendAccepted = "friend_accepted"
	KindMention        = "mention"
	KindSystem         = "system"
)

// Display categories used for the unread-count breakdown.
const (
	CategoryTasks    = "tasks"
	CategorySocial   = "social"
	CategoryProjects = "projects"
	CategorySystem   = "system"
)

// List filters for notification queries.
const (
	FilterAll        = "all"
	FilterUnread     = "unread"
	FilterBookmarked = "bookmarked"
	FilterArchived   = "archived"
	FilterActive     = "active" // not archived
)

// Priority levels. A notification above its kind's default priority is also
// pushed through the offline fallback channel even when the user looks
// reachable.
const (
	PriorityLow    = 1
	PriorityNormal = 2
	PriorityHigh   = 3
	PriorityUrgent = 4
)

type kindInfo struct {
	Category string
	Priority int
}

var notificationKinds = map[string]kindInfo{
	KindTaskAssigned:   {CategoryTasks, PriorityHigh},
	KindTaskDueSoon:    {CategoryTasks, PriorityHigh},
	KindTaskCompleted:  {CategoryTasks, PriorityNormal},
	KindCommentAdded:   {CategoryTasks, PriorityNormal},
	KindProjectInvite:  {CategoryProjects, PriorityHigh},
	KindFriendRequest:  {CategorySocial, PriorityNormal},
	KindFriendAccepted: {CategorySocial, PriorityLow},
	KindMention:        {CategorySocial, PriorityHigh},
	KindSystem:         {CategorySystem, PriorityNormal},
}

// IsValidKind reports whether kind belongs to the closed notification set.
func IsValidKind(kind string) bool {
	_, ok := notificationKinds[kind]
	return ok
}

// KindCategory returns the display category for a kind, or CategorySystem
// for anything unknown (old rows written before a kind was retired).
func KindCategory(kind string) string {
	if info, ok := notificationKinds[kind]; ok {
		return info.Category
	}
	return CategorySystem
}

// DefaultPriority returns the priority a kind carries unless the caller
// overrides it.
func DefaultPriority(kind string) int {
	if info, ok := notificationKinds[kind]; ok {
		return info.Priority
	}
	return PriorityNormal
}

// Reference points a notification at the business object it concerns.
type Reference struct {
	Type string             `json:"type" bson:"type"` // "task", "project", "comment", "user"
	ID   primitive.ObjectID `json:"id" bson:"id"`
}

// Notification model. Content is immutable after creation; only the
// lifecycle flags (read/bookmarked/archived) mutate.
type Notification struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID       primitive.ObjectID `json:"userId" bson:"userId"` // recipient
	Title        string             `json:"title" bson:"title"`
	Message      string             `json:"message" bson:"message"`
	Kind         string             `json:"kind" bson:"kind"`
	Reference    *Reference         `json:"reference,omitempty" bson:"reference,omitempty"`
	Data         map[string]string  `json:"data,omitempty" bson:"data,omitempty"`
	ActionURL    string             `json:"actionUrl,omitempty" bson:"actionUrl,omitempty"`
	SenderName   string             `json:"senderName,omitempty" bson:"senderName,omitempty"`
	SenderAvatar string             `json:"senderAvatar,omitempty" bson:"senderAvatar,omitempty"`
	Priority     int                `json:"priority" bson:"priority"`
	IsRead       bool               `json:"isRead" bson:"isRead"`
	ReadAt       *time.Time         `json:"readAt,omitempty" bson:"readAt,omitempty"`
	IsBookmarked bool               `json:"isBookmarked" bson:"isBookmarked"`
	BookmarkedAt *time.Time         `json:"bookmarkedAt,omitempty" bson:"bookmarkedAt,omitempty"`
	IsArchived   bool               `json:"isArchived" bson:"isArchived"`
	ArchivedAt   *time.Time         `json:"archivedAt,omitempty" bson:"archivedAt,omitempty"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
	ExpiresAt    *time.Time         `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
}

// Category returns the display category of this notification's kind.
func (n *Notification) Category() string {
	return KindCategory(n.Kind)
}

// UnreadCounts is the unread-count answer: the cached total plus a
// per-category breakdown computed from the durable store. The total is
// authoritative for "anything new?"; the breakdown is advisory detail and
// may lag behind it while writes are in flight.
type UnreadCounts struct {
	Total      int64            `json:"total"`
	ByCategory map[string]int64 `json:"byCategory"`
}

// SendNotificationRequest is the collaborator entry point payload for
// creating and delivering a notification.
type SendNotificationRequest struct {
	UserID         string            `json:"userId" validate:"required"`
	Kind           string            `json:"kind" validate:"required"`
	Title          string            `json:"title" validate:"required"`
	Message        string            `json:"message" validate:"required"`
	ReferenceType  string            `json:"referenceType,omitempty"`
	ReferenceID    string            `json:"referenceId,omitempty"`
	Data           map[string]string `json:"data,omitempty"`
	ActionURL      string            `json:"actionUrl,omitempty"`
	SenderName     string            `json:"senderName,omitempty"`
	SenderAvatar   string            `json:"senderAvatar,omitempty"`
	Priority       int               `json:"priority,omitempty"` // 0 = use kind default
	ExpiresInHours int               `json:"expiresInHours,omitempty"`
}

// NotificationIDsRequest carries a batch of notification ids for mark-read,
// archive and delete operations.
type NotificationIDsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}
