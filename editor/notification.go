package editor

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// NotificationLevelENUMType notification level ENUM
type NotificationLevelENUMType string

const (
	// NotificationInfo informational, nothing went wrong
	NotificationInfo NotificationLevelENUMType = "INFO"
	// NotificationSuccess an operation completed
	NotificationSuccess NotificationLevelENUMType = "SUCCESS"
	// NotificationError an operation failed
	NotificationError NotificationLevelENUMType = "ERROR"
)

// Notification messages
const (
	msgDataUpdated      = "Data updated"
	msgDataDeleted      = "Data deleted"
	msgConflict         = "Error updating the data. Somebody else has updated the record while you were making changes."
	msgValidationFailed = "Failed to update the data. Check again that all values are valid"
	msgSaveFailed       = "Failed to update the data"
	msgDeleteFailed     = "Failed to delete the data"
	msgUploadFailed     = "Failed to receive the upload"
)

func msgNoSelection(title string) string {
	return fmt.Sprintf("No %s selected", title)
}

func msgNotFound(title, recordID string) string {
	return fmt.Sprintf("The requested %s was not found, ID = %s", title, recordID)
}

// Notification transient user visible message
type Notification struct {
	// Level notification level
	Level NotificationLevelENUMType `json:"level"`
	// Message the message
	Message string `json:"message"`
	// Timestamp when the notification was raised
	Timestamp time.Time `json:"timestamp"`
}

// Notifier sink for user visible notifications
type Notifier interface {
	/*
		Notify raise a notification

			@param ctx context.Context - execution context
			@param level NotificationLevelENUMType - notification level
			@param message string - the message
	*/
	Notify(ctx context.Context, level NotificationLevelENUMType, message string)
}

// NotificationQueue Notifier which holds notifications until they are drained, and
// forwards each one to its subscribers as it is raised
type NotificationQueue struct {
	lock        sync.Mutex
	pending     []Notification
	subscribers listenerSet[Notification]
}

// NewNotificationQueue define a new notification queue
func NewNotificationQueue() *NotificationQueue {
	return &NotificationQueue{pending: []Notification{}}
}

// Notify raise a notification
func (q *NotificationQueue) Notify(
	_ context.Context, level NotificationLevelENUMType, message string,
) {
	note := Notification{Level: level, Message: message, Timestamp: time.Now().UTC()}
	q.lock.Lock()
	q.pending = append(q.pending, note)
	q.lock.Unlock()
	q.subscribers.emit(note)
}

// Drain return and forget all pending notifications
func (q *NotificationQueue) Drain() []Notification {
	q.lock.Lock()
	defer q.lock.Unlock()
	drained := q.pending
	q.pending = []Notification{}
	return drained
}

// Pending return pending notifications without draining them
func (q *NotificationQueue) Pending() []Notification {
	q.lock.Lock()
	defer q.lock.Unlock()
	return append([]Notification{}, q.pending...)
}

/*
Subscribe register a listener called for every notification raised

	@param listener func(Notification) - the listener
	@returns function to remove the listener
*/
func (q *NotificationQueue) Subscribe(listener func(Notification)) func() {
	return q.subscribers.add(listener)
}
