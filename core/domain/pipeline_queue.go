package domain

import (
	"time"

	"github.com/google/uuid"
)

// QueueStatus is the lifecycle state of a queue item.
//
// Transitions:
//
//	pending → processing → completed
//	pending → processing → failed
//	pending → pending_review (terminal for automation)
type QueueStatus string

// DefaultQueuePriority is assigned when the caller does not pick one.
const DefaultQueuePriority = 50

const (
	StatusPending       QueueStatus = "pending"
	StatusProcessing    QueueStatus = "processing"
	StatusCompleted     QueueStatus = "completed"
	StatusFailed        QueueStatus = "failed"
	StatusPendingReview QueueStatus = "pending_review"
)

// queueTransitions encodes the legal one-way state machine.
var queueTransitions = map[QueueStatus][]QueueStatus{
	StatusPending:    {StatusProcessing, StatusPendingReview},
	StatusProcessing: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether from → to is a legal lifecycle move.
func CanTransition(from, to QueueStatus) bool {
	for _, allowed := range queueTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no automated transition leaves the status.
func (s QueueStatus) IsTerminal() bool {
	return len(queueTransitions[s]) == 0
}

// QueueItem is the persistent record tracking one email's processing
// lifecycle. Metadata carries the original email plus classification
// and routing once computed; Result holds the final outcome payload.
type QueueItem struct {
	ID            int64          `json:"id"`
	TenantID      uuid.UUID      `json:"tenant_id"`
	EmailRef      string         `json:"email_ref"`
	Priority      int            `json:"priority"`
	Status        QueueStatus    `json:"status"`
	ScheduledFor  time.Time      `json:"scheduled_for"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	Result        map[string]any `json:"result,omitempty"`
	FailureReason string         `json:"failure_reason,omitempty"`
	Attempts      int            `json:"attempts"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// QueueItemPatch is a partial update merged into an existing item.
type QueueItemPatch struct {
	Priority     *int
	ScheduledFor *time.Time
	Metadata     map[string]any
}
