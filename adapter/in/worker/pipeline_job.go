// Package worker drives pipeline processing: a dispatcher claims due
// queue items and a bounded pool runs each one through the full
// decision flow.
package worker

import (
	"time"

	"pipeline_server/core/domain"

	"github.com/google/uuid"
)

// Job is one claimed queue item travelling through the pool.
type Job struct {
	ID        string            `json:"id"`
	TenantID  uuid.UUID         `json:"tenant_id"`
	Item      *domain.QueueItem `json:"item"`
	Retries   int               `json:"retries"`
	ClaimedAt time.Time         `json:"claimed_at"`
}

// NewJob wraps a claimed queue item.
func NewJob(item *domain.QueueItem) *Job {
	return &Job{
		ID:        uuid.NewString(),
		TenantID:  item.TenantID,
		Item:      item,
		ClaimedAt: time.Now(),
	}
}
