// Package queue is a Redis-backed background job queue. Jobs are JSON
// blobs on Redis lists; delayed and retried jobs wait in a sorted set
// keyed by their run time until a worker promotes them.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	// Queue names
	QueueBookingNotification = "booking_notification"
	QueuePaymentSettlement   = "payment_settlement"
	QueueCommissionPayout    = "commission_payout"

	DefaultMaxRetries = 3
	DefaultJobTTL     = 24 * time.Hour
)

// JobStatus tracks a job through its lifecycle
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job is one unit of background work
type Job struct {
	ID         string          `json:"id"`
	Queue      string          `json:"queue"`
	Payload    json.RawMessage `json:"payload"`
	Status     JobStatus       `json:"status"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	RunAt      time.Time       `json:"run_at"`
}

// JobHandler processes one dequeued job
type JobHandler func(ctx context.Context, job *Job) error

// EnqueueOption adjusts a job before it is pushed
type EnqueueOption func(*Job)

// WithMaxRetries sets the maximum number of retries for a job
func WithMaxRetries(maxRetries int) EnqueueOption {
	return func(j *Job) {
		j.MaxRetries = maxRetries
	}
}

// Queue is a Redis-backed job queue with a per-queue handler registry
type Queue struct {
	client   *redis.Client
	handlers map[string]JobHandler
}

// NewQueue creates a new queue on an existing Redis client
func NewQueue(client *redis.Client) *Queue {
	return &Queue{
		client:   client,
		handlers: make(map[string]JobHandler),
	}
}

// RegisterHandler registers the handler that processes jobs on a queue
func (q *Queue) RegisterHandler(queueName string, handler JobHandler) {
	q.handlers[queueName] = handler
}

// Enqueue pushes a job for immediate processing
func (q *Queue) Enqueue(ctx context.Context, queueName string, payload interface{}, opts ...EnqueueOption) (string, error) {
	return q.enqueueAt(ctx, queueName, payload, time.Now(), opts...)
}

// EnqueueIn pushes a job that becomes runnable after the delay
func (q *Queue) EnqueueIn(ctx context.Context, queueName string, payload interface{}, delay time.Duration, opts ...EnqueueOption) (string, error) {
	return q.enqueueAt(ctx, queueName, payload, time.Now().Add(delay), opts...)
}

func (q *Queue) enqueueAt(ctx context.Context, queueName string, payload interface{}, runAt time.Time, opts ...EnqueueOption) (string, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling job payload: %w", err)
	}

	now := time.Now()
	job := &Job{
		ID:         uuid.New().String(),
		Queue:      queueName,
		Payload:    payloadBytes,
		Status:     JobStatusPending,
		MaxRetries: DefaultMaxRetries,
		CreatedAt:  now,
		UpdatedAt:  now,
		RunAt:      runAt,
	}
	for _, opt := range opts {
		opt(job)
	}

	if err := q.push(ctx, job); err != nil {
		return "", err
	}
	return job.ID, nil
}

func (q *Queue) push(ctx context.Context, job *Job) error {
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job: %w", err)
	}

	if job.RunAt.After(time.Now()) {
		err = q.client.ZAdd(ctx, "delayed:"+job.Queue, &redis.Z{
			Score:  float64(job.RunAt.Unix()),
			Member: jobBytes,
		}).Err()
	} else {
		err = q.client.LPush(ctx, job.Queue, jobBytes).Err()
	}
	if err != nil {
		return fmt.Errorf("pushing job to queue %s: %w", job.Queue, err)
	}

	if err := q.client.Set(ctx, "jobs:"+job.ID, jobBytes, DefaultJobTTL).Err(); err != nil {
		log.Printf("warning: failed to store job %s details: %v", job.ID, err)
	}
	return nil
}

// Dequeue pops the next runnable job off a queue, promoting any delayed
// jobs whose run time has arrived. Returns nil when the queue is empty.
func (q *Queue) Dequeue(ctx context.Context, queueName string) (*Job, error) {
	q.promoteDelayed(ctx, queueName)

	result := q.client.BRPop(ctx, 1*time.Second, queueName)
	if result.Err() != nil {
		if result.Err() == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("popping job from queue %s: %w", queueName, result.Err())
	}
	vals := result.Val()
	if len(vals) < 2 {
		return nil, fmt.Errorf("unexpected BRPOP result for queue %s", queueName)
	}

	var job Job
	if err := json.Unmarshal([]byte(vals[1]), &job); err != nil {
		return nil, fmt.Errorf("unmarshaling job: %w", err)
	}

	job.Status = JobStatusProcessing
	job.UpdatedAt = time.Now()
	q.storeStatus(ctx, &job)
	return &job, nil
}

// promoteDelayed moves delayed jobs whose run time has passed onto the
// main list
func (q *Queue) promoteDelayed(ctx context.Context, queueName string) {
	ready, err := q.client.ZRangeByScore(ctx, "delayed:"+queueName, &redis.ZRangeBy{
		Min: "0",
		Max: fmt.Sprintf("%d", time.Now().Unix()),
	}).Result()
	if err != nil {
		log.Printf("error reading delayed jobs for %s: %v", queueName, err)
		return
	}

	for _, jobStr := range ready {
		if err := q.client.LPush(ctx, queueName, jobStr).Err(); err != nil {
			log.Printf("error promoting delayed job on %s: %v", queueName, err)
			continue
		}
		q.client.ZRem(ctx, "delayed:"+queueName, jobStr)
	}
}

func (q *Queue) storeStatus(ctx context.Context, job *Job) {
	jobBytes, err := json.Marshal(job)
	if err != nil {
		log.Printf("warning: failed to marshal job %s: %v", job.ID, err)
		return
	}
	if err := q.client.Set(ctx, "jobs:"+job.ID, jobBytes, DefaultJobTTL).Err(); err != nil {
		log.Printf("warning: failed to store job %s status: %v", job.ID, err)
	}
}

// complete marks a job finished
func (q *Queue) complete(ctx context.Context, job *Job) {
	job.Status = JobStatusCompleted
	job.UpdatedAt = time.Now()
	q.storeStatus(ctx, job)
}

// fail records a failure and requeues the job with backoff until its
// retries run out
func (q *Queue) fail(ctx context.Context, job *Job, jobErr error) {
	job.UpdatedAt = time.Now()
	if job.RetryCount < job.MaxRetries {
		job.RetryCount++
		job.Status = JobStatusPending
		job.RunAt = time.Now().Add(time.Duration(job.RetryCount) * 5 * time.Second)
		if err := q.push(ctx, job); err != nil {
			log.Printf("error requeueing job %s: %v", job.ID, err)
		}
		return
	}
	job.Status = JobStatusFailed
	q.storeStatus(ctx, job)
	log.Printf("job %s on queue %s failed permanently: %v", job.ID, job.Queue, jobErr)
}

// StartWorker runs a processing loop over every registered queue until
// the context is cancelled
func (q *Queue) StartWorker(ctx context.Context) {
	queueNames := make([]string, 0, len(q.handlers))
	for name := range q.handlers {
		queueNames = append(queueNames, name)
	}
	log.Printf("queue worker started, watching %d queues", len(queueNames))

	for {
		select {
		case <-ctx.Done():
			log.Printf("queue worker stopping: %v", ctx.Err())
			return
		default:
		}

		idle := true
		for _, name := range queueNames {
			job, err := q.Dequeue(ctx, name)
			if err != nil {
				log.Printf("error dequeuing from %s: %v", name, err)
				continue
			}
			if job == nil {
				continue
			}
			idle = false

			handler := q.handlers[job.Queue]
			if err := handler(ctx, job); err != nil {
				q.fail(ctx, job, err)
				continue
			}
			q.complete(ctx, job)
		}

		if idle {
			time.Sleep(500 * time.Millisecond)
		}
	}
}
