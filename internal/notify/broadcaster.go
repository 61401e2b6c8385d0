package notify

import (
	"encoding/json"
	"time"

	"github.com/storelab/commerce-gateway/pkg/logger"
	"github.com/storelab/commerce-gateway/pkg/redis"
	"github.com/storelab/commerce-gateway/pkg/worker"
)

// Event is a post-commit notification pushed to subscribers. Subject
// identifies what the event is about (a payment reference, a user email, a
// product id); Data carries type-specific details. Events are advisory only:
// delivery failures are logged and never affect the state change that
// produced them.
type Event struct {
	Type      string            `json:"type"`
	Subject   string            `json:"subject"`
	Data      map[string]string `json:"data,omitempty"`
	EmittedAt time.Time         `json:"emitted_at"`
}

const (
	EventPaymentConfirmed = "payment.confirmed"
	EventPaymentFailed    = "payment.failed"
	EventUserRegistered   = "user.registered"
	EventProductCreated   = "product.created"
	EventProductUpdated   = "product.updated"
	EventProductDeleted   = "product.deleted"
)

// Broadcaster fans payment events out on a Redis pub/sub channel through a
// small worker pool so publishing never blocks the request path.
type Broadcaster struct {
	redis   redis.RedisAdapter
	channel string
	manager *worker.WorkerManager
}

func NewBroadcaster(adapter redis.RedisAdapter, channel string, workers int) *Broadcaster {
	if workers <= 0 {
		workers = 2
	}

	b := &Broadcaster{
		redis:   adapter,
		channel: channel,
		manager: worker.NewWorkerManager(256, workers, nil),
	}
	b.manager.SetWorker(b.publish)

	return b
}

// Start launches the worker pool. The pool runs until Stop.
func (b *Broadcaster) Start() {
	go func() {
		// Start blocks until the workers are told to exit.
		_ = b.manager.Start()
	}()
}

// Stop drains the pool.
func (b *Broadcaster) Stop() {
	b.manager.Exit()
}

// Emit queues an event for publishing. It never blocks and never fails the
// caller; a full queue or a dead broker only costs the notification.
func (b *Broadcaster) Emit(event Event) {
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now().UTC()
	}
	select {
	case b.manager.JobEvents() <- event:
	default:
		logger.Warn("Broadcaster queue full, event dropped", "type", event.Type, "subject", event.Subject)
	}
}

func (b *Broadcaster) publish(workerIndex int, job interface{}) {
	event, ok := job.(Event)
	if !ok {
		logger.Warn("Broadcaster dropped unexpected job type", "worker", workerIndex)
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event", "error", err, "subject", event.Subject)
		return
	}

	if err := b.redis.Publish(b.channel, payload); err != nil {
		logger.Error("Failed to publish event", "error", err, "subject", event.Subject, "channel", b.channel)
		return
	}

	logger.Debug("Event published", "type", event.Type, "subject", event.Subject)
}
