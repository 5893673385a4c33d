package notify

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/formlift/formlift/pkg/metrics"
)

// Event types
const (
	EventLeadCreated    = "lead.created"
	EventQuotaExceeded  = "quota.exceeded"
	EventPlanChanged    = "plan.changed"
	EventAccountCreated = "account.created"
)

// Event is a side-channel notification about something that happened in the
// pipeline. Events are advisory: losing one never affects stored data.
type Event struct {
	Type       string            `json:"type"`
	AccountID  int64             `json:"account_id,omitempty"`
	FormID     int64             `json:"form_id,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Sink delivers events to one destination
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

// Dispatcher fans events out to sinks from a bounded queue. Notify never
// blocks the caller: when the queue is full the event is dropped and logged.
// Sink failures are logged and swallowed, they never propagate to the
// submission path.
type Dispatcher struct {
	sinks   []Sink
	queue   chan Event
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *log.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewDispatcher starts workers draining the event queue into the sinks
func NewDispatcher(queueSize, workers int, timeout time.Duration, logger *log.Logger, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}

	d := &Dispatcher{
		sinks:   sinks,
		queue:   make(chan Event, queueSize),
		timeout: timeout,
		logger:  logger,
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// SetMetrics attaches the Prometheus metrics, may stay nil in tests
func (d *Dispatcher) SetMetrics(m *metrics.Metrics) {
	d.metrics = m
}

// Notify enqueues an event without blocking. Returns false when the queue
// was full and the event was dropped.
func (d *Dispatcher) Notify(e Event) bool {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	select {
	case d.queue <- e:
		return true
	default:
		d.logger.Printf("⚠️  Notification queue full, dropping %s event for account %d", e.Type, e.AccountID)
		if d.metrics != nil {
			d.metrics.RecordNotificationDropped()
		}
		return false
	}
}

// Close stops accepting events and waits for queued deliveries to drain
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for e := range d.queue {
		d.deliver(e)
	}
}

func (d *Dispatcher) deliver(e Event) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := sink.Deliver(ctx, e); err != nil {
			d.logger.Printf("⚠️  Failed to deliver %s event via %s: %v", e.Type, sink.Name(), err)
		}
		cancel()
	}
}
