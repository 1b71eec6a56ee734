package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/amirphl/shorty/models"
	"github.com/amirphl/shorty/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ErrClickQueueFull   = errors.New("click queue is full")
	ErrClickQueueClosed = errors.New("click queue is closed")
)

var clickEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "shorty_click_events_total",
		Help: "Click events partitioned by outcome: stored, failed, dropped",
	},
	[]string{"outcome"},
)

// ClickQueue persists click events off the request path. Record never blocks:
// when the buffer is full the event is dropped and counted.
type ClickQueue struct {
	repo         repository.ClickEventRepository
	queue        chan models.ClickEvent
	workers      int
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewClickQueue(repo repository.ClickEventRepository, size, workers int, writeTimeout time.Duration) *ClickQueue {
	if size <= 0 {
		size = 1024
	}
	if workers <= 0 {
		workers = 1
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &ClickQueue{
		repo:         repo,
		queue:        make(chan models.ClickEvent, size),
		workers:      workers,
		writeTimeout: writeTimeout,
	}
}

// Record enqueues event for persistence
func (q *ClickQueue) Record(_ context.Context, event models.ClickEvent) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClickQueueClosed
	}
	select {
	case q.queue <- event:
		return nil
	default:
		clickEventsTotal.WithLabelValues("dropped").Inc()
		return ErrClickQueueFull
	}
}

// Start launches the workers and returns a stop function that rejects new events,
// waits for the buffered ones to be written and then returns.
func (q *ClickQueue) Start(parent context.Context) func() {
	// writes outlive parent cancellation so the buffer can drain on shutdown
	base := context.WithoutCancel(parent)

	for range q.workers {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			for event := range q.queue {
				q.write(base, event)
			}
		}()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			q.mu.Lock()
			q.closed = true
			close(q.queue)
			q.mu.Unlock()
			q.wg.Wait()
		})
	}
}

func (q *ClickQueue) write(base context.Context, event models.ClickEvent) {
	ctx, cancel := context.WithTimeout(base, q.writeTimeout)
	defer cancel()

	if err := q.repo.Save(ctx, &event); err != nil {
		clickEventsTotal.WithLabelValues("failed").Inc()
		log.Printf("Failed to store click event for short link %d: %v", event.ShortLinkID, err)
		return
	}
	clickEventsTotal.WithLabelValues("stored").Inc()
}
