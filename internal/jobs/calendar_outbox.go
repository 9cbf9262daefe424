package jobs

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/tempohq/tempo/api/internal/model"
	"github.com/tempohq/tempo/api/internal/service"
)

// OutboxStore is the slice of the outbox repository the processor needs.
type OutboxStore interface {
	Due(ctx context.Context, limit int) ([]*model.CalendarOp, error)
	Reschedule(ctx context.Context, opID string, nextAttempt time.Time, lastError string) error
	MarkFailed(ctx context.Context, opID string, lastError string) error
}

// CalendarOutboxProcessor drains pending calendar sync operations. Failed
// dispatches back off exponentially; operations that exhaust the retry
// budget are abandoned with their last error recorded.
type CalendarOutboxProcessor struct {
	outbox      OutboxStore
	scheduler   *service.SyncScheduler
	interval    time.Duration
	batchSize   int
	maxAttempts int
	baseBackoff time.Duration
	stopCh      chan struct{}
	wg          sync.WaitGroup
	running     bool
	mu          sync.Mutex
}

// NewCalendarOutboxProcessor creates a new outbox processor job. Zero values
// for interval, batchSize, and maxAttempts fall back to defaults.
func NewCalendarOutboxProcessor(outbox OutboxStore, scheduler *service.SyncScheduler, interval time.Duration, batchSize, maxAttempts int) *CalendarOutboxProcessor {
	if interval == 0 {
		interval = 30 * time.Second
	}
	if batchSize == 0 {
		batchSize = 50
	}
	if maxAttempts == 0 {
		maxAttempts = 8
	}
	return &CalendarOutboxProcessor{
		outbox:      outbox,
		scheduler:   scheduler,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		baseBackoff: time.Minute,
		stopCh:      make(chan struct{}),
	}
}

// Start begins the outbox processor job
func (p *CalendarOutboxProcessor) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run()
	log.Printf("Calendar outbox processor started (interval: %v)", p.interval)
}

// Stop gracefully stops the outbox processor job
func (p *CalendarOutboxProcessor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.mu.Unlock()

	close(p.stopCh)
	p.wg.Wait()
	log.Println("Calendar outbox processor stopped")
}

func (p *CalendarOutboxProcessor) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.drain()
		case <-p.stopCh:
			return
		}
	}
}

func (p *CalendarOutboxProcessor) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := p.ProcessDue(ctx); err != nil {
		log.Printf("Error processing calendar outbox: %v", err)
	}
}

// ProcessDue dispatches one batch of due operations. Exported for manual
// triggering and tests.
func (p *CalendarOutboxProcessor) ProcessDue(ctx context.Context) error {
	ops, err := p.outbox.Due(ctx, p.batchSize)
	if err != nil {
		return err
	}

	for _, op := range ops {
		if err := p.scheduler.Dispatch(ctx, op); err != nil {
			p.recordFailure(ctx, op, err)
		}
	}
	return nil
}

func (p *CalendarOutboxProcessor) recordFailure(ctx context.Context, op *model.CalendarOp, dispatchErr error) {
	attempts := op.Attempts + 1
	if attempts >= p.maxAttempts {
		log.Printf("Abandoning calendar op %s after %d attempts: %v", op.ID, attempts, dispatchErr)
		if err := p.outbox.MarkFailed(ctx, op.ID, dispatchErr.Error()); err != nil {
			log.Printf("Error marking calendar op %s failed: %v", op.ID, err)
		}
		return
	}

	next := time.Now().Add(p.backoff(attempts))
	if err := p.outbox.Reschedule(ctx, op.ID, next, dispatchErr.Error()); err != nil {
		log.Printf("Error rescheduling calendar op %s: %v", op.ID, err)
	}
}

// backoff doubles per attempt: base, 2x, 4x, capped at an hour.
func (p *CalendarOutboxProcessor) backoff(attempts int) time.Duration {
	d := p.baseBackoff
	for i := 1; i < attempts && d < time.Hour; i++ {
		d *= 2
	}
	if d > time.Hour {
		d = time.Hour
	}
	return d
}

// IsRunning returns whether the processor is running
func (p *CalendarOutboxProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
