// Package anchor decouples ledger anchoring from request handling. Writes
// to the ledger are best-effort side work: the verdict or ingestion report
// has already been committed by the time an anchor runs, so outcomes are
// observed only through logs and metrics, never through the user-facing
// response.
package anchor

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"certledger/internal/ledger"
)

// Dispatcher runs a bounded queue with a fixed worker pool. Enqueue never
// blocks the caller: when the queue is saturated the request is dropped and
// counted, which is the documented trade-off for keeping the request path
// latency-free.
type Dispatcher struct {
	client  ledger.Client
	queue   chan ledger.AnchorRequest
	logger  *slog.Logger
	metrics *Metrics
	group   *errgroup.Group

	mu     sync.Mutex
	closed bool
}

// NewDispatcher starts the worker pool immediately. Workers use a detached
// context: cancelling the request that enqueued an anchor must not cancel
// the anchor itself.
func NewDispatcher(client ledger.Client, workers, queueSize int, logger *slog.Logger, metrics *Metrics) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 64
	}
	d := &Dispatcher{
		client:  client,
		queue:   make(chan ledger.AnchorRequest, queueSize),
		logger:  logger,
		metrics: metrics,
		group:   new(errgroup.Group),
	}
	for i := 0; i < workers; i++ {
		d.group.Go(d.run)
	}
	return d
}

// Enqueue hands an anchor request to the background pool. Returns false
// when the request was dropped (queue full or dispatcher closed).
func (d *Dispatcher) Enqueue(req ledger.AnchorRequest) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		d.metrics.dropped()
		return false
	}
	select {
	case d.queue <- req:
		d.metrics.enqueued()
		return true
	default:
		d.metrics.dropped()
		d.logger.Warn("anchor queue saturated, dropping request", "roll_number", req.RollNumber)
		return false
	}
}

// Close stops accepting requests and drains the queue before returning.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	_ = d.group.Wait()
}

func (d *Dispatcher) run() error {
	// Detached from any request lifecycle; the ledger client applies its
	// own per-call timeout.
	ctx := context.Background()
	for req := range d.queue {
		result, err := d.client.Anchor(ctx, req)
		if err != nil {
			d.metrics.failed()
			d.logger.Error("ledger anchor failed",
				"roll_number", req.RollNumber,
				"issuer", req.Issuer,
				"error", err,
			)
			continue
		}
		d.metrics.completed()
		d.logger.Info("ledger anchor stored",
			"roll_number", req.RollNumber,
			"tx_ref", result.TxRef,
		)
	}
	return nil
}
