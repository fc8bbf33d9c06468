package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/civpoints/community_points_app/internal/apperrors"
	"github.com/civpoints/community_points_app/internal/core/domain"
	portsrepo "github.com/civpoints/community_points_app/internal/core/ports/repositories"
	portssvc "github.com/civpoints/community_points_app/internal/core/ports/services"
)

var (
	settlementQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "community_points",
		Name:      "settlement_queue_depth",
		Help:      "Settlement work items waiting in the pool queue.",
	})
	settlementsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "community_points",
		Name:      "settlements_settled_total",
		Help:      "Transfers settled by the pool.",
	})
	settlementRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "community_points",
		Name:      "settlement_retries_total",
		Help:      "Settlement attempts retried after a transient store error.",
	})
	settlementsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "community_points",
		Name:      "settlements_failed_total",
		Help:      "Transfers that could not be settled.",
	})
)

// Settler applies the ledger mutation for one approved transfer.
type Settler interface {
	Settle(ctx context.Context, transferID string) (*domain.Transaction, error)
}

// TransferPoolConfig sizes the settlement pool.
type TransferPoolConfig struct {
	Workers        int
	QueueSize      int
	MaxRetries     uint
	InitialBackoff time.Duration
}

// TransferPool is a bounded worker pool draining settlement work items. It
// serializes settlements per account with keyed mutexes covering both parties
// of a transfer, so concurrent items touching the same account never
// interleave, while items over disjoint accounts proceed in parallel.
type TransferPool struct {
	BaseService
	settler      Settler
	transferRepo portsrepo.PendingTransferRepository
	notifier     portssvc.Notifier
	cfg          TransferPoolConfig

	items chan portssvc.SettlementItem

	mu     sync.RWMutex
	closed bool

	lockMu       sync.Mutex
	accountLocks map[string]*sync.Mutex

	wg  sync.WaitGroup
	now func() time.Time
}

// NewTransferPool creates a settlement pool. Start must be called before the
// pool drains anything.
func NewTransferPool(settler Settler, transferRepo portsrepo.PendingTransferRepository, notifier portssvc.Notifier, cfg TransferPoolConfig) *TransferPool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	return &TransferPool{
		settler:      settler,
		transferRepo: transferRepo,
		notifier:     notifier,
		cfg:          cfg,
		items:        make(chan portssvc.SettlementItem, cfg.QueueSize),
		accountLocks: make(map[string]*sync.Mutex),
		now:          time.Now,
	}
}

// Ensure TransferPool implements the portssvc.SettlementQueue interface
var _ portssvc.SettlementQueue = (*TransferPool)(nil)

// Start launches the workers. The context bounds the store calls the workers
// make, not the pool lifetime; use Stop to shut down.
func (p *TransferPool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Stop closes the queue and waits for in-flight settlements to finish.
// Unsettled items remain approved in the store and are re-enqueued by the
// recovery sweep on the next start.
func (p *TransferPool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.items)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Enqueue admits one work item without blocking. Returns false when the pool
// is stopped or the queue is full.
func (p *TransferPool) Enqueue(item portssvc.SettlementItem) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.items <- item:
		settlementQueueDepth.Inc()
		return true
	default:
		return false
	}
}

func (p *TransferPool) worker(ctx context.Context) {
	defer p.wg.Done()
	for item := range p.items {
		settlementQueueDepth.Dec()
		p.process(ctx, item)
	}
}

// locksFor returns the mutexes guarding both parties of one settlement, in
// key order so two items touching the same account pair cannot deadlock.
func (p *TransferPool) locksFor(item portssvc.SettlementItem) []*sync.Mutex {
	keys := []string{item.CommunityID + "/" + item.InitiatorID}
	if item.TargetID != "" && item.TargetID != item.InitiatorID {
		keys = append(keys, item.CommunityID+"/"+item.TargetID)
	}
	sort.Strings(keys)

	p.lockMu.Lock()
	defer p.lockMu.Unlock()
	locks := make([]*sync.Mutex, len(keys))
	for i, key := range keys {
		lock, ok := p.accountLocks[key]
		if !ok {
			lock = &sync.Mutex{}
			p.accountLocks[key] = lock
		}
		locks[i] = lock
	}
	return locks
}

func (p *TransferPool) process(ctx context.Context, item portssvc.SettlementItem) {
	locks := p.locksFor(item)
	for _, lock := range locks {
		lock.Lock()
	}
	defer func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}()

	txn, err := p.settleWithRetry(ctx, item.TransferID)
	if err != nil {
		p.handleFailure(ctx, item, err)
		return
	}

	settlementsSettled.Inc()
	p.LogInfo(ctx, "Settlement completed",
		slog.String("transfer_id", item.TransferID),
		slog.String("transaction_id", txn.TransactionID))
	p.notify(ctx, item, portssvc.EventTransferSettled, map[string]string{
		"transfer_id":    item.TransferID,
		"transaction_id": txn.TransactionID,
		"amount":         strconv.FormatInt(txn.Amount, 10),
	})
}

// settleWithRetry retries transient store failures with exponential backoff
// up to the configured ceiling. Business refusals are permanent and fail the
// first time.
func (p *TransferPool) settleWithRetry(ctx context.Context, transferID string) (*domain.Transaction, error) {
	expo := backoff.NewExponentialBackOff()
	if p.cfg.InitialBackoff > 0 {
		expo.InitialInterval = p.cfg.InitialBackoff
	}

	attempt := 0
	return backoff.Retry(ctx, func() (*domain.Transaction, error) {
		attempt++
		txn, err := p.settler.Settle(ctx, transferID)
		if err != nil {
			if errors.Is(err, apperrors.ErrTransientStore) {
				if attempt > 1 {
					settlementRetries.Inc()
				}
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return txn, nil
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(p.cfg.MaxRetries))
}

// handleFailure records a terminal settlement failure. A transfer decided or
// swept away under the pool's feet is not a failure, just stale work.
func (p *TransferPool) handleFailure(ctx context.Context, item portssvc.SettlementItem, err error) {
	if errors.Is(err, apperrors.ErrNotApproved) || errors.Is(err, apperrors.ErrNotFound) {
		p.LogDebug(ctx, "Dropping stale settlement item",
			slog.String("transfer_id", item.TransferID),
			slog.String("error", err.Error()))
		return
	}

	settlementsFailed.Inc()
	p.LogError(ctx, err, "Settlement failed terminally",
		slog.String("transfer_id", item.TransferID))

	if markErr := p.transferRepo.MarkPendingTransferExpired(ctx, item.TransferID, p.now()); markErr != nil {
		p.LogError(ctx, markErr, "Failed to mark transfer expired after settlement failure",
			slog.String("transfer_id", item.TransferID))
	}
	p.notify(ctx, item, portssvc.EventTransferFailed, map[string]string{
		"transfer_id": item.TransferID,
		"error":       err.Error(),
	})
}

// notify delivers the outcome to the initiator. The interaction token rides
// along only while still usable; an expired token degrades to a plain
// notification rather than an error.
func (p *TransferPool) notify(ctx context.Context, item portssvc.SettlementItem, event portssvc.EventKind, fields map[string]string) {
	if p.notifier == nil {
		return
	}
	token := item.Token
	if !token.Usable(p.now()) {
		token = nil
	}
	n := portssvc.Notification{
		CommunityID: item.CommunityID,
		RecipientID: item.InitiatorID,
		Event:       event,
		Fields:      fields,
		Token:       token,
	}
	if err := p.notifier.Notify(ctx, n); err != nil {
		p.LogWarn(ctx, "Notification delivery failed",
			slog.String("transfer_id", item.TransferID),
			slog.String("event", string(event)),
			slog.String("error", err.Error()))
	}
}
