// Package ledger meters credit spend for downstream model calls. Every
// metered operation follows the same shape: reserve the cost up front,
// do the work, then settle the reservation exactly once, with Complete
// on success or Refund on failure. The net balance change is therefore
// always -cost or zero.
package ledger

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"narrativeiq/pkg/schema"
)

// BalanceStore is the conditional-debit surface the ledger needs. The
// Badger store satisfies it with serializable per-user transactions.
type BalanceStore interface {
	TryDebit(ctx context.Context, userID string, amount int) (bool, error)
	Credit(ctx context.Context, userID string, amount int) (int, error)
	Balance(ctx context.Context, userID string) (int, error)
}

// AuditLog receives one append-only record per completed operation.
type AuditLog interface {
	AppendRecord(ctx context.Context, rec schema.Record) (schema.Record, error)
}

// InsufficientCreditsError reports a reserve attempt the balance could not
// cover. Handlers map it to HTTP 402.
type InsufficientCreditsError struct {
	Operation schema.Operation
	Needed    int
	Current   int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits for %s: need %d, have %d", e.Operation, e.Needed, e.Current)
}

type Ledger struct {
	balances     BalanceStore
	audit        AuditLog
	costs        map[schema.Operation]int
	auditTimeout time.Duration
}

func New(balances BalanceStore, audit AuditLog, costs map[schema.Operation]int, auditTimeout time.Duration) *Ledger {
	if costs == nil {
		costs = schema.DefaultPricing()
	}
	if auditTimeout <= 0 {
		auditTimeout = 5 * time.Second
	}
	return &Ledger{
		balances:     balances,
		audit:        audit,
		costs:        costs,
		auditTimeout: auditTimeout,
	}
}

// Cost returns the credit price of op, or zero for unknown operations.
func (l *Ledger) Cost(op schema.Operation) int {
	return l.costs[op]
}

// Balance reports the user's current credit balance.
func (l *Ledger) Balance(ctx context.Context, userID string) (int, error) {
	return l.balances.Balance(ctx, userID)
}

// Reserve atomically debits the operation's cost from the user's balance.
// On success the returned reservation must be settled exactly once; on an
// uncovered balance it returns *InsufficientCreditsError.
func (l *Ledger) Reserve(ctx context.Context, userID string, op schema.Operation) (*Reservation, error) {
	cost := l.costs[op]
	if cost < 0 {
		return nil, fmt.Errorf("invalid cost %d for operation %s", cost, op)
	}

	ok, err := l.balances.TryDebit(ctx, userID, cost)
	if err != nil {
		return nil, fmt.Errorf("reserving %d credits: %w", cost, err)
	}
	if !ok {
		current, err := l.balances.Balance(ctx, userID)
		if err != nil {
			return nil, err
		}
		return nil, &InsufficientCreditsError{Operation: op, Needed: cost, Current: current}
	}

	return &Reservation{ledger: l, userID: userID, op: op, cost: cost}, nil
}

// Reservation is one in-flight reserved spend. Settle it with exactly one
// of Complete or Refund; later settle calls are no-ops.
type Reservation struct {
	ledger  *Ledger
	userID  string
	op      schema.Operation
	cost    int
	settled atomic.Bool
}

// Cost returns the number of credits this reservation holds.
func (r *Reservation) Cost() int { return r.cost }

// Refund returns the reserved credits after a downstream failure. It is
// idempotent: only the first settle call on the reservation has effect.
func (r *Reservation) Refund(ctx context.Context) {
	if r.settled.Swap(true) {
		return
	}
	if r.cost == 0 {
		return
	}
	// Refunds must land even when the request context is already dead.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.ledger.auditTimeout)
	defer cancel()
	if _, err := r.ledger.balances.Credit(ctx, r.userID, r.cost); err != nil {
		log.Error("credit refund failed", "user", r.userID, "operation", r.op, "amount", r.cost, "err", err)
	}
}

// Complete finalizes a successful operation: it appends the audit record
// and returns the post-operation balance. The spend itself already happened
// at reserve time, so an audit write failure is logged, not propagated.
func (r *Reservation) Complete(ctx context.Context, rec schema.Record) (int, error) {
	if r.settled.Swap(true) {
		return 0, fmt.Errorf("reservation for %s already settled", r.op)
	}

	rec.UserID = r.userID
	rec.Operation = r.op
	rec.CreditsUsed = r.cost

	// The operation already succeeded and was paid for, so neither the audit
	// write nor the balance read may depend on a request context that the
	// client has since abandoned.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.ledger.auditTimeout)
	defer cancel()
	if _, err := r.ledger.audit.AppendRecord(ctx, rec); err != nil {
		log.Error("audit record append failed", "user", r.userID, "operation", r.op, "err", err)
	}

	return r.ledger.balances.Balance(ctx, r.userID)
}
