package marketplace

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iamprecieee/raiku-simulator/pkg/auction"
)

// TransactionStatus is the lifecycle state of a submitted transaction.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusAuctionWon TransactionStatus = "auction_won"
	StatusIncluded   TransactionStatus = "included"
	StatusFailed     TransactionStatus = "failed"
)

// InclusionType selects how the transaction competes for a slot.
type InclusionType struct {
	Kind auction.Kind `json:"kind"`
	Slot uint64       `json:"slot"`
}

// Transaction is one bid submission tracked through resolution.
type Transaction struct {
	ID            string            `json:"id"`
	Sender        string            `json:"sender"`
	Inclusion     InclusionType     `json:"inclusion"`
	Status        TransactionStatus `json:"status"`
	ComputeUnits  uint64            `json:"compute_units"`
	PriorityFee   float64           `json:"priority_fee"`
	Data          string            `json:"data,omitempty"`
	SubmittedAt   time.Time         `json:"submitted_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	IncludedAt    *time.Time        `json:"included_at,omitempty"`
	FailureReason string            `json:"failure_reason,omitempty"`
}

// bidMatchEpsilon tolerates float drift when matching a pending bid amount
// against the winning amount at settlement.
const bidMatchEpsilon = 0.0001

// NewTransaction creates a pending transaction for the given bid.
func NewTransaction(sender string, kind auction.Kind, slot uint64, amount float64, computeUnits uint64, data string) *Transaction {
	now := time.Now()

	return &Transaction{
		ID:           uuid.NewString(),
		Sender:       sender,
		Inclusion:    InclusionType{Kind: kind, Slot: slot},
		Status:       StatusPending,
		ComputeUnits: computeUnits,
		PriorityFee:  amount,
		Data:         data,
		SubmittedAt:  now,
		UpdatedAt:    now,
	}
}

// Ledger stores transactions and indexes them by sender session.
type Ledger struct {
	mu       sync.RWMutex
	byID     map[string]*Transaction
	bySender map[string][]string
}

// NewLedger creates an empty transaction ledger.
func NewLedger() *Ledger {
	return &Ledger{
		byID:     make(map[string]*Transaction),
		bySender: make(map[string][]string),
	}
}

// Add records a transaction.
func (l *Ledger) Add(tx *Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.byID[tx.ID] = tx
	l.bySender[tx.Sender] = append(l.bySender[tx.Sender], tx.ID)
}

// Get returns a copy of the transaction with the given id.
func (l *Ledger) Get(id string) (Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tx, ok := l.byID[id]
	if !ok {
		return Transaction{}, false
	}

	return *tx, true
}

// SetStatus transitions a transaction and returns the updated copy.
func (l *Ledger) SetStatus(id string, status TransactionStatus, reason string) (Transaction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, ok := l.byID[id]
	if !ok {
		return Transaction{}, false
	}

	tx.Status = status
	tx.FailureReason = reason
	tx.UpdatedAt = time.Now()

	return *tx, true
}

// settleWinner resolves the winner's pending transactions on the slot. The
// entry matching the winning bid is marked won; every other pending entry
// was superseded by the winner's own later bid, fails, and its fee is
// returned. Returns the updated copies and the total superseded refund.
func (l *Ledger) settleWinner(sender string, kind auction.Kind, slot uint64, winningBid float64) ([]Transaction, float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	var (
		updated []Transaction
		refund  float64
	)

	for _, id := range l.bySender[sender] {
		tx := l.byID[id]
		if tx.Status != StatusPending || tx.Inclusion.Kind != kind || tx.Inclusion.Slot != slot {
			continue
		}

		if math.Abs(tx.PriorityFee-winningBid) < bidMatchEpsilon {
			tx.Status = StatusAuctionWon
			tx.IncludedAt = &now
		} else {
			tx.Status = StatusFailed
			tx.FailureReason = fmt.Sprintf("outbid by higher amount, refunding %.4f", tx.PriorityFee)
			refund += tx.PriorityFee
		}

		tx.UpdatedAt = now
		updated = append(updated, *tx)
	}

	return updated, refund
}

// failPending fails every pending transaction the sender has on the slot
// and auction kind, returning the updated copies.
func (l *Ledger) failPending(sender string, kind auction.Kind, slot uint64, reason string) []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	var updated []Transaction

	for _, id := range l.bySender[sender] {
		tx := l.byID[id]
		if tx.Status != StatusPending || tx.Inclusion.Kind != kind || tx.Inclusion.Slot != slot {
			continue
		}

		tx.Status = StatusFailed
		tx.FailureReason = reason
		tx.UpdatedAt = now
		updated = append(updated, *tx)
	}

	return updated
}

// failOutbid fails every other sender's pending transaction on the slot and
// auction kind, returning the updated copies and the refund owed per sender.
func (l *Ledger) failOutbid(winner string, kind auction.Kind, slot uint64, reason string) ([]Transaction, map[string]float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	refunds := make(map[string]float64)

	var updated []Transaction

	for _, tx := range l.byID {
		if tx.Sender == winner || tx.Status != StatusPending || tx.Inclusion.Kind != kind || tx.Inclusion.Slot != slot {
			continue
		}

		tx.Status = StatusFailed
		tx.FailureReason = reason
		tx.UpdatedAt = now
		refunds[tx.Sender] += tx.PriorityFee
		updated = append(updated, *tx)
	}

	return updated, refunds
}

// BySender returns the sender's transactions newest first, paginated.
func (l *Ledger) BySender(sender string, offset, limit int) ([]Transaction, int) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := l.bySender[sender]
	total := len(ids)

	txs := make([]Transaction, 0, total)
	for _, id := range ids {
		txs = append(txs, *l.byID[id])
	}

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].SubmittedAt.After(txs[j].SubmittedAt)
	})

	if offset >= len(txs) {
		return nil, total
	}

	end := offset + limit
	if limit <= 0 || end > len(txs) {
		end = len(txs)
	}

	return txs[offset:end], total
}

// RemoveSenders drops all transactions belonging to the given senders.
func (l *Ledger) RemoveSenders(senders []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, sender := range senders {
		for _, id := range l.bySender[sender] {
			delete(l.byID, id)
		}

		delete(l.bySender, sender)
	}
}

// Len returns the number of stored transactions.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.byID)
}
