// Package events defines the notifications the engine emits after a unit of
// work commits. Each kind is its own struct so a payload carries exactly the
// fields its kind defines.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is implemented by every event kind.
type Event interface {
	// Type is the wire name of the event kind.
	Type() string
	// Recipients are the accounts the notification is addressed to.
	Recipients() []uuid.UUID
}

// Emitter delivers events outside the transactional boundary. Emit never
// reports failure to the caller; implementations log their own errors.
type Emitter interface {
	Emit(ctx context.Context, ev Event)
}

type OfferCreated struct {
	OfferID      uuid.UUID       `json:"offer_id"`
	SenderID     uuid.UUID       `json:"sender_id"`
	ReceiverID   uuid.UUID       `json:"receiver_id"`
	WalletAmount decimal.Decimal `json:"wallet_amount"`
	ItemCount    int             `json:"item_count"`
}

func (OfferCreated) Type() string              { return "offer_created" }
func (e OfferCreated) Recipients() []uuid.UUID { return []uuid.UUID{e.ReceiverID} }

type OfferAccepted struct {
	OfferID      uuid.UUID       `json:"offer_id"`
	SenderID     uuid.UUID       `json:"sender_id"`
	ReceiverID   uuid.UUID       `json:"receiver_id"`
	WalletAmount decimal.Decimal `json:"wallet_amount"`
	ItemIDs      []uuid.UUID     `json:"item_ids"`
}

func (OfferAccepted) Type() string              { return "offer_accepted" }
func (e OfferAccepted) Recipients() []uuid.UUID { return []uuid.UUID{e.SenderID} }

type OfferRejected struct {
	OfferID    uuid.UUID `json:"offer_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
}

func (OfferRejected) Type() string              { return "offer_rejected" }
func (e OfferRejected) Recipients() []uuid.UUID { return []uuid.UUID{e.SenderID} }

type OfferCancelled struct {
	OfferID    uuid.UUID `json:"offer_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
}

func (OfferCancelled) Type() string              { return "offer_cancelled" }
func (e OfferCancelled) Recipients() []uuid.UUID { return []uuid.UUID{e.ReceiverID} }

type OfferExpired struct {
	OfferID    uuid.UUID `json:"offer_id"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
}

func (OfferExpired) Type() string { return "offer_expired" }
func (e OfferExpired) Recipients() []uuid.UUID {
	return []uuid.UUID{e.SenderID, e.ReceiverID}
}

// WalletCredited is emitted for every credit entry that commits.
type WalletCredited struct {
	AccountID      uuid.UUID       `json:"account_id"`
	EntryID        uuid.UUID       `json:"entry_id"`
	Kind           string          `json:"kind"`
	Amount         decimal.Decimal `json:"amount"`
	BalanceAfter   decimal.Decimal `json:"balance_after"`
	CounterpartyID *uuid.UUID      `json:"counterparty_id,omitempty"`
	Reference      string          `json:"reference"`
}

func (WalletCredited) Type() string              { return "wallet_credited" }
func (e WalletCredited) Recipients() []uuid.UUID { return []uuid.UUID{e.AccountID} }

// WalletDebited is emitted for every debit entry that commits.
type WalletDebited struct {
	AccountID      uuid.UUID       `json:"account_id"`
	EntryID        uuid.UUID       `json:"entry_id"`
	Kind           string          `json:"kind"`
	Amount         decimal.Decimal `json:"amount"`
	BalanceAfter   decimal.Decimal `json:"balance_after"`
	CounterpartyID *uuid.UUID      `json:"counterparty_id,omitempty"`
	Reference      string          `json:"reference"`
}

func (WalletDebited) Type() string              { return "wallet_debited" }
func (e WalletDebited) Recipients() []uuid.UUID { return []uuid.UUID{e.AccountID} }

type VoucherRedeemed struct {
	VoucherID uuid.UUID       `json:"voucher_id"`
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	BatchID   uuid.UUID       `json:"batch_id"`
}

func (VoucherRedeemed) Type() string              { return "voucher_redeemed" }
func (e VoucherRedeemed) Recipients() []uuid.UUID { return []uuid.UUID{e.AccountID} }

type VoucherBatchIssued struct {
	BatchID   uuid.UUID       `json:"batch_id"`
	Amount    decimal.Decimal `json:"amount"`
	Quantity  int             `json:"quantity"`
	Vendor    string          `json:"vendor"`
	CreatedBy uuid.UUID       `json:"created_by"`
}

func (VoucherBatchIssued) Type() string              { return "voucher_batch_issued" }
func (e VoucherBatchIssued) Recipients() []uuid.UUID { return []uuid.UUID{e.CreatedBy} }

type TopUpResolved struct {
	RequestID uuid.UUID       `json:"request_id"`
	AccountID uuid.UUID       `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	AdminID   uuid.UUID       `json:"admin_id"`
}

func (TopUpResolved) Type() string              { return "topup_resolved" }
func (e TopUpResolved) Recipients() []uuid.UUID { return []uuid.UUID{e.AccountID} }

// Envelope is the serialized form handed to delivery workers.
type Envelope struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	Recipients []uuid.UUID     `json:"recipients"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Encode wraps ev in an Envelope.
func Encode(ev Event, at time.Time) (Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s event: %w", ev.Type(), err)
	}
	return Envelope{
		ID:         uuid.New(),
		Type:       ev.Type(),
		Recipients: ev.Recipients(),
		OccurredAt: at.UTC(),
		Payload:    payload,
	}, nil
}

// LogEmitter writes events to a logger. Used when no delivery backend is
// configured.
type LogEmitter struct {
	Logger *slog.Logger
}

func (l LogEmitter) Emit(_ context.Context, ev Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("event", "type", ev.Type(), "recipients", ev.Recipients(), "payload", ev)
}

// Recorder keeps emitted events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the Type of each recorded event, in order.
func (r *Recorder) Types() []string {
	evs := r.Events()
	out := make([]string, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type()
	}
	return out
}

// Nop discards events.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}
