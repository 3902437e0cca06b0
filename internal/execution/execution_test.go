package execution

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UncleVee2025/barter-trade-sub003/internal/events"
)

func deliverJob(t *testing.T, ev events.Event) *river.Job[DeliverEventArgs] {
	t.Helper()
	env, err := events.Encode(ev, time.Now())
	require.NoError(t, err)
	return &river.Job[DeliverEventArgs]{JobRow: &rivertype.JobRow{ID: 1}, Args: DeliverEventArgs{Envelope: env}}
}

func TestDeliverEventWorker_PostsEnvelope(t *testing.T) {
	var got events.Envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "voucher_redeemed", r.Header.Get("X-Event-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	acct := uuid.New()
	job := deliverJob(t, events.VoucherRedeemed{VoucherID: uuid.New(), AccountID: acct, Amount: decimal.NewFromInt(50)})
	w := NewDeliverEventWorker(srv.URL, nil)
	require.NoError(t, w.Work(context.Background(), job))
	assert.Equal(t, "voucher_redeemed", got.Type)
	assert.Equal(t, []uuid.UUID{acct}, got.Recipients)
}

func TestDeliverEventWorker_RetriesOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	job := deliverJob(t, events.OfferRejected{OfferID: uuid.New(), SenderID: uuid.New(), ReceiverID: uuid.New()})
	err := NewDeliverEventWorker(srv.URL, nil).Work(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestDeliverEventWorker_NoWebhookLogs(t *testing.T) {
	job := deliverJob(t, events.OfferCreated{OfferID: uuid.New(), SenderID: uuid.New(), ReceiverID: uuid.New()})
	assert.NoError(t, NewDeliverEventWorker("", nil).Work(context.Background(), job))
}

type fakeInserter struct {
	mu   sync.Mutex
	args []river.JobArgs
	err  error
}

func (f *fakeInserter) Insert(_ context.Context, args river.JobArgs, _ *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.args = append(f.args, args)
	return &rivertype.JobInsertResult{Job: &rivertype.JobRow{ID: int64(len(f.args))}}, nil
}

func TestEventQueue(t *testing.T) {
	ctx := context.Background()
	q := NewEventQueue(nil)

	// Not yet wired: dropped without panicking.
	q.Emit(ctx, events.OfferCancelled{OfferID: uuid.New()})

	ins := &fakeInserter{}
	q.SetInserter(ins)
	offerID := uuid.New()
	q.Emit(ctx, events.OfferAccepted{OfferID: offerID, SenderID: uuid.New(), ReceiverID: uuid.New()})

	require.Len(t, ins.args, 1)
	args, ok := ins.args[0].(DeliverEventArgs)
	require.True(t, ok)
	assert.Equal(t, "offer_accepted", args.Envelope.Type)

	var payload events.OfferAccepted
	require.NoError(t, json.Unmarshal(args.Envelope.Payload, &payload))
	assert.Equal(t, offerID, payload.OfferID)

	ins.err = errors.New("queue down")
	q.Emit(ctx, events.OfferRejected{OfferID: uuid.New()})
	assert.Len(t, ins.args, 1)
}

type stubSweeper struct {
	n   int
	err error
	at  time.Time
}

func (s *stubSweeper) ExpireStale(_ context.Context, now time.Time) (int, error) {
	s.at = now
	return s.n, s.err
}

func TestExpireOffersWorker(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s := &stubSweeper{n: 3}
	w := NewExpireOffersWorker(s, nil)
	w.now = func() time.Time { return fixed }

	job := &river.Job[ExpireOffersArgs]{JobRow: &rivertype.JobRow{ID: 7}}
	require.NoError(t, w.Work(context.Background(), job))
	assert.Equal(t, fixed, s.at)

	s.err = errors.New("db down")
	assert.Error(t, w.Work(context.Background(), job))
}

func TestPeriodicJobs(t *testing.T) {
	assert.Len(t, PeriodicJobs(15*time.Minute), 1)
}
