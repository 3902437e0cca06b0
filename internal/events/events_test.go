package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	sender, receiver := uuid.New(), uuid.New()
	ev := OfferAccepted{
		OfferID:      uuid.New(),
		SenderID:     sender,
		ReceiverID:   receiver,
		WalletAmount: decimal.NewFromInt(100),
	}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	env, err := Encode(ev, at)
	require.NoError(t, err)
	assert.Equal(t, "offer_accepted", env.Type)
	assert.Equal(t, []uuid.UUID{sender}, env.Recipients)
	assert.Equal(t, at, env.OccurredAt)

	var decoded OfferAccepted
	require.NoError(t, json.Unmarshal(env.Payload, &decoded))
	assert.Equal(t, ev.OfferID, decoded.OfferID)
	assert.True(t, decoded.WalletAmount.Equal(ev.WalletAmount))
}

func TestOfferExpiredNotifiesBothSides(t *testing.T) {
	ev := OfferExpired{OfferID: uuid.New(), SenderID: uuid.New(), ReceiverID: uuid.New()}
	assert.ElementsMatch(t, []uuid.UUID{ev.SenderID, ev.ReceiverID}, ev.Recipients())
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Emit(context.Background(), OfferRejected{})
	r.Emit(context.Background(), WalletCredited{})
	assert.Equal(t, []string{"offer_rejected", "wallet_credited"}, r.Types())
}
