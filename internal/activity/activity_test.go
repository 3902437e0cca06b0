package activity

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UncleVee2025/barter-trade-sub003/internal/models"
)

type stubStore struct {
	rows []*models.Activity
	err  error
}

func (s *stubStore) InsertActivity(_ context.Context, a *models.Activity) error {
	if s.err != nil {
		return s.err
	}
	s.rows = append(s.rows, a)
	return nil
}

func TestRecord(t *testing.T) {
	store := &stubStore{}
	log := NewLog(store, nil)
	actor, subject := uuid.New(), uuid.New()

	log.Record(context.Background(), actor, subject, BalanceAdjusted{
		AccountID: subject,
		Kind:      string(models.EntryDeduction),
		Amount:    decimal.NewFromInt(30),
	})

	require.Len(t, store.rows, 1)
	row := store.rows[0]
	assert.Equal(t, "balance_adjusted", row.Action)
	assert.Equal(t, actor, row.ActorID)
	assert.Equal(t, subject, row.SubjectID)

	var d BalanceAdjusted
	require.NoError(t, json.Unmarshal(row.Details, &d))
	assert.Equal(t, "deduction", d.Kind)
}

func TestRecordSwallowsStoreErrors(t *testing.T) {
	log := NewLog(&stubStore{err: errors.New("db down")}, nil)
	assert.NotPanics(t, func() {
		log.Record(context.Background(), uuid.New(), uuid.New(), VoucherDisabled{})
	})

	var nilLog *Log
	assert.NotPanics(t, func() {
		nilLog.Record(context.Background(), uuid.New(), uuid.New(), VoucherDisabled{})
	})
}
