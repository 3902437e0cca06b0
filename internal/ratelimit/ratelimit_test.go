package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	l := New(client, 2, time.Hour)
	key := "ratelimit:voucher_redeem:abc"

	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, time.Hour).SetVal(true)
	ok, err := l.Allow(ctx, "voucher_redeem:abc")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectIncr(key).SetVal(2)
	ok, err = l.Allow(ctx, "voucher_redeem:abc")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectIncr(key).SetVal(3)
	ok, err = l.Allow(ctx, "voucher_redeem:abc")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllowRedisError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	l := New(client, 5, time.Minute)

	mock.ExpectIncr("ratelimit:k").SetErr(errors.New("connection refused"))
	ok, err := l.Allow(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReset(t *testing.T) {
	client, mock := redismock.NewClientMock()
	l := New(client, 5, time.Minute)

	mock.ExpectDel("ratelimit:k").SetVal(1)
	require.NoError(t, l.Reset(context.Background(), "k"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
