package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
)

func TestRedeem_IncrementsWhileLimitNotExhausted(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mockPool.Close()

	couponID := uuid.New()
	mockPool.ExpectExec("UPDATE coupons").
		WithArgs(couponID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewCouponRepo(mockPool)
	ok, err := repo.Redeem(context.Background(), couponID)

	assert.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRedeem_ReportsLostRace(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mockPool.Close()

	// No row matches once used_count reaches usage_limit; the caller sees
	// ok=false instead of an overshoot.
	couponID := uuid.New()
	mockPool.ExpectExec("UPDATE coupons").
		WithArgs(couponID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	repo := NewCouponRepo(mockPool)
	ok, err := repo.Redeem(context.Background(), couponID)

	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestDeactivateExpired_ReturnsSweptCount(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectExec("UPDATE coupons").
		WillReturnResult(pgxmock.NewResult("UPDATE", 7))

	repo := NewCouponRepo(mockPool)
	swept, err := repo.DeactivateExpired(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, int64(7), swept)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
