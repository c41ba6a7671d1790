package depositquery

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/gabapcia/depositwatch/internal/deposittrack"
	"github.com/gabapcia/depositwatch/internal/pkg/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type depositStoreMock struct {
	mock.Mock
}

func (m *depositStoreMock) Upsert(ctx context.Context, d deposittrack.Deposit) error {
	return m.Called(ctx, d).Error(0)
}

func (m *depositStoreMock) LatestStoredBlockNumber(ctx context.Context) (uint64, bool, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Bool(1), args.Error(2)
}

func (m *depositStoreMock) Query(ctx context.Context, blockchain, network, token string, minBlockTimestamp *time.Time) ([]deposittrack.Deposit, error) {
	args := m.Called(ctx, blockchain, network, token, minBlockTimestamp)
	deposits, _ := args.Get(0).([]deposittrack.Deposit)
	return deposits, args.Error(1)
}

func TestGetDeposits(t *testing.T) {
	t.Run("should delegate to the store", func(t *testing.T) {
		store := new(depositStoreMock)
		svc := New(store)

		since := time.Unix(1700000000, 0).UTC()
		expected := []deposittrack.Deposit{{Hash: "0x01", Fee: big.NewInt(1050000)}}
		store.On("Query", mock.Anything, "ethereum", "mainnet", "ETH", &since).Return(expected, nil).Once()

		deposits, err := svc.GetDeposits(t.Context(), Filter{
			Blockchain:        "ethereum",
			Network:           "mainnet",
			Token:             "ETH",
			MinBlockTimestamp: &since,
		})

		require.NoError(t, err)
		assert.Equal(t, expected, deposits)
		store.AssertExpectations(t)
	})

	t.Run("should allow an open lower bound", func(t *testing.T) {
		store := new(depositStoreMock)
		svc := New(store)

		store.On("Query", mock.Anything, "ethereum", "mainnet", "ETH", (*time.Time)(nil)).Return(nil, nil).Once()

		deposits, err := svc.GetDeposits(t.Context(), Filter{Blockchain: "ethereum", Network: "mainnet", Token: "ETH"})

		require.NoError(t, err)
		assert.Empty(t, deposits)
		store.AssertExpectations(t)
	})

	t.Run("should reject incomplete filters", func(t *testing.T) {
		store := new(depositStoreMock)
		svc := New(store)

		_, err := svc.GetDeposits(t.Context(), Filter{Blockchain: "ethereum"})

		assert.ErrorIs(t, err, validator.ErrValidationFailed)
		store.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("should return store errors", func(t *testing.T) {
		store := new(depositStoreMock)
		svc := New(store)

		expected := errors.New("query failed")
		store.On("Query", mock.Anything, "ethereum", "mainnet", "ETH", (*time.Time)(nil)).Return(nil, expected).Once()

		_, err := svc.GetDeposits(t.Context(), Filter{Blockchain: "ethereum", Network: "mainnet", Token: "ETH"})

		assert.ErrorIs(t, err, expected)
	})
}
