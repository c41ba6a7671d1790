package deposittrack

import (
	"context"
	"time"

	"github.com/gabapcia/depositwatch/internal/chaingateway"

	"github.com/stretchr/testify/mock"
)

type mockT interface {
	mock.TestingT
	Cleanup(func())
}

type ChainGatewayMock struct {
	mock.Mock
}

var _ ChainGateway = (*ChainGatewayMock)(nil)

func NewChainGatewayMock(t mockT) *ChainGatewayMock {
	m := &ChainGatewayMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *ChainGatewayMock) Blockchain() string { return "ethereum" }
func (m *ChainGatewayMock) Network() string    { return "mainnet" }
func (m *ChainGatewayMock) Token() string      { return "ETH" }

func (m *ChainGatewayMock) Block(ctx context.Context, id chaingateway.BlockID) (*chaingateway.Block, error) {
	args := m.Called(ctx, id)
	block, _ := args.Get(0).(*chaingateway.Block)
	return block, args.Error(1)
}

func (m *ChainGatewayMock) TransactionData(ctx context.Context, hash string) (*chaingateway.TransactionData, error) {
	args := m.Called(ctx, hash)
	tx, _ := args.Get(0).(*chaingateway.TransactionData)
	return tx, args.Error(1)
}

func (m *ChainGatewayMock) BlockNumber(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *ChainGatewayMock) WatchBlocks(ctx context.Context) (<-chan uint64, error) {
	args := m.Called(ctx)
	ch, _ := args.Get(0).(<-chan uint64)
	return ch, args.Error(1)
}

func (m *ChainGatewayMock) WatchPendingTransactions(ctx context.Context) (<-chan string, error) {
	args := m.Called(ctx)
	ch, _ := args.Get(0).(<-chan string)
	return ch, args.Error(1)
}

type DepositStoreMock struct {
	mock.Mock
}

var _ DepositStore = (*DepositStoreMock)(nil)

func NewDepositStoreMock(t mockT) *DepositStoreMock {
	m := &DepositStoreMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *DepositStoreMock) Upsert(ctx context.Context, d Deposit) error {
	return m.Called(ctx, d).Error(0)
}

func (m *DepositStoreMock) LatestStoredBlockNumber(ctx context.Context) (uint64, bool, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Bool(1), args.Error(2)
}

func (m *DepositStoreMock) Query(ctx context.Context, blockchain, network, token string, minBlockTimestamp *time.Time) ([]Deposit, error) {
	args := m.Called(ctx, blockchain, network, token, minBlockTimestamp)
	deposits, _ := args.Get(0).([]Deposit)
	return deposits, args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

var _ Notifier = (*NotifierMock)(nil)

func NewNotifierMock(t mockT) *NotifierMock {
	m := &NotifierMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *NotifierMock) Notify(ctx context.Context, message string) error {
	return m.Called(ctx, message).Error(0)
}
