package chaingateway

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type ChainProviderMock struct {
	mock.Mock
}

func (m *ChainProviderMock) GetTransaction(ctx context.Context, hash string) (*Transaction, error) {
	args := m.Called(ctx, hash)
	tx, _ := args.Get(0).(*Transaction)
	return tx, args.Error(1)
}

func (m *ChainProviderMock) GetBlock(ctx context.Context, id BlockID) (*Block, error) {
	args := m.Called(ctx, id)
	block, _ := args.Get(0).(*Block)
	return block, args.Error(1)
}

func (m *ChainProviderMock) GetBlockNumber(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *ChainProviderMock) SubscribeBlocks(ctx context.Context) (<-chan uint64, error) {
	args := m.Called(ctx)
	ch, _ := args.Get(0).(<-chan uint64)
	return ch, args.Error(1)
}

func (m *ChainProviderMock) SubscribePending(ctx context.Context) (<-chan string, error) {
	args := m.Called(ctx)
	ch, _ := args.Get(0).(<-chan string)
	return ch, args.Error(1)
}

var _ ChainProvider = (*ChainProviderMock)(nil)

func NewChainProviderMock(t interface {
	mock.TestingT
	Cleanup(func())
}) *ChainProviderMock {
	m := &ChainProviderMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
