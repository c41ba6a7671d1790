package cli

import (
	"context"

	"github.com/gabapcia/depositwatch/internal/chaingateway"
	"github.com/gabapcia/depositwatch/internal/depositquery"
	"github.com/gabapcia/depositwatch/internal/deposittrack"

	"github.com/stretchr/testify/mock"
)

type mockT interface {
	mock.TestingT
	Cleanup(func())
}

type TrackerMock struct {
	mock.Mock
}

var _ deposittrack.Service = (*TrackerMock)(nil)

func NewTrackerMock(t mockT) *TrackerMock {
	m := &TrackerMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *TrackerMock) ProcessBlock(ctx context.Context, id chaingateway.BlockID) {
	m.Called(ctx, id)
}

func (m *TrackerMock) BackfillFrom(ctx context.Context, startBlock uint64) error {
	return m.Called(ctx, startBlock).Error(0)
}

func (m *TrackerMock) WatchLiveBlocks(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *TrackerMock) WatchPendingTransactions(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type QueryMock struct {
	mock.Mock
}

var _ depositquery.Service = (*QueryMock)(nil)

func NewQueryMock(t mockT) *QueryMock {
	m := &QueryMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *QueryMock) GetDeposits(ctx context.Context, filter depositquery.Filter) ([]deposittrack.Deposit, error) {
	args := m.Called(ctx, filter)
	deposits, _ := args.Get(0).([]deposittrack.Deposit)
	return deposits, args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

var _ deposittrack.Notifier = (*NotifierMock)(nil)

func NewNotifierMock(t mockT) *NotifierMock {
	m := &NotifierMock{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *NotifierMock) Notify(ctx context.Context, message string) error {
	return m.Called(ctx, message).Error(0)
}
