package ethereum

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"
)

type ConnMock struct {
	mock.Mock
}

func (m *ConnMock) Fetch(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	args := m.Called(append([]any{ctx, method}, params...)...)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}

type mockT interface {
	mock.TestingT
	Cleanup(func())
}

func NewConnMock(t mockT) *ConnMock {
	m := new(ConnMock)
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}
