// Package depositquery is the read side of the deposit store.
package depositquery

import (
	"context"
	"time"

	"github.com/gabapcia/depositwatch/internal/deposittrack"
	"github.com/gabapcia/depositwatch/internal/pkg/validator"
)

// Filter selects deposits of one chain and token. MinBlockTimestamp, when set, keeps only
// deposits mined at or after it.
type Filter struct {
	Blockchain        string `validate:"required"`
	Network           string `validate:"required"`
	Token             string `validate:"required"`
	MinBlockTimestamp *time.Time
}

// Service lists stored deposits.
type Service interface {
	GetDeposits(ctx context.Context, filter Filter) ([]deposittrack.Deposit, error)
}

type service struct {
	store deposittrack.DepositStore
}

var _ Service = (*service)(nil)

// New builds a Service over store.
func New(store deposittrack.DepositStore) Service {
	return &service{store: store}
}

// GetDeposits implements Service.
func (s *service) GetDeposits(ctx context.Context, filter Filter) ([]deposittrack.Deposit, error) {
	if err := validator.Validate(filter); err != nil {
		return nil, err
	}

	return s.store.Query(ctx, filter.Blockchain, filter.Network, filter.Token, filter.MinBlockTimestamp)
}
