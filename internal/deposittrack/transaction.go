package deposittrack

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/gabapcia/depositwatch/internal/chaingateway"
	"github.com/gabapcia/depositwatch/internal/pkg/logger"
	"github.com/gabapcia/depositwatch/internal/pkg/validator"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrMissingGasPrice is returned for transactions whose provider omitted the gas price.
var ErrMissingGasPrice = errors.New("transaction has no gas price")

// handleTransaction turns a transaction into a stored deposit when it targets a watched
// address, then announces the outcome.
func (s *service) handleTransaction(ctx context.Context, tx chaingateway.TransactionData) {
	if !s.filter.Contains(tx.To) {
		return
	}

	ctx, span := s.tracer.Start(ctx, "deposittrack.handleTransaction",
		trace.WithAttributes(
			attribute.String("tx.hash", tx.Hash),
			attribute.Int64("block.number", int64(tx.BlockNumber)),
		),
	)
	defer span.End()

	if err := s.recordDeposit(ctx, tx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.recorder.RecordDeposit(statusFailed)
		logger.Error(ctx, "failed to process deposit", "tx.hash", tx.Hash, "error", err)

		s.notify(ctx, fmt.Sprintf("Error processing deposit: %s", tx.Hash))
		return
	}

	s.recorder.RecordDeposit(statusStored)
}

func (s *service) recordDeposit(ctx context.Context, tx chaingateway.TransactionData) error {
	fee, err := transactionFee(tx)
	if err != nil {
		return err
	}

	deposit := Deposit{
		BlockNumber:    tx.BlockNumber,
		BlockTimestamp: tx.BlockTimestamp,
		Fee:            fee,
		Hash:           tx.Hash,
		Pubkey:         tx.From,
		Blockchain:     s.gateway.Blockchain(),
		Network:        s.gateway.Network(),
		Token:          s.gateway.Token(),
	}

	if err := validator.Validate(deposit); err != nil {
		return err
	}

	if err := s.store.Upsert(ctx, deposit); err != nil {
		return fmt.Errorf("store deposit: %w", err)
	}

	if err := s.notifier.Notify(ctx, depositMessage(tx, fee)); err != nil {
		s.recorder.RecordNotification(statusFailed)
		return fmt.Errorf("notify deposit: %w", err)
	}
	s.recorder.RecordNotification(statusSent)

	logger.Info(ctx, "deposit processed", "tx.hash", tx.Hash, "block.number", tx.BlockNumber, "to", tx.To)
	return nil
}

// notify sends a message whose own failure is only logged.
func (s *service) notify(ctx context.Context, message string) {
	if err := s.notifier.Notify(ctx, message); err != nil {
		s.recorder.RecordNotification(statusFailed)
		logger.Error(ctx, "failed to send notification", "error", err)
		return
	}
	s.recorder.RecordNotification(statusSent)
}

// transactionFee returns gasLimit * gasPrice in wei.
func transactionFee(tx chaingateway.TransactionData) (*big.Int, error) {
	if tx.GasPrice == nil {
		return nil, ErrMissingGasPrice
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(tx.GasLimit), tx.GasPrice), nil
}

func depositMessage(tx chaingateway.TransactionData, fee *big.Int) string {
	value := "0"
	if tx.Value != nil {
		value = tx.Value.String()
	}

	return fmt.Sprintf("Deposit processed: %s\n\nAmount: %s\nFee: %s\nFrom: %s\nTo: %s\nBlock: %d",
		tx.Hash, value, fee.String(), tx.From, tx.To, tx.BlockNumber)
}
