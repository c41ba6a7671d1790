package deposittrack

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/gabapcia/depositwatch/internal/chaingateway"
	"github.com/gabapcia/depositwatch/internal/pkg/types"
)

// Deposit is a transfer into one of the watched addresses. Hash is unique per
// (Blockchain, Network).
type Deposit struct {
	BlockNumber    uint64   `json:"blockNumber"`
	BlockTimestamp uint64   `json:"blockTimestamp" validate:"required"`
	Fee            *big.Int `json:"fee" validate:"required"`
	Hash           string   `json:"hash" validate:"required,hexprefixed"`
	Pubkey         string   `json:"pubkey" validate:"required,hexprefixed"`
	Blockchain     string   `json:"blockchain" validate:"required"`
	Network        string   `json:"network" validate:"required"`
	Token          string   `json:"token" validate:"required"`
}

// FilterSet holds the watched destination addresses. Membership is case-insensitive.
type FilterSet struct {
	addresses types.Set[string]
}

// NewFilterSet builds a FilterSet. Blank entries are ignored.
func NewFilterSet(addresses ...string) FilterSet {
	set := types.NewSet[string]()
	for _, addr := range addresses {
		if addr = strings.TrimSpace(addr); addr != "" {
			set.Add(strings.ToLower(addr))
		}
	}
	return FilterSet{addresses: set}
}

// Contains reports whether addr is watched.
func (f FilterSet) Contains(addr string) bool {
	if addr == "" {
		return false
	}
	return f.addresses.Has(strings.ToLower(addr))
}

// Addresses returns the watched addresses, lower-cased and sorted.
func (f FilterSet) Addresses() []string {
	return types.Sorted(f.addresses)
}

// Len returns the number of watched addresses.
func (f FilterSet) Len() int {
	return len(f.addresses)
}

// ChainGateway is the chain access the pipeline depends on.
type ChainGateway interface {
	Blockchain() string
	Network() string
	Token() string

	Block(ctx context.Context, id chaingateway.BlockID) (*chaingateway.Block, error)
	TransactionData(ctx context.Context, hash string) (*chaingateway.TransactionData, error)
	BlockNumber(ctx context.Context) (uint64, error)
	WatchBlocks(ctx context.Context) (<-chan uint64, error)
	WatchPendingTransactions(ctx context.Context) (<-chan string, error)
}

// DepositStore persists deposits.
type DepositStore interface {
	// Upsert stores d. Storing a hash that already exists is not an error and leaves the
	// stored record untouched.
	Upsert(ctx context.Context, d Deposit) error

	// LatestStoredBlockNumber returns the highest block number among stored deposits.
	// The boolean is false when nothing is stored yet.
	LatestStoredBlockNumber(ctx context.Context) (uint64, bool, error)

	// Query returns the deposits of a chain and token, optionally limited to blocks mined
	// at or after minBlockTimestamp.
	Query(ctx context.Context, blockchain, network, token string, minBlockTimestamp *time.Time) ([]Deposit, error)
}

// Notifier delivers human readable messages.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Recorder receives pipeline events. Implemented by the metrics package.
type Recorder interface {
	RecordBlock(status string)
	RecordDeposit(status string)
	RecordNotification(status string)
}

const (
	statusProcessed = "processed"
	statusSkipped   = "skipped"
	statusStored    = "stored"
	statusFailed    = "failed"
	statusSent      = "sent"
)

type nopRecorder struct{}

func (nopRecorder) RecordBlock(string)        {}
func (nopRecorder) RecordDeposit(string)      {}
func (nopRecorder) RecordNotification(string) {}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string) error { return nil }
