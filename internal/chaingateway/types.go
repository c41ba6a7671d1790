package chaingateway

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ErrInvalidBlockID is returned when a block identifier cannot be parsed.
var ErrInvalidBlockID = errors.New("invalid block identifier")

// BlockID selects a block by number, by hash or as the chain head.
type BlockID struct {
	Number uint64
	Hash   string
	Latest bool
}

// LatestBlock selects the current chain head.
var LatestBlock = BlockID{Latest: true}

// ByNumber selects the block at height n.
func ByNumber(n uint64) BlockID {
	return BlockID{Number: n}
}

// ByHash selects the block with the given 32-byte hash.
func ByHash(hash string) BlockID {
	return BlockID{Hash: strings.ToLower(hash)}
}

// IsHash reports whether the identifier selects a block by hash.
func (b BlockID) IsHash() bool {
	return b.Hash != ""
}

func (b BlockID) String() string {
	switch {
	case b.Latest:
		return "latest"
	case b.IsHash():
		return b.Hash
	default:
		return strconv.FormatUint(b.Number, 10)
	}
}

// ParseBlockID accepts "latest", a 0x-prefixed 32-byte block hash, a 0x-prefixed hex
// height or a decimal height.
func ParseBlockID(s string) (BlockID, error) {
	s = strings.TrimSpace(s)

	switch {
	case s == "" || strings.EqualFold(s, "latest"):
		return LatestBlock, nil
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		digits := s[2:]
		if len(digits) == 64 {
			if _, ok := new(big.Int).SetString(digits, 16); !ok {
				return BlockID{}, fmt.Errorf("%w: %q", ErrInvalidBlockID, s)
			}
			return ByHash(s), nil
		}

		n, err := strconv.ParseUint(digits, 16, 64)
		if err != nil {
			return BlockID{}, fmt.Errorf("%w: %q", ErrInvalidBlockID, s)
		}
		return ByNumber(n), nil
	default:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return BlockID{}, fmt.Errorf("%w: %q", ErrInvalidBlockID, s)
		}
		return ByNumber(n), nil
	}
}

// Block is the subset of a block the pipeline needs.
type Block struct {
	Number            uint64
	Hash              string
	Timestamp         uint64
	TransactionHashes []string
}

// Transaction is a transaction as reported by a provider. Pending transactions have no
// block yet: Pending is set and the block fields are zero.
type Transaction struct {
	Hash        string
	From        string
	To          string // empty for contract creations
	Value       *big.Int
	Nonce       uint64
	GasPrice    *big.Int
	GasLimit    uint64
	BlockNumber uint64
	BlockHash   string
	Index       uint64
	Type        uint8
	Pending     bool

	MaxPriorityFeePerGas *big.Int
	MaxFeePerGas         *big.Int
	MaxFeePerBlobGas     *big.Int
}

// TransactionData is a transaction enriched with the timestamp of its block.
type TransactionData struct {
	Transaction
	BlockTimestamp uint64
}

// ProviderError is a provider failure carrying a numeric code. Codes 429 and -32603 are
// treated as transient by the fetch queue.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error [%d]: %s", e.Code, e.Message)
}

// ErrorCode exposes the code to the fetch queue's classifier.
func (e *ProviderError) ErrorCode() int {
	return e.Code
}
