package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// ErrInvalidHex is returned for strings that are not 0x-prefixed hexadecimal quantities.
var ErrInvalidHex = errors.New("invalid hex quantity")

// Hex is a 0x-prefixed hexadecimal quantity as used by Ethereum JSON-RPC (e.g. "0x1a").
// Values may exceed 64 bits, so wei amounts decode through BigInt.
type Hex string

// HexFromString validates s and returns it as a Hex.
func HexFromString(s string) (Hex, error) {
	if err := validateHex(s); err != nil {
		return "", err
	}
	return Hex(s), nil
}

// HexFromUint64 encodes n without leading zeros, as JSON-RPC expects for quantities.
func HexFromUint64(n uint64) Hex {
	return Hex("0x" + strconv.FormatUint(n, 16))
}

func digits(s string) (string, bool) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "", false
	}
	return s[2:], true
}

func validateHex(s string) error {
	d, ok := digits(s)
	if !ok {
		return fmt.Errorf("%w: %q must start with 0x", ErrInvalidHex, s)
	}
	if d == "" {
		return fmt.Errorf("%w: %q has no digits", ErrInvalidHex, s)
	}
	if _, ok := new(big.Int).SetString(d, 16); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	return nil
}

// MarshalJSON encodes the Hex as a JSON string.
func (h Hex) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(h))
}

// UnmarshalJSON parses and validates a JSON-encoded hexadecimal string.
func (h *Hex) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHex, err)
	}

	if err := validateHex(s); err != nil {
		return err
	}

	*h = Hex(s)
	return nil
}

// Uint64 decodes the quantity. It fails for values above 64 bits.
func (h Hex) Uint64() (uint64, error) {
	d, ok := digits(string(h))
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHex, string(h))
	}

	n, err := strconv.ParseUint(d, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidHex, err)
	}
	return n, nil
}

// BigInt decodes the quantity at arbitrary precision.
func (h Hex) BigInt() (*big.Int, error) {
	if err := validateHex(string(h)); err != nil {
		return nil, err
	}

	n, _ := new(big.Int).SetString(string(h)[2:], 16)
	return n, nil
}
