package units

import (
	"errors"
	"math/big"
	"strconv"
	"strings"
)

// Decimals is the number of implied fractional digits in the ledger's
// fixed-point integer representation of a currency amount.
const Decimals = 6

var (
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrMalformedAmount = errors.New("malformed decimal amount")
	ErrAmountTooLarge  = errors.New("amount exceeds u64 range")
)

var (
	atomicScale = big.NewInt(1_000_000)
	maxAtomic   = new(big.Int).SetUint64(^uint64(0))
)

// ToAtomic converts a human decimal amount such as "123.456789" into atomic
// units. Fractional digits beyond the sixth are truncated, never rounded up.
// Negative amounts are invalid by domain policy and are rejected before they
// can reach a transaction payload.
func ToAtomic(amount string) (uint64, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return 0, ErrMalformedAmount
	}
	if strings.HasPrefix(s, "-") {
		return 0, ErrNegativeAmount
	}
	s = strings.TrimPrefix(s, "+")

	whole := s
	frac := ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		whole = s[:idx]
		frac = s[idx+1:]
		if strings.IndexByte(frac, '.') >= 0 {
			return 0, ErrMalformedAmount
		}
	}
	if whole == "" && frac == "" {
		return 0, ErrMalformedAmount
	}
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return 0, ErrMalformedAmount
	}

	// Truncate, do not round: the seventh digit and beyond are dropped.
	if len(frac) > Decimals {
		frac = frac[:Decimals]
	}
	for len(frac) < Decimals {
		frac += "0"
	}

	wholeInt, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return 0, ErrMalformedAmount
	}
	fracInt, ok := new(big.Int).SetString(frac, 10)
	if !ok {
		return 0, ErrMalformedAmount
	}

	out := new(big.Int).Mul(wholeInt, atomicScale)
	out.Add(out, fracInt)
	if out.Cmp(maxAtomic) > 0 {
		return 0, ErrAmountTooLarge
	}
	return out.Uint64(), nil
}

// FromAtomic renders atomic units as a canonical decimal string with trailing
// fractional zeros removed.
func FromAtomic(atomic uint64) string {
	whole := atomic / 1_000_000
	frac := atomic % 1_000_000
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	fracStr := strings.TrimRight(pad6(frac), "0")
	return strconv.FormatUint(whole, 10) + "." + fracStr
}

// ParseAtomic decodes the decimal-string encoding the ledger uses for u64
// values in JSON responses.
func ParseAtomic(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" || !isDigits(s) {
		return 0, ErrMalformedAmount
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, ErrAmountTooLarge
	}
	return v, nil
}

// FormatAtomic is the inverse of ParseAtomic.
func FormatAtomic(atomic uint64) string {
	return strconv.FormatUint(atomic, 10)
}

func pad6(v uint64) string {
	s := strconv.FormatUint(v, 10)
	for len(s) < Decimals {
		s = "0" + s
	}
	return s
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
