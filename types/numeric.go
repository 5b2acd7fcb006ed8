package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// MaxSafeInteger is the largest integer a float64 holds without rounding (2^53 - 1).
// Floating-point inputs above it are rejected rather than trusted.
const MaxSafeInteger = 1<<53 - 1

// U64 is an unsigned 64-bit quantity (fee, amount, token id) that decodes from
// a JSON number or a decimal string without passing through float64, and
// encodes as a decimal string.
type U64 uint64

// U32 is the 32-bit counterpart of U64 (nonce, validUntil).
type U32 uint32

// MarshalJSON encodes u as a decimal string.
func (u U64) MarshalJSON() ([]byte, error) {
	return []byte(`"` + strconv.FormatUint(uint64(u), 10) + `"`), nil
}

// UnmarshalJSON accepts `123` or `"123"`.
func (u *U64) UnmarshalJSON(data []byte) error {
	v, err := parseJSONUint(data, 64)
	if err != nil {
		return err
	}
	*u = U64(v)
	return nil
}

// String returns the decimal form.
func (u U64) String() string {
	return strconv.FormatUint(uint64(u), 10)
}

// MarshalJSON encodes u as a JSON number; 32-bit values are exact in every host.
func (u U32) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatUint(uint64(u), 10)), nil
}

// UnmarshalJSON accepts `123` or `"123"`.
func (u *U32) UnmarshalJSON(data []byte) error {
	v, err := parseJSONUint(data, 32)
	if err != nil {
		return err
	}
	*u = U32(v)
	return nil
}

// String returns the decimal form.
func (u U32) String() string {
	return strconv.FormatUint(uint64(u), 10)
}

func parseJSONUint(data []byte, bits int) (uint64, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, fmt.Errorf("%w: missing integer value", ErrMalformedInput)
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		return ParseUintString(s, bits)
	}
	return ParseUintString(string(data), bits)
}

// ParseUintString parses a base-10 unsigned integer of the given bit width.
// Only ASCII digits are accepted; a leading minus sign is a range error, any
// other non-digit is malformed input.
func ParseUintString(s string, bits int) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty integer", ErrMalformedInput)
	}
	if s[0] == '-' {
		if isDigits(s[1:]) {
			return 0, fmt.Errorf("%w: negative value %s", ErrRange, s)
		}
		return 0, fmt.Errorf("%w: invalid integer %q", ErrMalformedInput, s)
	}
	if !isDigits(s) {
		if isDecimal(s) {
			return 0, fmt.Errorf("%w: %s is not an integer", ErrRange, s)
		}
		return 0, fmt.Errorf("%w: invalid integer %q", ErrMalformedInput, s)
	}
	v, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %s exceeds %d-bit unsigned range", ErrRange, s, bits)
	}
	return v, nil
}

// isDecimal matches digits with one interior decimal point, such as "1.5".
func isDecimal(s string) bool {
	i := strings.IndexByte(s, '.')
	return i > 0 && isDigits(s[:i]) && isDigits(s[i+1:])
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseU64 converts any supported host representation to uint64.
//
// Accepted: every Go integer kind, float32/float64 holding an integral value
// no larger than MaxSafeInteger, string, json.Number, *big.Int, big.Int,
// *uint256.Int, U64 and U32.
func ParseU64(v interface{}) (uint64, error) {
	return parseUint(v, 64)
}

// ParseU32 is ParseU64 restricted to the 32-bit range.
func ParseU32(v interface{}) (uint32, error) {
	x, err := parseUint(v, 32)
	return uint32(x), err
}

func parseUint(v interface{}, bits int) (uint64, error) {
	var limit uint64 = math.MaxUint64
	if bits < 64 {
		limit = 1<<uint(bits) - 1
	}
	checkSigned := func(x int64) (uint64, error) {
		if x < 0 {
			return 0, fmt.Errorf("%w: negative value %d", ErrRange, x)
		}
		if uint64(x) > limit {
			return 0, fmt.Errorf("%w: %d exceeds %d-bit unsigned range", ErrRange, x, bits)
		}
		return uint64(x), nil
	}
	checkUnsigned := func(x uint64) (uint64, error) {
		if x > limit {
			return 0, fmt.Errorf("%w: %d exceeds %d-bit unsigned range", ErrRange, x, bits)
		}
		return x, nil
	}

	switch x := v.(type) {
	case nil:
		return 0, fmt.Errorf("%w: missing integer value", ErrMalformedInput)
	case int:
		return checkSigned(int64(x))
	case int8:
		return checkSigned(int64(x))
	case int16:
		return checkSigned(int64(x))
	case int32:
		return checkSigned(int64(x))
	case int64:
		return checkSigned(x)
	case uint:
		return checkUnsigned(uint64(x))
	case uint8:
		return checkUnsigned(uint64(x))
	case uint16:
		return checkUnsigned(uint64(x))
	case uint32:
		return checkUnsigned(uint64(x))
	case uint64:
		return checkUnsigned(x)
	case U64:
		return checkUnsigned(uint64(x))
	case U32:
		return checkUnsigned(uint64(x))
	case float32:
		return parseFloat(float64(x), limit, bits)
	case float64:
		return parseFloat(x, limit, bits)
	case string:
		return ParseUintString(x, bits)
	case json.Number:
		return ParseUintString(x.String(), bits)
	case *big.Int:
		if x == nil {
			return 0, fmt.Errorf("%w: missing integer value", ErrMalformedInput)
		}
		return parseBig(x, bits)
	case big.Int:
		return parseBig(&x, bits)
	case *uint256.Int:
		if x == nil {
			return 0, fmt.Errorf("%w: missing integer value", ErrMalformedInput)
		}
		if !x.IsUint64() {
			return 0, fmt.Errorf("%w: %s exceeds %d-bit unsigned range", ErrRange, x.Dec(), bits)
		}
		return checkUnsigned(x.Uint64())
	default:
		return 0, fmt.Errorf("%w: unsupported integer representation %T", ErrMalformedInput, v)
	}
}

func parseFloat(f float64, limit uint64, bits int) (uint64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v is not a number", ErrMalformedInput, f)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %v is not an integer", ErrRange, f)
	}
	if f < 0 {
		return 0, fmt.Errorf("%w: negative value %v", ErrRange, f)
	}
	if f > MaxSafeInteger {
		return 0, fmt.Errorf("%w: %v is above 2^53 and cannot be represented exactly; pass a string or big integer", ErrRange, f)
	}
	x := uint64(f)
	if x > limit {
		return 0, fmt.Errorf("%w: %d exceeds %d-bit unsigned range", ErrRange, x, bits)
	}
	return x, nil
}

func parseBig(x *big.Int, bits int) (uint64, error) {
	if x.Sign() < 0 {
		return 0, fmt.Errorf("%w: negative value %s", ErrRange, x.String())
	}
	if x.BitLen() > bits {
		return 0, fmt.Errorf("%w: %s exceeds %d-bit unsigned range", ErrRange, x.String(), bits)
	}
	return x.Uint64(), nil
}
