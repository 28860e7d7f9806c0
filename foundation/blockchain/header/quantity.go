package header

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Quantity is an unsigned integer of arbitrary size as it shows up in block
// data. Stored blocks carry numbers, decimal strings and 0x prefixed hex
// strings depending on the client that produced them, so all three are
// accepted. The raw JSON is parsed directly so large values never pass
// through a float64.
type Quantity big.Int

// NewQuantity constructs a quantity from a uint64.
func NewQuantity(v uint64) *Quantity {
	return (*Quantity)(new(big.Int).SetUint64(v))
}

// ParseQuantity parses a decimal or 0x prefixed hex string.
func ParseQuantity(s string) (*Quantity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty quantity")
	}

	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		s = s[2:]
	}

	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("invalid quantity %q", s)
	}

	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative quantity %q", s)
	}

	return (*Quantity)(v), nil
}

// Big returns a copy of the quantity as a big integer.
func (q *Quantity) Big() *big.Int {
	if q == nil {
		return nil
	}
	return new(big.Int).Set((*big.Int)(q))
}

// Uint64 returns the quantity as a uint64. Values that do not fit are an error.
func (q *Quantity) Uint64() (uint64, error) {
	if q == nil {
		return 0, errors.New("missing quantity")
	}

	v := (*big.Int)(q)
	if !v.IsUint64() {
		return 0, fmt.Errorf("quantity %s overflows uint64", v)
	}

	return v.Uint64(), nil
}

// String implements the fmt.Stringer interface.
func (q *Quantity) String() string {
	if q == nil {
		return "<nil>"
	}
	return (*big.Int)(q).String()
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return errors.New("null quantity")
	}

	s := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}

	v, err := ParseQuantity(s)
	if err != nil {
		return err
	}

	*q = *v
	return nil
}

// MarshalJSON implements the json.Marshaler interface. Quantities are written
// as decimal strings.
func (q *Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.String())
}
