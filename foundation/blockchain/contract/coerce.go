package contract

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// The relay contracts are only known by their ABI, which differ in integer
// widths between versions. Arguments are converted to whatever Go type the
// ABI encoder requires for the declared type so callers can pass *big.Int,
// plain integers, hashes and hex strings.

// coerceArgs converts the arguments to the types declared by the inputs.
func coerceArgs(inputs abi.Arguments, args []any) ([]any, error) {
	if len(inputs) != len(args) {
		return nil, fmt.Errorf("argument count mismatch: got %d, exp %d", len(args), len(inputs))
	}

	params := make([]any, len(args))
	for i, in := range inputs {
		v, err := coerce(in.Type, args[i])
		if err != nil {
			name := in.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			return nil, fmt.Errorf("argument %s (%s): %w", name, in.Type.String(), err)
		}
		params[i] = v
	}

	return params, nil
}

// coerce converts a single value to the Go type of the abi type.
func coerce(t abi.Type, v any) (any, error) {
	switch t.T {
	case abi.UintTy, abi.IntTy:
		n, err := toBig(v)
		if err != nil {
			return nil, err
		}
		return sizedInt(t, n)

	case abi.BoolTy:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", v)
		}
		return b, nil

	case abi.AddressTy:
		switch a := v.(type) {
		case common.Address:
			return a, nil
		case string:
			if !common.IsHexAddress(a) {
				return nil, fmt.Errorf("invalid address %q", a)
			}
			return common.HexToAddress(a), nil
		}
		return nil, fmt.Errorf("expected address, got %T", v)

	case abi.BytesTy:
		return toBytes(v)

	case abi.FixedBytesTy:
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		if len(b) != t.Size {
			return nil, fmt.Errorf("expected %d bytes, got %d", t.Size, len(b))
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil

	case abi.SliceTy, abi.ArrayTy:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, fmt.Errorf("expected list, got %T", v)
		}
		if t.T == abi.ArrayTy && rv.Len() != t.Size {
			return nil, fmt.Errorf("expected %d elements, got %d", t.Size, rv.Len())
		}

		out := reflect.New(t.GetType()).Elem()
		if t.T == abi.SliceTy {
			out = reflect.MakeSlice(t.GetType(), rv.Len(), rv.Len())
		}

		for i := 0; i < rv.Len(); i++ {
			ev, err := coerce(*t.Elem, rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(reflect.ValueOf(ev))
		}
		return out.Interface(), nil
	}

	return v, nil
}

// sizedInt returns the integer in the Go type the abi encoder expects for
// the declared width.
func sizedInt(t abi.Type, n *big.Int) (any, error) {
	if t.T == abi.UintTy {
		if n.Sign() < 0 {
			return nil, fmt.Errorf("negative value %s for %s", n, t.String())
		}
		if n.BitLen() > t.Size {
			return nil, fmt.Errorf("value %s overflows %s", n, t.String())
		}

		switch t.Size {
		case 8:
			return uint8(n.Uint64()), nil
		case 16:
			return uint16(n.Uint64()), nil
		case 32:
			return uint32(n.Uint64()), nil
		case 64:
			return n.Uint64(), nil
		}
		return new(big.Int).Set(n), nil
	}

	limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
	if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
		return nil, fmt.Errorf("value %s overflows %s", n, t.String())
	}

	switch t.Size {
	case 8:
		return int8(n.Int64()), nil
	case 16:
		return int16(n.Int64()), nil
	case 32:
		return int32(n.Int64()), nil
	case 64:
		return n.Int64(), nil
	}
	return new(big.Int).Set(n), nil
}

// toBig converts the supported integer representations to a big integer.
func toBig(v any) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return n, nil
	case big.Int:
		return &n, nil
	case int:
		return big.NewInt(int64(n)), nil
	case int8:
		return big.NewInt(int64(n)), nil
	case int16:
		return big.NewInt(int64(n)), nil
	case int32:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case uint:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case string:
		base := 10
		s := n
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			base = 16
			s = s[2:]
		}
		b, ok := new(big.Int).SetString(s, base)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", n)
		}
		return b, nil
	case interface{ Big() *big.Int }:
		b := n.Big()
		if b == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return b, nil
	}

	return nil, fmt.Errorf("expected integer, got %T", v)
}

// toBytes converts byte slices, fixed byte arrays and hex strings to a byte
// slice.
func toBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case common.Hash:
		return b.Bytes(), nil
	case string:
		return DecodeHex(b)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		out := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(out), rv)
		return out, nil
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return rv.Bytes(), nil
	}

	return nil, fmt.Errorf("expected bytes, got %T", v)
}

// DecodeHex decodes a hex string with or without a 0x prefix. Odd length
// strings are rejected.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}

	b, err := hexutil.Decode("0x" + s[2:])
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}

	return b, nil
}
