package dexlock

import (
	"fmt"

	"github.com/holiman/uint256"
)

const (
	U128_BYTES     = 16
	UDT_AMOUNT_LEN = U128_BYTES
)

// parseFixed returns b unchanged when it is exactly n bytes wide.
func parseFixed(b []byte, n int) ([]byte, error) {
	if len(b) != n {
		return nil, lockerr(ERR_ENCODING, fmt.Sprintf("fixed read: want %d bytes, got %d", n, len(b)))
	}
	return b, nil
}

func u128FromBE(b []byte) (uint256.Int, error) {
	raw, err := parseFixed(b, U128_BYTES)
	if err != nil {
		return uint256.Int{}, err
	}
	var v uint256.Int
	v.SetBytes16(raw)
	return v, nil
}

func u128FromLE(b []byte) (uint256.Int, error) {
	raw, err := parseFixed(b, U128_BYTES)
	if err != nil {
		return uint256.Int{}, err
	}
	var be [U128_BYTES]byte
	for i := range raw {
		be[U128_BYTES-1-i] = raw[i]
	}
	var v uint256.Int
	v.SetBytes16(be[:])
	return v, nil
}

// U128BE encodes v, which must fit in 128 bits, as 16 big-endian bytes.
func U128BE(v *uint256.Int) [U128_BYTES]byte {
	full := v.Bytes32()
	var out [U128_BYTES]byte
	copy(out[:], full[32-U128_BYTES:])
	return out
}

// U128LE encodes v, which must fit in 128 bits, as 16 little-endian bytes.
func U128LE(v *uint256.Int) [U128_BYTES]byte {
	be := U128BE(v)
	var out [U128_BYTES]byte
	for i := range be {
		out[i] = be[U128_BYTES-1-i]
	}
	return out
}

// addU128 returns a+b, failing when the sum leaves the 128-bit range.
func addU128(a, b *uint256.Int) (*uint256.Int, error) {
	if a.BitLen() > 128 || b.BitLen() > 128 {
		return nil, lockerr(ERR_TOTAL_VALUE_OVERFLOW, "operand exceeds u128")
	}
	sum := new(uint256.Int).Add(a, b)
	if sum.BitLen() > 128 {
		return nil, lockerr(ERR_TOTAL_VALUE_OVERFLOW, "u128 addition overflow")
	}
	return sum, nil
}

// ParseU128 parses a decimal string into a value that fits in 128 bits.
func ParseU128(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("u128 %q: %w", s, err)
	}
	if v.BitLen() > 128 {
		return nil, fmt.Errorf("u128 %q: out of range", s)
	}
	return v, nil
}

// MaxU128 returns 2^128-1.
func MaxU128() *uint256.Int {
	v := new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	return v.SubUint64(v, 1)
}
