package script

import (
	"fmt"
	"math/big"
)

// Numbers on the stack are little endian sign-magnitude: the high bit of the
// last byte is the sign. The empty byte string is zero.

// castToBool reports whether the element is truthy. Any non-zero byte makes
// it true, except a lone sign bit in the last byte (negative zero).
func castToBool(b []byte) bool {
	for i, v := range b {
		if v == 0 {
			continue
		}
		if i == len(b)-1 && v == 0x80 {
			return false
		}
		return true
	}

	return false
}

func fromBool(v bool) []byte {
	if v {
		return []byte{1}
	}

	return []byte{}
}

// encodeNum returns the minimal encoding of n.
func encodeNum(n int64) []byte {
	if n == 0 {
		return []byte{}
	}

	neg := n < 0
	mag := uint64(n)
	if neg {
		mag = uint64(-n)
	}

	var b []byte
	for mag > 0 {
		b = append(b, byte(mag&0xff))
		mag >>= 8
	}

	switch {
	case b[len(b)-1]&0x80 != 0:
		extra := byte(0x00)
		if neg {
			extra = 0x80
		}
		b = append(b, extra)

	case neg:
		b[len(b)-1] |= 0x80
	}

	return b
}

// decodeNum decodes an element of at most maxLen bytes.
func decodeNum(b []byte, maxLen int) (int64, error) {
	if len(b) > maxLen {
		return 0, fmt.Errorf("numeric value encoded as %d bytes exceeds max %d", len(b), maxLen)
	}

	if len(b) == 0 {
		return 0, nil
	}

	var n int64
	for i, v := range b {
		n |= int64(v) << (8 * i)
	}

	// Clear the sign bit and negate when it was set.
	last := len(b) - 1
	if b[last]&0x80 != 0 {
		n &^= int64(0x80) << (8 * last)
		return -n, nil
	}

	return n, nil
}

// normalize returns the minimal encoding of an element of any length so two
// encodings of the same number compare equal.
func normalize(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}

	mag := append([]byte{}, b...)
	neg := mag[len(mag)-1]&0x80 != 0
	mag[len(mag)-1] &^= 0x80

	for len(mag) > 0 && mag[len(mag)-1] == 0 {
		mag = mag[:len(mag)-1]
	}

	if len(mag) == 0 {
		return nil
	}

	if mag[len(mag)-1]&0x80 != 0 {
		mag = append(mag, 0x00)
	}

	if neg {
		mag[len(mag)-1] |= 0x80
	}

	return mag
}

// toBig converts an element of any length into a signed integer.
func toBig(b []byte) *big.Int {
	n := normalize(b)
	if len(n) == 0 {
		return new(big.Int)
	}

	neg := n[len(n)-1]&0x80 != 0

	// Reverse into big endian with the sign bit removed.
	be := make([]byte, len(n))
	for i, v := range n {
		be[len(n)-1-i] = v
	}
	be[0] &^= 0x80

	v := new(big.Int).SetBytes(be)
	if neg {
		v.Neg(v)
	}

	return v
}
