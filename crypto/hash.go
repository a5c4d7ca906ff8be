// Package crypto holds the hash functions used to identify scripts.
package crypto

import "golang.org/x/crypto/blake2b"

const (
	HashSize    = 32
	Blake160Len = 20
)

// Blake2b256 is an unkeyed blake2b digest with a 32-byte output.
func Blake2b256(data []byte) [HashSize]byte {
	return blake2b.Sum256(data)
}

// ScriptHash returns the identifier of a serialized script.
func ScriptHash(serialized []byte) [HashSize]byte {
	return Blake2b256(serialized)
}

// Blake160 is the 20-byte prefix of Blake2b256, the short identifier
// form used by older order encodings.
func Blake160(data []byte) [Blake160Len]byte {
	full := Blake2b256(data)
	var out [Blake160Len]byte
	copy(out[:], full[:Blake160Len])
	return out
}
