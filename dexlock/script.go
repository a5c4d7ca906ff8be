package dexlock

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/nervina-labs/ckb-dex-contract/crypto"
)

const (
	HASH_TYPE_DATA  byte = 0x00
	HASH_TYPE_TYPE  byte = 0x01
	HASH_TYPE_DATA1 byte = 0x02
	HASH_TYPE_DATA2 byte = 0x04
)

const (
	scriptFieldCount  = 3
	scriptHeaderBytes = 4 * (scriptFieldCount + 1)

	// MIN_SCRIPT_BYTES is the serialized size of a script with empty args.
	MIN_SCRIPT_BYTES = scriptHeaderBytes + 32 + 1 + 4
)

// Script is a cell lock or type script. Its serialized form is a molecule
// table: total_size | offsets[3] | code_hash | hash_type | args(fixvec).
type Script struct {
	CodeHash [32]byte
	HashType byte
	Args     []byte
}

func (s Script) Bytes() []byte {
	total := MIN_SCRIPT_BYTES + len(s.Args)
	out := make([]byte, 0, total)
	out = appendU32le(out, uint32(total))
	out = appendU32le(out, scriptHeaderBytes)
	out = appendU32le(out, scriptHeaderBytes+32)
	out = appendU32le(out, scriptHeaderBytes+32+1)
	out = append(out, s.CodeHash[:]...)
	out = append(out, s.HashType)
	out = appendU32le(out, uint32(len(s.Args)))
	out = append(out, s.Args...)
	return out
}

// Hash returns the script hash used as a type identifier.
func (s Script) Hash() [32]byte {
	return crypto.ScriptHash(s.Bytes())
}

// UnitTypeHash returns the hash an order under profile p stores to name s
// as its token type. The capacity profile names no token and returns nil.
func (s Script) UnitTypeHash(p Profile) []byte {
	switch p {
	case ProfileTypeHash20:
		h := crypto.Blake160(s.Bytes())
		return h[:]
	case ProfileTypeHash32:
		h := s.Hash()
		return h[:]
	default:
		return nil
	}
}

func (s Script) Equal(o Script) bool {
	return s.CodeHash == o.CodeHash && s.HashType == o.HashType && bytes.Equal(s.Args, o.Args)
}

// ParseScript decodes b as a script table. Trailing or missing fields are
// rejected; a table written by a newer schema is not accepted.
func ParseScript(b []byte) (*Script, error) {
	if err := verifyScriptTable(b); err != nil {
		return nil, err
	}
	var s Script
	copy(s.CodeHash[:], b[scriptHeaderBytes:scriptHeaderBytes+32])
	s.HashType = b[scriptHeaderBytes+32]
	args := b[scriptHeaderBytes+32+1+4:]
	s.Args = append([]byte(nil), args...)
	return &s, nil
}

func verifyScriptTable(b []byte) error {
	if len(b) < 4 {
		return lockerr(ERR_ENCODING, "script: header truncated")
	}
	total := binary.LittleEndian.Uint32(b[0:4])
	if uint64(total) != uint64(len(b)) {
		return lockerr(ERR_ENCODING, fmt.Sprintf("script: total_size %d != %d", total, len(b)))
	}
	if len(b) < scriptHeaderBytes {
		return lockerr(ERR_ENCODING, "script: header truncated")
	}
	first := binary.LittleEndian.Uint32(b[4:8])
	if first%4 != 0 || first < 8 {
		return lockerr(ERR_ENCODING, "script: bad first offset")
	}
	if first/4-1 != scriptFieldCount {
		return lockerr(ERR_ENCODING, fmt.Sprintf("script: field count %d", first/4-1))
	}

	offsets := make([]int, 0, scriptFieldCount+1)
	for i := 0; i < scriptFieldCount; i++ {
		off := binary.LittleEndian.Uint32(b[4+4*i : 8+4*i])
		offsets = append(offsets, int(off))
	}
	offsets = append(offsets, len(b))
	for i := 0; i < scriptFieldCount; i++ {
		if offsets[i] > offsets[i+1] {
			return lockerr(ERR_ENCODING, "script: offsets not ordered")
		}
	}

	if offsets[1]-offsets[0] != 32 {
		return lockerr(ERR_ENCODING, "script: code_hash width")
	}
	if offsets[2]-offsets[1] != 1 {
		return lockerr(ERR_ENCODING, "script: hash_type width")
	}
	args := b[offsets[2]:offsets[3]]
	if len(args) < 4 {
		return lockerr(ERR_ENCODING, "script: args header truncated")
	}
	if uint64(binary.LittleEndian.Uint32(args[0:4]))+4 != uint64(len(args)) {
		return lockerr(ERR_ENCODING, "script: args length mismatch")
	}
	return nil
}

func appendU32le(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}
