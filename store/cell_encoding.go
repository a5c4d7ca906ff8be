package store

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/nervina-labs/ckb-dex-contract/dexlock"
)

// OutPoint names a cell by the transaction that created it and its output
// index.
type OutPoint struct {
	TxHash [32]byte
	Index  uint32
}

func (p OutPoint) String() string {
	return fmt.Sprintf("%s:%d", hex.EncodeToString(p.TxHash[:]), p.Index)
}

// ParseOutPoint accepts "<tx_hash hex>:<index>", with or without 0x.
func ParseOutPoint(s string) (OutPoint, error) {
	hashPart, idxPart, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return OutPoint{}, fmt.Errorf("outpoint %q: want <tx_hash>:<index>", s)
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(hashPart, "0x"))
	if err != nil || len(raw) != 32 {
		return OutPoint{}, fmt.Errorf("outpoint %q: bad tx_hash", s)
	}
	idx, err := strconv.ParseUint(idxPart, 10, 32)
	if err != nil {
		return OutPoint{}, fmt.Errorf("outpoint %q: bad index: %w", s, err)
	}
	var p OutPoint
	copy(p.TxHash[:], raw)
	p.Index = uint32(idx)
	return p, nil
}

func encodeOutPointKey(p OutPoint) []byte {
	// tx_hash(32) || index(u32 little-endian)
	out := make([]byte, 32+4)
	copy(out[0:32], p.TxHash[:])
	binary.LittleEndian.PutUint32(out[32:36], p.Index)
	return out
}

func decodeOutPointKey(b []byte) (OutPoint, error) {
	if len(b) != 36 {
		return OutPoint{}, fmt.Errorf("outpoint: expected 36 bytes, got %d", len(b))
	}
	var p OutPoint
	copy(p.TxHash[:], b[0:32])
	p.Index = binary.LittleEndian.Uint32(b[32:36])
	return p, nil
}

// encodeCell layout:
//
//	capacity u64le | lock script | has_type u8 | [type script] | data_len u32le | data
//
// Scripts are self-delimiting through their total_size header.
func encodeCell(c dexlock.Cell) ([]byte, error) {
	if len(c.Data) > 0xffffffff {
		return nil, fmt.Errorf("cell: data too large")
	}
	lock := c.Lock.Bytes()
	var typ []byte
	if c.Type != nil {
		typ = c.Type.Bytes()
	}
	out := make([]byte, 0, 8+len(lock)+1+len(typ)+4+len(c.Data))
	var tmp8 [8]byte
	var tmp4 [4]byte
	binary.LittleEndian.PutUint64(tmp8[:], c.Capacity)
	out = append(out, tmp8[:]...)
	out = append(out, lock...)
	if c.Type != nil {
		out = append(out, 0x01)
		out = append(out, typ...)
	} else {
		out = append(out, 0x00)
	}
	binary.LittleEndian.PutUint32(tmp4[:], uint32(len(c.Data))) // #nosec G115 -- bounded above.
	out = append(out, tmp4[:]...)
	out = append(out, c.Data...)
	return out, nil
}

func readScript(b []byte, off int, name string) (*dexlock.Script, int, error) {
	if off+4 > len(b) {
		return nil, 0, fmt.Errorf("cell: %s truncated", name)
	}
	size := int(binary.LittleEndian.Uint32(b[off : off+4]))
	if size < 4 || off+size > len(b) {
		return nil, 0, fmt.Errorf("cell: %s size %d out of range", name, size)
	}
	s, err := dexlock.ParseScript(b[off : off+size])
	if err != nil {
		return nil, 0, fmt.Errorf("cell: %s: %w", name, err)
	}
	return s, off + size, nil
}

func decodeCell(b []byte) (dexlock.Cell, error) {
	if len(b) < 8 {
		return dexlock.Cell{}, fmt.Errorf("cell: truncated")
	}
	var c dexlock.Cell
	c.Capacity = binary.LittleEndian.Uint64(b[0:8])
	lock, off, err := readScript(b, 8, "lock")
	if err != nil {
		return dexlock.Cell{}, err
	}
	c.Lock = *lock
	if off >= len(b) {
		return dexlock.Cell{}, fmt.Errorf("cell: has_type truncated")
	}
	switch b[off] {
	case 0x00:
		off++
	case 0x01:
		typ, next, err := readScript(b, off+1, "type")
		if err != nil {
			return dexlock.Cell{}, err
		}
		c.Type = typ
		off = next
	default:
		return dexlock.Cell{}, fmt.Errorf("cell: bad has_type %#x", b[off])
	}
	if off+4 > len(b) {
		return dexlock.Cell{}, fmt.Errorf("cell: data_len truncated")
	}
	dataLen := int(binary.LittleEndian.Uint32(b[off : off+4]))
	off += 4
	if off+dataLen != len(b) {
		return dexlock.Cell{}, fmt.Errorf("cell: bad data_len")
	}
	c.Data = append([]byte(nil), b[off:]...)
	return c, nil
}
