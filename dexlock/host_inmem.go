package dexlock

import (
	"bytes"
	"fmt"
)

// Cell is a resolved cell: an output of some transaction, or an input
// after its out point has been looked up.
type Cell struct {
	Capacity uint64
	Lock     Script
	Type     *Script
	Data     []byte
}

// MemTx is a transaction whose inputs are already resolved to cells.
type MemTx struct {
	Inputs  []Cell
	Outputs []Cell
}

// Host returns a query surface for one execution of lock against tx.
func (tx *MemTx) Host(lock Script) Host {
	return &memHost{tx: tx, script: lock.Bytes()}
}

type memHost struct {
	tx     *MemTx
	script []byte
}

func (m *memHost) cell(index int, src Source) (*Cell, error) {
	var cells []Cell
	switch src {
	case SourceInput:
		cells = m.tx.Inputs
	case SourceOutput:
		cells = m.tx.Outputs
	default:
		return nil, &SysError{Code: 0xff}
	}
	if index < 0 || index >= len(cells) {
		return nil, ErrIndexOutOfBound
	}
	return &cells[index], nil
}

func (m *memHost) LoadScript() ([]byte, error) {
	return append([]byte(nil), m.script...), nil
}

func (m *memHost) LoadCellLock(index int, src Source) ([]byte, error) {
	c, err := m.cell(index, src)
	if err != nil {
		return nil, err
	}
	return c.Lock.Bytes(), nil
}

func (m *memHost) LoadCellCapacity(index int, src Source) (uint64, error) {
	c, err := m.cell(index, src)
	if err != nil {
		return 0, err
	}
	return c.Capacity, nil
}

func (m *memHost) LoadCellTypeHash(index int, src Source) ([32]byte, bool, error) {
	c, err := m.cell(index, src)
	if err != nil {
		return [32]byte{}, false, err
	}
	if c.Type == nil {
		return [32]byte{}, false, nil
	}
	return c.Type.Hash(), true, nil
}

func (m *memHost) LoadCellData(index int, src Source) ([]byte, error) {
	c, err := m.cell(index, src)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), c.Data...), nil
}

// GroupResult is the verdict for one distinct order lock among the inputs.
type GroupResult struct {
	Lock       Script
	InputIndex int
	Err        error
}

func (r GroupResult) ExitCode() int { return ExitCode(r.Err) }

// VerifyTx runs v once for every distinct input lock whose code hash and
// hash type select the order lock. Inputs sharing one lock form a single
// group and are verified together, keyed by their first occurrence.
func VerifyTx(tx *MemTx, codeHash [32]byte, hashType byte, v *Validator) ([]GroupResult, error) {
	if tx == nil {
		return nil, fmt.Errorf("dexlock: nil tx")
	}
	var seen [][]byte
	var out []GroupResult
	for i, in := range tx.Inputs {
		if in.Lock.CodeHash != codeHash || in.Lock.HashType != hashType {
			continue
		}
		raw := in.Lock.Bytes()
		dup := false
		for _, s := range seen {
			if bytes.Equal(s, raw) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen = append(seen, raw)
		out = append(out, GroupResult{
			Lock:       in.Lock,
			InputIndex: i,
			Err:        v.Verify(tx.Host(in.Lock)),
		})
	}
	return out, nil
}

// FirstFailure returns the first failing group result, if any.
func FirstFailure(results []GroupResult) (GroupResult, bool) {
	for _, r := range results {
		if r.Err != nil {
			return r, true
		}
	}
	return GroupResult{}, false
}
