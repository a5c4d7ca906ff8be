package dexlock

import (
	"testing"

	"github.com/holiman/uint256"
)

var (
	dexCodeHash           = [32]byte{0xde, 0x01}
	alwaysSuccessCodeHash = [32]byte{0xa5, 0x01}
	sudtCodeHash          = [32]byte{0x5d, 0x01}
)

func testLock(tag byte) Script {
	args := make([]byte, 20)
	for i := range args {
		args[i] = tag
	}
	return Script{CodeHash: alwaysSuccessCodeHash, HashType: HASH_TYPE_DATA1, Args: args}
}

func sudtType(tag byte) Script {
	return Script{CodeHash: sudtCodeHash, HashType: HASH_TYPE_TYPE, Args: []byte{tag}}
}

func u128(v uint64) uint256.Int {
	return *uint256.NewInt(v)
}

func orderArgs(owner Script, setup byte, total uint256.Int, unitTypeHash []byte) *OrderArgs {
	return &OrderArgs{
		OwnerLock:    owner.Bytes(),
		Setup:        setup,
		TotalValue:   total,
		UnitTypeHash: unitTypeHash,
	}
}

func dexLock(a *OrderArgs) Script {
	return Script{CodeHash: dexCodeHash, HashType: HASH_TYPE_DATA1, Args: a.Encode()}
}

func u128LEData(v uint64) []byte {
	out := U128LE(uint256.NewInt(v))
	return out[:]
}

func mustLockErrCode(t *testing.T, err error) ErrorCode {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error")
	}
	code, ok := CodeOf(err)
	if !ok {
		t.Fatalf("expected *LockError, got %T (%v)", err, err)
	}
	return code
}

func expectCode(t *testing.T, err error, want ErrorCode) {
	t.Helper()
	if got := mustLockErrCode(t, err); got != want {
		t.Fatalf("code=%s, want %s (err=%v)", got, want, err)
	}
}

// faultHost wraps a MemTx host and replaces one query with a fixed error.
type faultHost struct {
	Host
	lockErr error
	capErr  error
}

func (f *faultHost) LoadCellLock(index int, src Source) ([]byte, error) {
	if f.lockErr != nil {
		return nil, f.lockErr
	}
	return f.Host.LoadCellLock(index, src)
}

func (f *faultHost) LoadCellCapacity(index int, src Source) (uint64, error) {
	if f.capErr != nil {
		return 0, f.capErr
	}
	return f.Host.LoadCellCapacity(index, src)
}
