package dexlock

import (
	"bytes"
	"testing"
)

func FuzzParseOrderArgs(f *testing.F) {
	owner := testLock(0x01)
	f.Add(orderArgs(owner, 0, u128(1), nil).Encode())
	f.Add(orderArgs(owner, SETUP_NFT, u128(totalValue), nil).Encode())
	f.Add(orderArgs(owner, SETUP_UNIT_TYPE_HASH, u128(7), bytes.Repeat([]byte{0x01}, 32)).Encode())
	f.Add(make([]byte, MIN_ARGS_SIZE))
	f.Add([]byte{0xff, 0xff, 0xff, 0xff})

	decodeCodes := map[ErrorCode]struct{}{
		ERR_LOCK_ARGS_INVALID: {},
		ERR_ENCODING:          {},
		ERR_DEX_SETUP_INVALID: {},
	}
	f.Fuzz(func(t *testing.T, raw []byte) {
		for _, p := range []Profile{ProfileCapacity, ProfileTypeHash20, ProfileTypeHash32} {
			a, err := ParseOrderArgs(raw, p)
			if err != nil {
				code, ok := CodeOf(err)
				if !ok {
					t.Fatalf("decode returned a non-validation error: %v", err)
				}
				if _, ok := decodeCodes[code]; !ok {
					t.Fatalf("decode returned %s", code)
				}
				continue
			}
			if a.Setup&SETUP_RECEIVER_LOCK != 0 {
				t.Fatalf("receiver bit accepted")
			}
			if a.TotalValue.BitLen() > 128 {
				t.Fatalf("total value exceeds u128")
			}
			if len(a.UnitTypeHash) != 0 && len(a.UnitTypeHash) != p.HashWidth() {
				t.Fatalf("unit type hash width %d", len(a.UnitTypeHash))
			}
			again, err := ParseOrderArgs(a.Encode(), p)
			if err != nil {
				t.Fatalf("re-encoded args rejected: %v", err)
			}
			if !bytes.Equal(again.OwnerLock, a.OwnerLock) || again.Setup != a.Setup || !again.TotalValue.Eq(&a.TotalValue) {
				t.Fatalf("re-encoded args differ")
			}
		}
	})
}
