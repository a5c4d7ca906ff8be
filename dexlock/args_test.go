package dexlock

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/holiman/uint256"
)

func TestParseOrderArgs_RoundTrip(t *testing.T) {
	owner := testLock(0x11)
	total := u128(1234_5678_0000)
	for _, p := range []Profile{ProfileTypeHash20, ProfileTypeHash32} {
		for _, setup := range []byte{0b000, 0b010, 0b100, 0b110} {
			var unit []byte
			if setup&SETUP_UNIT_TYPE_HASH != 0 {
				unit = bytes.Repeat([]byte{0x7e}, p.HashWidth())
			}
			in := orderArgs(owner, setup, total, unit)
			got, err := ParseOrderArgs(in.Encode(), p)
			if err != nil {
				t.Fatalf("profile=%s setup=%03b: %v", p, setup, err)
			}
			if !bytes.Equal(got.OwnerLock, in.OwnerLock) {
				t.Fatalf("owner lock mismatch")
			}
			if got.Setup != setup || !got.TotalValue.Eq(&in.TotalValue) {
				t.Fatalf("profile=%s setup=%03b: got setup=%03b total=%s", p, setup, got.Setup, got.TotalValue.Dec())
			}
			if !bytes.Equal(got.UnitTypeHash, unit) || (unit == nil) != (got.UnitTypeHash == nil) {
				t.Fatalf("unit type hash mismatch: %x vs %x", got.UnitTypeHash, unit)
			}
			if got.Receiver != ReceiverMaker {
				t.Fatalf("receiver=%d", got.Receiver)
			}
		}
	}
}

func TestParseOrderArgs_CapacityProfile(t *testing.T) {
	owner := testLock(0x22)
	for _, setup := range []byte{0x00, SETUP_NFT} {
		a, err := ParseOrderArgs(orderArgs(owner, setup, u128(5), nil).Encode(), ProfileCapacity)
		if err != nil {
			t.Fatalf("setup=%#x: %v", setup, err)
		}
		if a.IsNFT() != (setup == SETUP_NFT) {
			t.Fatalf("setup=%#x: IsNFT=%v", setup, a.IsNFT())
		}
	}
	for _, setup := range []byte{0x01, 0x02, 0x03, 0x05, 0x06, 0x07, 0x08, 0xff} {
		_, err := ParseOrderArgs(orderArgs(owner, setup, u128(5), nil).Encode(), ProfileCapacity)
		expectCode(t, err, ERR_DEX_SETUP_INVALID)
	}
}

func TestParseOrderArgs_TotalValueBigEndian(t *testing.T) {
	raw := orderArgs(testLock(0x01), 0, uint256.Int{}, nil).Encode()
	owner := len(testLock(0x01).Bytes())
	raw[owner+1] = 0x01  // most significant byte
	raw[owner+16] = 0x02 // least significant byte
	a, err := ParseOrderArgs(raw, DefaultProfile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := new(uint256.Int).Lsh(uint256.NewInt(1), 120)
	want.AddUint64(want, 2)
	if !a.TotalValue.Eq(want) {
		t.Fatalf("total=%s, want %s", a.TotalValue.Dec(), want.Dec())
	}
}

func TestParseOrderArgs_ShortArgs(t *testing.T) {
	for n := 0; n < MIN_ARGS_SIZE; n++ {
		raw := bytes.Repeat([]byte{0xff}, n)
		_, err := ParseOrderArgs(raw, DefaultProfile)
		expectCode(t, err, ERR_LOCK_ARGS_INVALID)
	}
}

func TestParseOrderArgs_OwnerSizeExceedsArgs(t *testing.T) {
	raw := orderArgs(testLock(0x01), 0, u128(1), nil).Encode()
	binary.LittleEndian.PutUint32(raw[0:4], uint32(len(raw)-argsFixedTail+1))
	_, err := ParseOrderArgs(raw, DefaultProfile)
	expectCode(t, err, ERR_LOCK_ARGS_INVALID)

	binary.LittleEndian.PutUint32(raw[0:4], 0xffffffff)
	_, err = ParseOrderArgs(raw, DefaultProfile)
	expectCode(t, err, ERR_LOCK_ARGS_INVALID)
}

func TestParseOrderArgs_MalformedOwnerLock(t *testing.T) {
	raw := orderArgs(testLock(0x01), 0, u128(1), nil).Encode()
	// Field count 4 instead of 3.
	binary.LittleEndian.PutUint32(raw[4:8], 20)
	_, err := ParseOrderArgs(raw, DefaultProfile)
	expectCode(t, err, ERR_ENCODING)
}

func TestParseOrderArgs_SetupInvalid(t *testing.T) {
	owner := testLock(0x01)
	for _, setup := range []byte{0b0000_1000, 0b1000_0000, 0xff} {
		_, err := ParseOrderArgs(orderArgs(owner, setup, u128(1), nil).Encode(), DefaultProfile)
		expectCode(t, err, ERR_DEX_SETUP_INVALID)
	}
}

func TestParseOrderArgs_ReceiverLockReserved(t *testing.T) {
	owner := testLock(0x01)
	for _, setup := range []byte{0b001, 0b011, 0b101, 0b111} {
		a := orderArgs(owner, setup, u128(1), nil)
		if setup&SETUP_UNIT_TYPE_HASH != 0 {
			a.UnitTypeHash = make([]byte, 32)
		}
		_, err := ParseOrderArgs(a.Encode(), DefaultProfile)
		expectCode(t, err, ERR_DEX_SETUP_INVALID)
	}
}

func TestParseOrderArgs_UnitTypeHashWidth(t *testing.T) {
	owner := testLock(0x01)
	cases := []struct {
		name    string
		profile Profile
		width   int
		ok      bool
	}{
		{"hash32 exact", ProfileTypeHash32, 32, true},
		{"hash32 short", ProfileTypeHash32, 31, false},
		{"hash32 long", ProfileTypeHash32, 33, false},
		{"hash32 missing", ProfileTypeHash32, 0, false},
		{"hash20 exact", ProfileTypeHash20, 20, true},
		{"hash20 given 32", ProfileTypeHash20, 32, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := orderArgs(owner, SETUP_UNIT_TYPE_HASH, u128(1), bytes.Repeat([]byte{0x33}, tc.width))
			got, err := ParseOrderArgs(a.Encode(), tc.profile)
			if tc.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got.Mode() != SettleToken {
					t.Fatalf("mode=%s", got.Mode())
				}
				return
			}
			expectCode(t, err, ERR_LOCK_ARGS_INVALID)
		})
	}
}

func TestParseOrderArgs_TrailingBytesWithoutTypeHash(t *testing.T) {
	raw := append(orderArgs(testLock(0x01), 0, u128(1), nil).Encode(), 0xaa, 0xbb)
	a, err := ParseOrderArgs(raw, DefaultProfile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.UnitTypeHash != nil {
		t.Fatalf("unit type hash should be absent")
	}
}

func TestParseOrderArgs_ReversedBytes(t *testing.T) {
	raw := orderArgs(testLock(0x42), SETUP_UNIT_TYPE_HASH, u128(1234_5678_0000), bytes.Repeat([]byte{0x9c}, 32)).Encode()
	rev := make([]byte, len(raw))
	for i := range raw {
		rev[len(raw)-1-i] = raw[i]
	}
	_, err := ParseOrderArgs(rev, DefaultProfile)
	switch code := mustLockErrCode(t, err); code {
	case ERR_LOCK_ARGS_INVALID, ERR_ENCODING:
	default:
		t.Fatalf("code=%s, want a length or encoding error", code)
	}
}

func TestParseOrderArgs_InvalidProfile(t *testing.T) {
	raw := orderArgs(testLock(0x01), 0, u128(1), nil).Encode()
	_, err := ParseOrderArgs(raw, Profile(0))
	if err == nil {
		t.Fatalf("expected error")
	}
	if _, ok := CodeOf(err); ok {
		t.Fatalf("invalid profile is a configuration fault, got %v", err)
	}
}

func TestOrderArgs_Mode(t *testing.T) {
	cases := []struct {
		setup byte
		unit  []byte
		want  SettlementMode
	}{
		{0b000, nil, SettleFTCapacity},
		{0b100, nil, SettleNFTCapacity},
		{0b010, make([]byte, 32), SettleToken},
		{0b110, make([]byte, 32), SettleToken},
	}
	for _, tc := range cases {
		a := orderArgs(testLock(0), tc.setup, u128(0), tc.unit)
		if got := a.Mode(); got != tc.want {
			t.Fatalf("setup=%03b: mode=%s, want %s", tc.setup, got, tc.want)
		}
	}
}

func TestParseProfile(t *testing.T) {
	for p, name := range profileNames {
		got, err := ParseProfile(" " + name + " ")
		if err != nil || got != p {
			t.Fatalf("ParseProfile(%q)=%v,%v", name, got, err)
		}
	}
	if _, err := ParseProfile("hash64"); err == nil {
		t.Fatalf("expected error")
	}
}
