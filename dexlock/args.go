package dexlock

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// MIN_ARGS_SIZE is the smallest args blob accepted before any field is read.
const MIN_ARGS_SIZE = 66

// Fixed tail after the owner lock: setup(1) || total_value(16, big-endian).
const argsFixedTail = 1 + U128_BYTES

const (
	SETUP_RECEIVER_LOCK  byte = 0b0000_0001
	SETUP_UNIT_TYPE_HASH byte = 0b0000_0010
	SETUP_NFT            byte = 0b0000_0100

	setupKnownBits = SETUP_RECEIVER_LOCK | SETUP_UNIT_TYPE_HASH | SETUP_NFT
)

// Profile selects one of the deployed args encodings.
type Profile uint8

const (
	// ProfileCapacity settles by capacity only; setup is exactly 0 (FT) or
	// SETUP_NFT.
	ProfileCapacity Profile = iota + 1
	// ProfileTypeHash20 uses setup bits and a 20-byte unit type hash.
	ProfileTypeHash20
	// ProfileTypeHash32 uses setup bits and a 32-byte unit type hash.
	ProfileTypeHash32
)

const DefaultProfile = ProfileTypeHash32

var profileNames = map[Profile]string{
	ProfileCapacity:   "capacity",
	ProfileTypeHash20: "hash20",
	ProfileTypeHash32: "hash32",
}

func (p Profile) String() string {
	if s, ok := profileNames[p]; ok {
		return s
	}
	return fmt.Sprintf("profile(%d)", uint8(p))
}

func ParseProfile(s string) (Profile, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range profileNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown profile %q", s)
}

// HashWidth is the unit type hash width, 0 when the profile has none.
func (p Profile) HashWidth() int {
	switch p {
	case ProfileTypeHash20:
		return 20
	case ProfileTypeHash32:
		return 32
	default:
		return 0
	}
}

func (p Profile) valid() bool {
	_, ok := profileNames[p]
	return ok
}

// ReceiverLock records where payment goes. Only the maker's own lock is
// implemented; the alternate receiver encoding is reserved.
type ReceiverLock uint8

const (
	ReceiverMaker ReceiverLock = iota
	ReceiverUnsupported
)

type SettlementMode uint8

const (
	SettleFTCapacity SettlementMode = iota
	SettleNFTCapacity
	SettleToken
)

func (m SettlementMode) String() string {
	switch m {
	case SettleFTCapacity:
		return "ft_capacity"
	case SettleNFTCapacity:
		return "nft_capacity"
	case SettleToken:
		return "token"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// OrderArgs are the decoded terms of one order cell.
type OrderArgs struct {
	// OwnerLock is the maker's serialized lock script. It is only ever
	// compared byte for byte.
	OwnerLock  []byte
	Setup      byte
	TotalValue uint256.Int
	Receiver   ReceiverLock
	// UnitTypeHash is nil when the order settles by capacity.
	UnitTypeHash []byte
}

func (a *OrderArgs) IsNFT() bool { return a.Setup&SETUP_NFT != 0 }

func (a *OrderArgs) IsUDT() bool { return a.Setup&SETUP_NFT == 0 }

func (a *OrderArgs) Mode() SettlementMode {
	switch {
	case a.UnitTypeHash != nil:
		return SettleToken
	case a.IsNFT():
		return SettleNFTCapacity
	default:
		return SettleFTCapacity
	}
}

// ParseOrderArgs decodes raw lock args under profile p.
func ParseOrderArgs(raw []byte, p Profile) (*OrderArgs, error) {
	if !p.valid() {
		return nil, fmt.Errorf("dexlock: invalid profile %d", uint8(p))
	}
	if len(raw) < MIN_ARGS_SIZE {
		return nil, lockerr(ERR_LOCK_ARGS_INVALID, fmt.Sprintf("args length %d < %d", len(raw), MIN_ARGS_SIZE))
	}
	sizeField, err := parseFixed(raw[0:4], 4)
	if err != nil {
		return nil, err
	}
	ownerSize := uint64(binary.LittleEndian.Uint32(sizeField))
	requiredSize := ownerSize + argsFixedTail
	if uint64(len(raw)) < requiredSize {
		return nil, lockerr(ERR_LOCK_ARGS_INVALID, fmt.Sprintf("args length %d < owner lock %d + %d", len(raw), ownerSize, argsFixedTail))
	}
	// Both bounds are now <= len(raw).
	owner := int(ownerSize)
	end := int(requiredSize)

	ownerLock := raw[:owner]
	if err := verifyScriptTable(ownerLock); err != nil {
		return nil, err
	}

	setup := raw[owner]
	if err := checkSetup(setup, p); err != nil {
		return nil, err
	}

	totalValue, err := u128FromBE(raw[owner+1 : end])
	if err != nil {
		return nil, err
	}

	if setup&SETUP_RECEIVER_LOCK != 0 {
		return nil, lockerr(ERR_DEX_SETUP_INVALID, "receiver lock is not supported")
	}

	var unitTypeHash []byte
	if setup&SETUP_UNIT_TYPE_HASH != 0 {
		width := p.HashWidth()
		tail := raw[end:]
		if len(tail) != width {
			return nil, lockerr(ERR_LOCK_ARGS_INVALID, fmt.Sprintf("unit type hash: want %d bytes, got %d", width, len(tail)))
		}
		unitTypeHash = append([]byte(nil), tail...)
	}

	return &OrderArgs{
		OwnerLock:    append([]byte(nil), ownerLock...),
		Setup:        setup,
		TotalValue:   totalValue,
		Receiver:     ReceiverMaker,
		UnitTypeHash: unitTypeHash,
	}, nil
}

func checkSetup(setup byte, p Profile) error {
	if p == ProfileCapacity {
		if setup != 0 && setup != SETUP_NFT {
			return lockerr(ERR_DEX_SETUP_INVALID, fmt.Sprintf("setup %#02x not in {0x00, 0x04}", setup))
		}
		return nil
	}
	if setup&^setupKnownBits != 0 {
		return lockerr(ERR_DEX_SETUP_INVALID, fmt.Sprintf("setup %#02x has unknown bits", setup))
	}
	return nil
}

// Encode serializes the terms in the args layout. It writes Setup as given,
// so reserved bits can be produced for negative tests.
func (a *OrderArgs) Encode() []byte {
	out := make([]byte, 0, len(a.OwnerLock)+argsFixedTail+len(a.UnitTypeHash))
	out = append(out, a.OwnerLock...)
	out = append(out, a.Setup)
	v := U128BE(&a.TotalValue)
	out = append(out, v[:]...)
	out = append(out, a.UnitTypeHash...)
	return out
}
