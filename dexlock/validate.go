package dexlock

import (
	"bytes"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

type Validator struct {
	profile Profile
	log     *zap.Logger
}

type Option func(*Validator)

func WithLogger(l *zap.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.log = l
		}
	}
}

func NewValidator(p Profile, opts ...Option) *Validator {
	v := &Validator{profile: p, log: zap.NewNop()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Validator) Profile() Profile { return v.profile }

// Verify runs the lock once against h. It returns nil when the transaction
// either carries a maker-locked input or pays the maker the order's value
// at the output paired with this cell's input.
func Verify(h Host, p Profile) error {
	return NewValidator(p).Verify(h)
}

func (v *Validator) Verify(h Host) error {
	args, err := v.loadArgs(h)
	if err != nil {
		return err
	}

	owned, err := InputsContainOwnerCell(h, args)
	if err != nil {
		return err
	}
	if owned {
		v.log.Debug("maker input present, order cancelled")
		return nil
	}

	index, err := PositionInInputs(h)
	if err != nil {
		return err
	}
	outputLock, err := h.LoadCellLock(index, SourceOutput)
	if err != nil {
		return fromSysError(err)
	}
	if !bytes.Equal(args.OwnerLock, outputLock) {
		return lockerr(ERR_DEX_OWNER_LOCK_NOT_MATCH, fmt.Sprintf("output %d lock differs from owner lock", index))
	}

	mode := args.Mode()
	switch mode {
	case SettleToken:
		err = v.checkToken(h, index, args)
	case SettleNFTCapacity:
		err = v.checkNFTCapacity(h, index, args)
	default:
		err = v.checkFTCapacity(h, index, args)
	}
	if err != nil {
		return err
	}
	v.log.Debug("order fulfilled",
		zap.Int("index", index),
		zap.Stringer("mode", mode),
		zap.String("total_value", args.TotalValue.Dec()),
	)
	return nil
}

func (v *Validator) loadArgs(h Host) (*OrderArgs, error) {
	raw, err := h.LoadScript()
	if err != nil {
		return nil, fromSysError(err)
	}
	script, err := ParseScript(raw)
	if err != nil {
		return nil, err
	}
	return ParseOrderArgs(script.Args, v.profile)
}

func (v *Validator) checkToken(h Host, index int, args *OrderArgs) error {
	typeHash, ok, err := h.LoadCellTypeHash(index, SourceOutput)
	if err != nil {
		return fromSysError(err)
	}
	if !ok {
		return lockerr(ERR_UNIT_TYPE_NOT_MATCH, fmt.Sprintf("output %d has no type script", index))
	}
	width := len(args.UnitTypeHash)
	if width > len(typeHash) || !bytes.Equal(typeHash[:width], args.UnitTypeHash) {
		return lockerr(ERR_UNIT_TYPE_NOT_MATCH, fmt.Sprintf("output %d type hash mismatch", index))
	}

	data, err := h.LoadCellData(index, SourceOutput)
	if err != nil {
		return fromSysError(err)
	}
	// The token's type script owns the data layout; only the amount prefix
	// is read here.
	if len(data) < UDT_AMOUNT_LEN {
		return lockerr(ERR_LENGTH_NOT_ENOUGH, fmt.Sprintf("output %d data %d bytes", index, len(data)))
	}
	amount, err := u128FromLE(data[:UDT_AMOUNT_LEN])
	if err != nil {
		return err
	}
	if amount.Lt(&args.TotalValue) {
		return lockerr(ERR_TOTAL_VALUE_NOT_MATCH, fmt.Sprintf("token amount %s < %s", amount.Dec(), args.TotalValue.Dec()))
	}
	return nil
}

func (v *Validator) checkNFTCapacity(h Host, index int, args *OrderArgs) error {
	outputCapacity, err := h.LoadCellCapacity(index, SourceOutput)
	if err != nil {
		return fromSysError(err)
	}
	// NFT orders compare against the output alone; the order cell's own
	// capacity is not added.
	out := uint256.NewInt(outputCapacity)
	if args.TotalValue.Gt(out) {
		return lockerr(ERR_DEX_NFT_TOTAL_VALUE_NOT_MATCH, fmt.Sprintf("output capacity %d < %s", outputCapacity, args.TotalValue.Dec()))
	}
	return nil
}

func (v *Validator) checkFTCapacity(h Host, index int, args *OrderArgs) error {
	inputCapacity, err := h.LoadCellCapacity(index, SourceInput)
	if err != nil {
		return fromSysError(err)
	}
	outputCapacity, err := h.LoadCellCapacity(index, SourceOutput)
	if err != nil {
		return fromSysError(err)
	}
	total, err := addU128(&args.TotalValue, uint256.NewInt(inputCapacity))
	if err != nil {
		return err
	}
	if total.Gt(uint256.NewInt(outputCapacity)) {
		return lockerr(ERR_DEX_FT_TOTAL_VALUE_NOT_MATCH, fmt.Sprintf("output capacity %d < %s", outputCapacity, total.Dec()))
	}
	return nil
}
