package dexlock

import "bytes"

// forEachInputLock calls fn with every input lock in order until fn returns
// true or the inputs are exhausted. It reports whether fn stopped early.
func forEachInputLock(h Host, fn func(index int, lock []byte) bool) (bool, error) {
	for i := 0; ; i++ {
		lock, err := h.LoadCellLock(i, SourceInput)
		if err != nil {
			if isIndexOutOfBound(err) {
				return false, nil
			}
			return false, fromSysError(err)
		}
		if fn(i, lock) {
			return true, nil
		}
	}
}

// InputsContainOwnerCell reports whether any input is locked by the
// maker's own lock. Such an input is authorized by the host running the
// maker's lock, so its presence alone proves the maker signed off.
func InputsContainOwnerCell(h Host, args *OrderArgs) (bool, error) {
	return forEachInputLock(h, func(_ int, lock []byte) bool {
		return bytes.Equal(lock, args.OwnerLock)
	})
}

// PositionInInputs returns the index of the first input locked by the
// executing script.
func PositionInInputs(h Host) (int, error) {
	current, err := h.LoadScript()
	if err != nil {
		return 0, fromSysError(err)
	}
	pos := -1
	found, err := forEachInputLock(h, func(i int, lock []byte) bool {
		if bytes.Equal(lock, current) {
			pos = i
			return true
		}
		return false
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, lockerr(ERR_INDEX_OUT_OF_BOUND, "executing lock not found in inputs")
	}
	return pos, nil
}
