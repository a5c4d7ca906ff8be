package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/nervina-labs/ckb-dex-contract/dexlock"
	"github.com/nervina-labs/ckb-dex-contract/store"
)

type ScriptJSON struct {
	CodeHash string `json:"code_hash"`
	HashType string `json:"hash_type"`
	Args     string `json:"args"`
}

type CellJSON struct {
	Capacity uint64      `json:"capacity"`
	Lock     ScriptJSON  `json:"lock"`
	Type     *ScriptJSON `json:"type,omitempty"`
	Data     string      `json:"data,omitempty"`
}

// InputJSON is either a stored cell reference or an inline resolved cell.
type InputJSON struct {
	OutPoint string    `json:"out_point,omitempty"`
	Cell     *CellJSON `json:"cell,omitempty"`
}

type TxJSON struct {
	Hash    string      `json:"hash,omitempty"`
	Inputs  []InputJSON `json:"inputs"`
	Outputs []CellJSON  `json:"outputs"`
}

type ArgsJSON struct {
	OwnerLock    ScriptJSON `json:"owner_lock"`
	Setup        byte       `json:"setup"`
	Mode         string     `json:"mode"`
	TotalValue   string     `json:"total_value"`
	UnitTypeHash string     `json:"unit_type_hash,omitempty"`
}

type GroupJSON struct {
	InputIndex int    `json:"input_index"`
	LockHash   string `json:"lock_hash"`
	ExitCode   int    `json:"exit_code"`
	Err        string `json:"err,omitempty"`
}

type VerifyJSON struct {
	Ok     bool        `json:"ok"`
	Groups []GroupJSON `json:"groups"`
}

var hashTypeNames = map[byte]string{
	dexlock.HASH_TYPE_DATA:  "data",
	dexlock.HASH_TYPE_TYPE:  "type",
	dexlock.HASH_TYPE_DATA1: "data1",
	dexlock.HASH_TYPE_DATA2: "data2",
}

func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	return hex.DecodeString(s)
}

func toHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func parseHashType(s string) (byte, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for b, name := range hashTypeNames {
		if name == s {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown hash_type %q", s)
}

func scriptFromJSON(j ScriptJSON) (dexlock.Script, error) {
	var s dexlock.Script
	codeHash, err := parseHex(j.CodeHash)
	if err != nil || len(codeHash) != 32 {
		return s, fmt.Errorf("code_hash %q: want 32 hex bytes", j.CodeHash)
	}
	copy(s.CodeHash[:], codeHash)
	if s.HashType, err = parseHashType(j.HashType); err != nil {
		return s, err
	}
	if s.Args, err = parseHex(j.Args); err != nil {
		return s, fmt.Errorf("args: %w", err)
	}
	return s, nil
}

func scriptToJSON(s dexlock.Script) ScriptJSON {
	name, ok := hashTypeNames[s.HashType]
	if !ok {
		name = fmt.Sprintf("%#02x", s.HashType)
	}
	return ScriptJSON{
		CodeHash: toHex(s.CodeHash[:]),
		HashType: name,
		Args:     toHex(s.Args),
	}
}

func cellFromJSON(j CellJSON) (dexlock.Cell, error) {
	var c dexlock.Cell
	lock, err := scriptFromJSON(j.Lock)
	if err != nil {
		return c, fmt.Errorf("lock: %w", err)
	}
	c.Capacity = j.Capacity
	c.Lock = lock
	if j.Type != nil {
		typ, err := scriptFromJSON(*j.Type)
		if err != nil {
			return c, fmt.Errorf("type: %w", err)
		}
		c.Type = &typ
	}
	if j.Data != "" {
		if c.Data, err = parseHex(j.Data); err != nil {
			return c, fmt.Errorf("data: %w", err)
		}
	}
	return c, nil
}

func cellToJSON(c dexlock.Cell) CellJSON {
	j := CellJSON{Capacity: c.Capacity, Lock: scriptToJSON(c.Lock)}
	if c.Type != nil {
		t := scriptToJSON(*c.Type)
		j.Type = &t
	}
	if len(c.Data) > 0 {
		j.Data = toHex(c.Data)
	}
	return j
}

func argsToJSON(a *dexlock.OrderArgs) (ArgsJSON, error) {
	owner, err := dexlock.ParseScript(a.OwnerLock)
	if err != nil {
		return ArgsJSON{}, err
	}
	out := ArgsJSON{
		OwnerLock:  scriptToJSON(*owner),
		Setup:      a.Setup,
		Mode:       a.Mode().String(),
		TotalValue: a.TotalValue.Dec(),
	}
	if a.UnitTypeHash != nil {
		out.UnitTypeHash = toHex(a.UnitTypeHash)
	}
	return out, nil
}

func argsFromJSON(j ArgsJSON) (*dexlock.OrderArgs, error) {
	owner, err := scriptFromJSON(j.OwnerLock)
	if err != nil {
		return nil, fmt.Errorf("owner_lock: %w", err)
	}
	total, err := dexlock.ParseU128(j.TotalValue)
	if err != nil {
		return nil, err
	}
	a := &dexlock.OrderArgs{
		OwnerLock:  owner.Bytes(),
		Setup:      j.Setup,
		TotalValue: *total,
	}
	if j.UnitTypeHash != "" {
		if a.UnitTypeHash, err = parseHex(j.UnitTypeHash); err != nil {
			return nil, fmt.Errorf("unit_type_hash: %w", err)
		}
	}
	return a, nil
}

type cellResolver func([]store.OutPoint) ([]dexlock.Cell, error)

// buildTx resolves tx into a MemTx. resolve may be nil when every input is
// inline. The returned out points are the stored inputs, in input order.
func buildTx(tx TxJSON, resolve cellResolver) (*dexlock.MemTx, []store.OutPoint, error) {
	mem := &dexlock.MemTx{Inputs: make([]dexlock.Cell, len(tx.Inputs))}
	var points []store.OutPoint
	var pointSlots []int
	for i, in := range tx.Inputs {
		switch {
		case in.Cell != nil && in.OutPoint != "":
			return nil, nil, fmt.Errorf("input %d: out_point and cell are exclusive", i)
		case in.Cell != nil:
			c, err := cellFromJSON(*in.Cell)
			if err != nil {
				return nil, nil, fmt.Errorf("input %d: %w", i, err)
			}
			mem.Inputs[i] = c
		case in.OutPoint != "":
			p, err := store.ParseOutPoint(in.OutPoint)
			if err != nil {
				return nil, nil, fmt.Errorf("input %d: %w", i, err)
			}
			points = append(points, p)
			pointSlots = append(pointSlots, i)
		default:
			return nil, nil, fmt.Errorf("input %d: out_point or cell required", i)
		}
	}
	if len(points) > 0 {
		if resolve == nil {
			return nil, nil, fmt.Errorf("inputs reference stored cells but no store is open")
		}
		cells, err := resolve(points)
		if err != nil {
			return nil, nil, err
		}
		for k, slot := range pointSlots {
			mem.Inputs[slot] = cells[k]
		}
	}
	for i, o := range tx.Outputs {
		c, err := cellFromJSON(o)
		if err != nil {
			return nil, nil, fmt.Errorf("output %d: %w", i, err)
		}
		mem.Outputs = append(mem.Outputs, c)
	}
	return mem, points, nil
}

func verifyMemTx(mem *dexlock.MemTx, codeHash [32]byte, hashType byte, v *dexlock.Validator) (VerifyJSON, error) {
	results, err := dexlock.VerifyTx(mem, codeHash, hashType, v)
	if err != nil {
		return VerifyJSON{}, err
	}
	out := VerifyJSON{Ok: true, Groups: make([]GroupJSON, 0, len(results))}
	for _, r := range results {
		h := r.Lock.Hash()
		g := GroupJSON{
			InputIndex: r.InputIndex,
			LockHash:   toHex(h[:]),
			ExitCode:   r.ExitCode(),
		}
		if r.Err != nil {
			g.Err = r.Err.Error()
			out.Ok = false
		}
		out.Groups = append(out.Groups, g)
	}
	return out, nil
}

// Request is one JSON command read by `exec`.
type Request struct {
	Op       string    `json:"op"`
	ArgsHex  string    `json:"args_hex,omitempty"`
	Args     *ArgsJSON `json:"args,omitempty"`
	Profile  string    `json:"profile,omitempty"`
	CodeHash string    `json:"code_hash,omitempty"`
	HashType string    `json:"hash_type,omitempty"`
	Tx       *TxJSON   `json:"tx,omitempty"`
}

type Response struct {
	Ok      bool        `json:"ok"`
	Err     string      `json:"err,omitempty"`
	Code    int         `json:"code,omitempty"`
	Args    *ArgsJSON   `json:"args,omitempty"`
	ArgsHex string      `json:"args_hex,omitempty"`
	Verify  *VerifyJSON `json:"verify,omitempty"`
}

func writeResp(w io.Writer, resp Response) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(resp)
}

func errResp(err error) Response {
	return Response{Ok: false, Err: err.Error(), Code: dexlock.ExitCode(err)}
}

// runExec answers a single request. Requests carry their own profile and
// lock identity so the runtime needs neither config nor store.
func runExec(r io.Reader, w io.Writer, v func(dexlock.Profile) *dexlock.Validator) {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		writeResp(w, Response{Ok: false, Err: fmt.Sprintf("bad request: %v", err)})
		return
	}
	profile := dexlock.DefaultProfile
	if req.Profile != "" {
		p, err := dexlock.ParseProfile(req.Profile)
		if err != nil {
			writeResp(w, Response{Ok: false, Err: err.Error()})
			return
		}
		profile = p
	}

	switch req.Op {
	case "decode_args":
		raw, err := parseHex(req.ArgsHex)
		if err != nil {
			writeResp(w, Response{Ok: false, Err: "bad hex"})
			return
		}
		a, err := dexlock.ParseOrderArgs(raw, profile)
		if err != nil {
			writeResp(w, errResp(err))
			return
		}
		j, err := argsToJSON(a)
		if err != nil {
			writeResp(w, errResp(err))
			return
		}
		writeResp(w, Response{Ok: true, Args: &j})

	case "encode_args":
		if req.Args == nil {
			writeResp(w, Response{Ok: false, Err: "args required"})
			return
		}
		a, err := argsFromJSON(*req.Args)
		if err != nil {
			writeResp(w, Response{Ok: false, Err: err.Error()})
			return
		}
		encoded := a.Encode()
		if _, err := dexlock.ParseOrderArgs(encoded, profile); err != nil {
			writeResp(w, errResp(err))
			return
		}
		writeResp(w, Response{Ok: true, ArgsHex: toHex(encoded)})

	case "verify_tx":
		if req.Tx == nil {
			writeResp(w, Response{Ok: false, Err: "tx required"})
			return
		}
		codeHash, err := parseHex(req.CodeHash)
		if err != nil || len(codeHash) != 32 {
			writeResp(w, Response{Ok: false, Err: "bad code_hash"})
			return
		}
		hashType, err := parseHashType(req.HashType)
		if err != nil {
			writeResp(w, Response{Ok: false, Err: err.Error()})
			return
		}
		mem, _, err := buildTx(*req.Tx, nil)
		if err != nil {
			writeResp(w, Response{Ok: false, Err: err.Error()})
			return
		}
		var ch [32]byte
		copy(ch[:], codeHash)
		res, err := verifyMemTx(mem, ch, hashType, v(profile))
		if err != nil {
			writeResp(w, Response{Ok: false, Err: err.Error()})
			return
		}
		resp := Response{Ok: res.Ok, Verify: &res}
		if f, ok := firstFailedGroup(res); ok {
			resp.Code = f.ExitCode
			resp.Err = f.Err
		}
		writeResp(w, resp)

	default:
		writeResp(w, Response{Ok: false, Err: fmt.Sprintf("unknown op %q", req.Op)})
	}
}

func firstFailedGroup(res VerifyJSON) (GroupJSON, bool) {
	for _, g := range res.Groups {
		if g.ExitCode != 0 {
			return g, true
		}
	}
	return GroupJSON{}, false
}
