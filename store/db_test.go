package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nervina-labs/ckb-dex-contract/dexlock"
)

func sampleCell(tag byte, withType bool) dexlock.Cell {
	c := dexlock.Cell{
		Capacity: 61_0000_0000 + uint64(tag),
		Lock:     dexlock.Script{CodeHash: [32]byte{tag}, HashType: dexlock.HASH_TYPE_TYPE, Args: []byte{tag, tag}},
		Data:     []byte{0x10, tag},
	}
	if withType {
		c.Type = &dexlock.Script{CodeHash: [32]byte{0xee, tag}, HashType: dexlock.HASH_TYPE_DATA1, Args: []byte{tag}}
	}
	return c
}

func TestDB_PutGetDeleteCell(t *testing.T) {
	db, err := Open(t.TempDir(), dexlock.ProfileTypeHash32)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	p := OutPoint{TxHash: [32]byte{1}, Index: 2}
	cell := sampleCell(3, true)
	require.NoError(t, db.PutCell(p, cell))

	got, ok, err := db.GetCell(p)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, cell.Capacity, got.Capacity)
	require.True(t, cell.Lock.Equal(got.Lock))
	require.NotNil(t, got.Type)
	require.True(t, cell.Type.Equal(*got.Type))
	require.Equal(t, cell.Data, got.Data)

	require.NoError(t, db.DeleteCell(p))
	_, ok, err = db.GetCell(p)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDB_ManifestRecordsProfile(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, dexlock.ProfileTypeHash20)
	require.NoError(t, err)
	p, err := db.Profile()
	require.NoError(t, err)
	require.Equal(t, dexlock.ProfileTypeHash20, p)
	require.Equal(t, SchemaVersionV1, db.Manifest().SchemaVersion)
	require.Equal(t, dir, db.DataDir())
	require.NoError(t, db.Close())

	m, err := readManifest(dir)
	require.NoError(t, err)
	require.Equal(t, "hash20", m.Profile)

	db, err = Open(dir, dexlock.ProfileTypeHash20)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestDB_RejectsProfileMismatch(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, dexlock.ProfileTypeHash20)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Open(dir, dexlock.ProfileCapacity)
	require.ErrorIs(t, err, ErrProfileMismatch)

	// The rejected open released the bbolt file lock.
	db, err = Open(dir, dexlock.ProfileTypeHash20)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestDB_RejectsBadManifest(t *testing.T) {
	cases := []struct {
		name string
		m    Manifest
		want string
	}{
		{"newer schema", Manifest{SchemaVersion: SchemaVersionV1 + 1, Profile: "hash32"}, "schema_version"},
		{"zero schema", Manifest{Profile: "hash32"}, "schema_version"},
		{"unknown profile", Manifest{SchemaVersion: SchemaVersionV1, Profile: "hash64"}, "profile"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, writeManifest(dir, &tc.m))
			_, err := Open(dir, dexlock.ProfileTypeHash32)
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestWriteFileAtomic_ReplacesWithoutTemps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.json")
	require.NoError(t, writeFileAtomic(path, []byte("one")))
	require.NoError(t, writeFileAtomic(path, []byte("two")))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "two", string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	err = writeFileAtomic(filepath.Join(dir, "missing", "f.json"), []byte("x"))
	require.Error(t, err)
}

func TestDB_OpenRequiresDatadir(t *testing.T) {
	_, err := Open("", dexlock.ProfileTypeHash32)
	require.Error(t, err)
}

func TestDB_ResolveInputsKeepsOrder(t *testing.T) {
	db, err := Open(t.TempDir(), dexlock.ProfileTypeHash32)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	a := OutPoint{TxHash: [32]byte{0xaa}, Index: 0}
	b := OutPoint{TxHash: [32]byte{0xbb}, Index: 1}
	require.NoError(t, db.PutCell(a, sampleCell(1, false)))
	require.NoError(t, db.PutCell(b, sampleCell(2, true)))

	cells, err := db.ResolveInputs([]OutPoint{b, a})
	require.NoError(t, err)
	require.Len(t, cells, 2)
	require.Equal(t, uint64(61_0000_0002), cells[0].Capacity)
	require.Equal(t, uint64(61_0000_0001), cells[1].Capacity)

	_, err = db.ResolveInputs([]OutPoint{a, {Index: 9}})
	require.ErrorIs(t, err, ErrCellNotFound)
}

func TestDB_ApplyTxAndForEach(t *testing.T) {
	db, err := Open(t.TempDir(), dexlock.ProfileTypeHash32)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	in := OutPoint{TxHash: [32]byte{0x01}, Index: 0}
	require.NoError(t, db.PutCell(in, sampleCell(1, false)))

	txHash := [32]byte{0x02}
	require.NoError(t, db.ApplyTx(txHash, []OutPoint{in}, []dexlock.Cell{sampleCell(5, false), sampleCell(6, true)}))

	var seen []OutPoint
	require.NoError(t, db.ForEachCell(func(p OutPoint, _ dexlock.Cell) error {
		seen = append(seen, p)
		return nil
	}))
	require.Equal(t, []OutPoint{{TxHash: txHash, Index: 0}, {TxHash: txHash, Index: 1}}, seen)

	// Spending a consumed cell fails and leaves the store untouched.
	err = db.ApplyTx([32]byte{0x03}, []OutPoint{in}, []dexlock.Cell{sampleCell(7, false)})
	require.ErrorIs(t, err, ErrCellNotFound)
	_, ok, err := db.GetCell(OutPoint{TxHash: [32]byte{0x03}})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDBPath(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, dexlock.ProfileTypeHash32)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = os.Stat(DBPath(dir))
	require.NoError(t, err)
}
