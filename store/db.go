// Package store keeps live cells in a bbolt file so transactions can be
// assembled from out points before verification.
package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nervina-labs/ckb-dex-contract/dexlock"

	bolt "go.etcd.io/bbolt"
)

var bucketCells = []byte("cells_by_outpoint")

var ErrCellNotFound = errors.New("store: cell not found")

type DB struct {
	datadir  string
	db       *bolt.DB
	manifest *Manifest
}

// Open opens or creates the cell store under datadir. A new store records
// profile in its manifest; reopening it under another profile fails with
// ErrProfileMismatch.
func Open(datadir string, profile dexlock.Profile) (*DB, error) {
	if datadir == "" {
		return nil, fmt.Errorf("datadir required")
	}
	if err := ensureDir(filepath.Dir(DBPath(datadir))); err != nil {
		return nil, err
	}

	bdb, err := bolt.Open(DBPath(datadir), 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open bbolt: %w", err)
	}

	d := &DB{datadir: datadir, db: bdb}
	if err := d.db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketCells); err != nil {
			return fmt.Errorf("create bucket %s: %w", string(bucketCells), err)
		}
		return nil
	}); err != nil {
		_ = bdb.Close()
		return nil, err
	}

	m, err := loadManifest(datadir, profile)
	if err != nil {
		_ = bdb.Close()
		return nil, err
	}
	d.manifest = m
	return d, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) DataDir() string { return d.datadir }

func (d *DB) Manifest() *Manifest {
	if d == nil {
		return nil
	}
	return d.manifest
}

// Profile returns the args encoding recorded when the store was created.
func (d *DB) Profile() (dexlock.Profile, error) {
	if d.manifest == nil {
		return 0, fmt.Errorf("store: no manifest")
	}
	return dexlock.ParseProfile(d.manifest.Profile)
}

func (d *DB) PutCell(point OutPoint, c dexlock.Cell) error {
	val, err := encodeCell(c)
	if err != nil {
		return err
	}
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCells).Put(encodeOutPointKey(point), val)
	})
}

func (d *DB) GetCell(point OutPoint) (dexlock.Cell, bool, error) {
	var out dexlock.Cell
	var ok bool
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketCells).Get(encodeOutPointKey(point))
		if v == nil {
			return nil
		}
		c, err := decodeCell(v)
		if err != nil {
			return err
		}
		out = c
		ok = true
		return nil
	})
	return out, ok, err
}

func (d *DB) DeleteCell(point OutPoint) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCells).Delete(encodeOutPointKey(point))
	})
}

// ForEachCell visits stored cells in key order until fn returns an error.
func (d *DB) ForEachCell(fn func(OutPoint, dexlock.Cell) error) error {
	return d.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCells).ForEach(func(k, v []byte) error {
			p, err := decodeOutPointKey(k)
			if err != nil {
				return err
			}
			c, err := decodeCell(v)
			if err != nil {
				return fmt.Errorf("cell %s: %w", p, err)
			}
			return fn(p, c)
		})
	})
}

// ResolveInputs looks up every out point in one read transaction and
// returns the cells in the same order.
func (d *DB) ResolveInputs(points []OutPoint) ([]dexlock.Cell, error) {
	out := make([]dexlock.Cell, 0, len(points))
	err := d.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCells)
		for _, p := range points {
			v := b.Get(encodeOutPointKey(p))
			if v == nil {
				return fmt.Errorf("%w: %s", ErrCellNotFound, p)
			}
			c, err := decodeCell(v)
			if err != nil {
				return fmt.Errorf("cell %s: %w", p, err)
			}
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyTx consumes the given inputs and records the outputs as new live
// cells under txHash, atomically.
func (d *DB) ApplyTx(txHash [32]byte, inputs []OutPoint, outputs []dexlock.Cell) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCells)
		for _, p := range inputs {
			k := encodeOutPointKey(p)
			if b.Get(k) == nil {
				return fmt.Errorf("%w: %s", ErrCellNotFound, p)
			}
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		for i, c := range outputs {
			val, err := encodeCell(c)
			if err != nil {
				return err
			}
			if err := b.Put(encodeOutPointKey(OutPoint{TxHash: txHash, Index: uint32(i)}), val); err != nil {
				return err
			}
		}
		return nil
	})
}
