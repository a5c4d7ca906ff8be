package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nervina-labs/ckb-dex-contract/dexlock"
)

const SchemaVersionV1 uint32 = 1

// ErrProfileMismatch is returned when a store is opened with an args profile
// other than the one it was created for.
var ErrProfileMismatch = errors.New("store: profile mismatch")

type Manifest struct {
	SchemaVersion uint32 `json:"schema_version"`
	// Profile is the args encoding the stored order cells were written for.
	Profile string `json:"profile"`
}

func manifestPath(datadir string) string {
	return filepath.Join(datadir, "MANIFEST.json")
}

// check accepts a manifest this build can read that was written for profile.
func (m *Manifest) check(profile dexlock.Profile) error {
	if m.SchemaVersion == 0 || m.SchemaVersion > SchemaVersionV1 {
		return fmt.Errorf("manifest schema_version %d, supported %d", m.SchemaVersion, SchemaVersionV1)
	}
	recorded, err := dexlock.ParseProfile(m.Profile)
	if err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	if recorded != profile {
		return fmt.Errorf("%w: store holds %s orders, opened as %s", ErrProfileMismatch, recorded, profile)
	}
	return nil
}

func readManifest(datadir string) (*Manifest, error) {
	b, err := os.ReadFile(manifestPath(datadir))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("manifest json: %w", err)
	}
	return &m, nil
}

// loadManifest returns the store's manifest, creating it for profile on
// first open.
func loadManifest(datadir string, profile dexlock.Profile) (*Manifest, error) {
	m, err := readManifest(datadir)
	if errors.Is(err, os.ErrNotExist) {
		m = &Manifest{SchemaVersion: SchemaVersionV1, Profile: profile.String()}
		if err := writeManifest(datadir, m); err != nil {
			return nil, err
		}
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if err := m.check(profile); err != nil {
		return nil, err
	}
	return m, nil
}

func writeManifest(datadir string, m *Manifest) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("manifest json: %w", err)
	}
	return writeFileAtomic(manifestPath(datadir), append(b, '\n'))
}

// writeFileAtomic replaces path with data so readers see either the old or
// the new file, never a partial one.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err = os.Chmod(tmp, 0o600); err != nil {
		return err
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir) // #nosec G304 -- dir is the operator's datadir.
	if err != nil {
		return err
	}
	serr := d.Sync()
	if cerr := d.Close(); serr == nil {
		serr = cerr
	}
	if serr != nil {
		return fmt.Errorf("sync %s: %w", dir, serr)
	}
	return nil
}
