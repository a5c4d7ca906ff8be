package config

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/nervina-labs/ckb-dex-contract/dexlock"
)

// Config drives the dexlock CLI. The zero code hash is rejected: every
// deployment must name the lock it verifies.
type Config struct {
	DataDir  string `json:"data_dir"`
	Profile  string `json:"profile"`
	CodeHash string `json:"code_hash"`
	HashType string `json:"hash_type"`
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`
}

const (
	EnvDataDir  = "DEXLOCK_DATA_DIR"
	EnvProfile  = "DEXLOCK_PROFILE"
	EnvCodeHash = "DEXLOCK_CODE_HASH"
	EnvHashType = "DEXLOCK_HASH_TYPE"
	EnvLogLevel = "DEXLOCK_LOG_LEVEL"
	EnvLogFile  = "DEXLOCK_LOG_FILE"
)

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

var hashTypes = map[string]byte{
	"data":  dexlock.HASH_TYPE_DATA,
	"type":  dexlock.HASH_TYPE_TYPE,
	"data1": dexlock.HASH_TYPE_DATA1,
	"data2": dexlock.HASH_TYPE_DATA2,
}

func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".dexlock"
	}
	return filepath.Join(home, ".dexlock")
}

func DefaultConfig() Config {
	return Config{
		DataDir:  DefaultDataDir(),
		Profile:  dexlock.DefaultProfile.String(),
		HashType: "data1",
		LogLevel: "info",
	}
}

// LoadFile overlays the JSON file at path onto cfg. Missing keys keep
// their current values.
func LoadFile(cfg Config, path string) (Config, error) {
	b, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path.
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config json: %w", err)
	}
	return cfg, nil
}

// ApplyEnv loads envPath (or ./.env when empty) if it exists and overlays
// DEXLOCK_* variables onto cfg. Variables already set in the process
// environment win over the file.
func ApplyEnv(cfg Config, envPath string) Config {
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}
	overlay := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	overlay(EnvDataDir, &cfg.DataDir)
	overlay(EnvProfile, &cfg.Profile)
	overlay(EnvCodeHash, &cfg.CodeHash)
	overlay(EnvHashType, &cfg.HashType)
	overlay(EnvLogLevel, &cfg.LogLevel)
	overlay(EnvLogFile, &cfg.LogFile)
	return cfg
}

// ValidateConfig checks every field, including the lock identity.
func ValidateConfig(cfg Config) error {
	if err := ValidateBase(cfg); err != nil {
		return err
	}
	if _, err := cfg.LockCodeHash(); err != nil {
		return err
	}
	if _, err := cfg.LockHashType(); err != nil {
		return err
	}
	return nil
}

// ValidateBase checks the fields needed by commands that never match locks
// in a transaction.
func ValidateBase(cfg Config) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("data_dir is required")
	}
	if _, err := dexlock.ParseProfile(cfg.Profile); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	logLevel := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if _, ok := allowedLogLevels[logLevel]; !ok {
		return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
	return nil
}

func (c Config) LockProfile() (dexlock.Profile, error) {
	return dexlock.ParseProfile(c.Profile)
}

func (c Config) LockCodeHash() ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(c.CodeHash), "0x"))
	if err != nil || len(raw) != 32 {
		return out, fmt.Errorf("invalid code_hash %q: want 32 hex bytes", c.CodeHash)
	}
	copy(out[:], raw)
	if out == ([32]byte{}) {
		return out, errors.New("code_hash is required")
	}
	return out, nil
}

func (c Config) LockHashType() (byte, error) {
	ht, ok := hashTypes[strings.ToLower(strings.TrimSpace(c.HashType))]
	if !ok {
		return 0, fmt.Errorf("invalid hash_type %q", c.HashType)
	}
	return ht, nil
}
