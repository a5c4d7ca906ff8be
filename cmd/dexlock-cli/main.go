package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nervina-labs/ckb-dex-contract/config"
	"github.com/nervina-labs/ckb-dex-contract/dexlock"
	"github.com/nervina-labs/ckb-dex-contract/logging"
	"github.com/nervina-labs/ckb-dex-contract/store"
)

const (
	exitUsage = 64
	exitFault = 70
)

// exitError carries the process exit status out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// verdictError maps a lock failure to its code, and host faults to exitFault.
func verdictError(err error) error {
	if err == nil {
		return nil
	}
	code := dexlock.ExitCode(err)
	if code <= 0 {
		code = exitFault
	}
	return &exitError{code: code, err: err}
}

type cliFlags struct {
	configPath string
	envPath    string
	dataDir    string
	profile    string
	codeHash   string
	hashType   string
	logLevel   string
	logFile    string
}

type app struct {
	flags    cliFlags
	cfg      config.Config
	logger   *zap.Logger
	closeLog func() error
	stdout   io.Writer
	stdin    io.Reader
}

// setup resolves config with precedence flags > env > file > defaults.
// requireLock is false for commands that do not need the lock identity.
func (a *app) setup(cmd *cobra.Command, requireLock bool) error {
	cfg := config.DefaultConfig()
	if a.flags.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(cfg, a.flags.configPath); err != nil {
			return &exitError{code: exitUsage, err: err}
		}
	}
	cfg = config.ApplyEnv(cfg, a.flags.envPath)
	override := func(name string, val string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst = val
		}
	}
	override("datadir", a.flags.dataDir, &cfg.DataDir)
	override("profile", a.flags.profile, &cfg.Profile)
	override("code-hash", a.flags.codeHash, &cfg.CodeHash)
	override("hash-type", a.flags.hashType, &cfg.HashType)
	override("log-level", a.flags.logLevel, &cfg.LogLevel)
	override("log-file", a.flags.logFile, &cfg.LogFile)

	validate := config.ValidateBase
	if requireLock {
		validate = config.ValidateConfig
	}
	if err := validate(cfg); err != nil {
		return &exitError{code: exitUsage, err: fmt.Errorf("invalid config: %w", err)}
	}
	logger, closeLog, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	a.cfg = cfg
	a.logger = logger
	a.closeLog = closeLog
	return nil
}

func (a *app) validator() (*dexlock.Validator, error) {
	p, err := a.cfg.LockProfile()
	if err != nil {
		return nil, err
	}
	return dexlock.NewValidator(p, dexlock.WithLogger(a.logger.Named("dexlock"))), nil
}

// lockIdentity returns the code hash and hash type that select order locks
// among a transaction's inputs.
func (a *app) lockIdentity() ([32]byte, byte, error) {
	codeHash, err := a.cfg.LockCodeHash()
	if err != nil {
		return codeHash, 0, &exitError{code: exitUsage, err: err}
	}
	hashType, err := a.cfg.LockHashType()
	if err != nil {
		return codeHash, 0, &exitError{code: exitUsage, err: err}
	}
	return codeHash, hashType, nil
}

func (a *app) openStore() (*store.DB, error) {
	p, err := a.cfg.LockProfile()
	if err != nil {
		return nil, err
	}
	db, err := store.Open(a.cfg.DataDir, p)
	if errors.Is(err, store.ErrProfileMismatch) {
		return nil, &exitError{code: exitUsage, err: err}
	}
	return db, err
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "dexlock-cli",
		Short:         "Decode and verify DEX order lock transactions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "JSON config file")
	pf.StringVar(&a.flags.envPath, "env-file", "", ".env file (default ./.env)")
	pf.StringVar(&a.flags.dataDir, "datadir", "", "cell store directory")
	pf.StringVar(&a.flags.profile, "profile", "", "args encoding: capacity|hash20|hash32")
	pf.StringVar(&a.flags.codeHash, "code-hash", "", "order lock code hash (hex)")
	pf.StringVar(&a.flags.hashType, "hash-type", "", "order lock hash type: data|type|data1|data2")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug|info|warn|error")
	pf.StringVar(&a.flags.logFile, "log-file", "", "also append logs to this file")

	root.AddCommand(
		newDecodeCmd(a),
		newEncodeCmd(a),
		newVerifyCmd(a),
		newCellCmd(a),
		newExecCmd(a),
	)
	return root
}

func newDecodeCmd(a *app) *cobra.Command {
	var argsHex string
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode order lock args",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, false); err != nil {
				return err
			}
			raw, err := parseHex(argsHex)
			if err != nil {
				return &exitError{code: exitUsage, err: fmt.Errorf("args: %w", err)}
			}
			p, err := a.cfg.LockProfile()
			if err != nil {
				return err
			}
			args, err := dexlock.ParseOrderArgs(raw, p)
			if err != nil {
				a.logger.Info("decode rejected", zap.Error(err))
				return verdictError(err)
			}
			j, err := argsToJSON(args)
			if err != nil {
				return verdictError(err)
			}
			return a.printJSON(j)
		},
	}
	cmd.Flags().StringVar(&argsHex, "args", "", "lock args (hex)")
	_ = cmd.MarkFlagRequired("args")
	return cmd
}

func newEncodeCmd(a *app) *cobra.Command {
	var (
		ownerLockHex string
		setup        uint8
		totalValue   string
		unitTypeHash string
		unitType     string
	)
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode order lock args",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, false); err != nil {
				return err
			}
			ownerRaw, err := parseHex(ownerLockHex)
			if err != nil {
				return &exitError{code: exitUsage, err: fmt.Errorf("owner-lock: %w", err)}
			}
			owner, err := dexlock.ParseScript(ownerRaw)
			if err != nil {
				return &exitError{code: exitUsage, err: fmt.Errorf("owner-lock: %w", err)}
			}
			j := ArgsJSON{
				OwnerLock:    scriptToJSON(*owner),
				Setup:        setup,
				TotalValue:   totalValue,
				UnitTypeHash: unitTypeHash,
			}
			p, err := a.cfg.LockProfile()
			if err != nil {
				return err
			}
			if unitType != "" {
				if unitTypeHash != "" {
					return &exitError{code: exitUsage, err: errors.New("--unit-type and --unit-type-hash are exclusive")}
				}
				raw, err := parseHex(unitType)
				if err != nil {
					return &exitError{code: exitUsage, err: fmt.Errorf("unit-type: %w", err)}
				}
				typ, err := dexlock.ParseScript(raw)
				if err != nil {
					return &exitError{code: exitUsage, err: fmt.Errorf("unit-type: %w", err)}
				}
				j.UnitTypeHash = toHex(typ.UnitTypeHash(p))
			}
			args, err := argsFromJSON(j)
			if err != nil {
				return &exitError{code: exitUsage, err: err}
			}
			encoded := args.Encode()
			// Refuse to emit args the lock would reject.
			if _, err := dexlock.ParseOrderArgs(encoded, p); err != nil {
				return verdictError(err)
			}
			_, err = fmt.Fprintln(a.stdout, toHex(encoded))
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&ownerLockHex, "owner-lock", "", "serialized owner lock script (hex)")
	f.Uint8Var(&setup, "setup", 0, "setup flags")
	f.StringVar(&totalValue, "total-value", "", "required value (decimal u128)")
	f.StringVar(&unitTypeHash, "unit-type-hash", "", "required token type hash (hex)")
	f.StringVar(&unitType, "unit-type", "", "serialized token type script (hex); hashed per profile")
	_ = cmd.MarkFlagRequired("owner-lock")
	_ = cmd.MarkFlagRequired("total-value")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	var (
		txPath string
		apply  bool
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify every order lock group in a transaction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, true); err != nil {
				return err
			}
			b, err := os.ReadFile(txPath) // #nosec G304 -- operator-supplied path.
			if err != nil {
				return &exitError{code: exitUsage, err: err}
			}
			var tx TxJSON
			if err := json.Unmarshal(b, &tx); err != nil {
				return &exitError{code: exitUsage, err: fmt.Errorf("tx json: %w", err)}
			}

			var db *store.DB
			defer func() {
				if db != nil {
					_ = db.Close()
				}
			}()
			resolve := func(points []store.OutPoint) ([]dexlock.Cell, error) {
				if db == nil {
					var err error
					if db, err = a.openStore(); err != nil {
						return nil, err
					}
				}
				return db.ResolveInputs(points)
			}
			mem, points, err := buildTx(tx, resolve)
			if err != nil {
				return &exitError{code: exitUsage, err: err}
			}

			codeHash, hashType, err := a.lockIdentity()
			if err != nil {
				return err
			}
			v, err := a.validator()
			if err != nil {
				return err
			}
			res, err := verifyMemTx(mem, codeHash, hashType, v)
			if err != nil {
				return &exitError{code: exitFault, err: err}
			}
			if err := a.printJSON(res); err != nil {
				return err
			}
			if f, failed := firstFailedGroup(res); failed {
				a.logger.Info("transaction rejected",
					zap.Int("input_index", f.InputIndex),
					zap.Int("exit_code", f.ExitCode),
					zap.String("err", f.Err),
				)
				code := f.ExitCode
				if code <= 0 {
					code = exitFault
				}
				return &exitError{code: code, err: errors.New(f.Err)}
			}
			a.logger.Info("transaction accepted", zap.Int("groups", len(res.Groups)))

			if apply {
				if tx.Hash == "" {
					return &exitError{code: exitUsage, err: errors.New("--apply needs tx.hash")}
				}
				raw, err := parseHex(tx.Hash)
				if err != nil || len(raw) != 32 {
					return &exitError{code: exitUsage, err: fmt.Errorf("bad tx.hash %q", tx.Hash)}
				}
				var txHash [32]byte
				copy(txHash[:], raw)
				if db == nil {
					if db, err = a.openStore(); err != nil {
						return err
					}
				}
				if err := db.ApplyTx(txHash, points, mem.Outputs); err != nil {
					return err
				}
				a.logger.Info("transaction applied", zap.String("tx_hash", tx.Hash), zap.Int("outputs", len(mem.Outputs)))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&txPath, "tx", "", "transaction JSON file")
	cmd.Flags().BoolVar(&apply, "apply", false, "on success, spend stored inputs and store outputs")
	_ = cmd.MarkFlagRequired("tx")
	return cmd
}

func newExecCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "exec",
		Short: "Answer one JSON request from stdin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd, false); err != nil {
				return err
			}
			runExec(a.stdin, a.stdout, func(p dexlock.Profile) *dexlock.Validator {
				return dexlock.NewValidator(p, dexlock.WithLogger(a.logger.Named("dexlock")))
			})
			return nil
		},
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stdin: stdin}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	if a.closeLog != nil {
		if cerr := a.closeLog(); cerr != nil && err == nil {
			err = &exitError{code: exitFault, err: fmt.Errorf("close log: %w", cerr)}
		}
	}
	if err == nil {
		return 0
	}
	_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUsage
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
