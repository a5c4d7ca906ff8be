package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nervina-labs/ckb-dex-contract/dexlock"
	"github.com/nervina-labs/ckb-dex-contract/store"
)

type storedCellJSON struct {
	OutPoint string   `json:"out_point"`
	Cell     CellJSON `json:"cell"`
}

// withStore runs fn against the configured cell store.
func (a *app) withStore(cmd *cobra.Command, fn func(*store.DB) error) error {
	if err := a.setup(cmd, false); err != nil {
		return err
	}
	db, err := a.openStore()
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func newCellCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cell",
		Short: "Manage the live cell store",
	}
	cmd.AddCommand(
		newCellPutCmd(a),
		newCellGetCmd(a),
		newCellListCmd(a),
		newCellDeleteCmd(a),
	)
	return cmd
}

func newCellPutCmd(a *app) *cobra.Command {
	var cellJSON string
	cmd := &cobra.Command{
		Use:   "put <tx_hash:index>",
		Short: "Store a live cell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := store.ParseOutPoint(args[0])
			if err != nil {
				return &exitError{code: exitUsage, err: err}
			}
			var j CellJSON
			if err := json.Unmarshal([]byte(cellJSON), &j); err != nil {
				return &exitError{code: exitUsage, err: fmt.Errorf("cell json: %w", err)}
			}
			c, err := cellFromJSON(j)
			if err != nil {
				return &exitError{code: exitUsage, err: err}
			}
			return a.withStore(cmd, func(db *store.DB) error {
				if err := db.PutCell(p, c); err != nil {
					return err
				}
				a.logger.Info("cell stored", zap.Stringer("out_point", p), zap.Uint64("capacity", c.Capacity))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&cellJSON, "cell", "", "cell as JSON")
	_ = cmd.MarkFlagRequired("cell")
	return cmd
}

func newCellGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <tx_hash:index>",
		Short: "Print a stored cell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := store.ParseOutPoint(args[0])
			if err != nil {
				return &exitError{code: exitUsage, err: err}
			}
			return a.withStore(cmd, func(db *store.DB) error {
				c, ok, err := db.GetCell(p)
				if err != nil {
					return err
				}
				if !ok {
					return &exitError{code: exitUsage, err: fmt.Errorf("%w: %s", store.ErrCellNotFound, p)}
				}
				return a.printJSON(storedCellJSON{OutPoint: p.String(), Cell: cellToJSON(c)})
			})
		},
	}
}

func newCellListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored cells",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(db *store.DB) error {
				out := []storedCellJSON{}
				err := db.ForEachCell(func(p store.OutPoint, c dexlock.Cell) error {
					out = append(out, storedCellJSON{OutPoint: p.String(), Cell: cellToJSON(c)})
					return nil
				})
				if err != nil {
					return err
				}
				return a.printJSON(out)
			})
		},
	}
}

func newCellDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <tx_hash:index>",
		Short: "Remove a stored cell",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := store.ParseOutPoint(args[0])
			if err != nil {
				return &exitError{code: exitUsage, err: err}
			}
			return a.withStore(cmd, func(db *store.DB) error {
				return db.DeleteCell(p)
			})
		},
	}
}
