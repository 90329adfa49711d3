package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/brutalist/internal/backup"
)

type ExportOptions struct {
	*RootOptions
	Out  string
	User string
}

func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a backup document",
		Long: `Write the current data as a backup document.

Without --out the document is printed to stdout. With --user the data is
read from the remote database for that user instead of the local snapshot.

Example:
  brutalist export > backup.json
  brutalist export --out ./backups --user 42`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "directory to write backup-YYYY-MM-DD.json into")
	cmd.Flags().StringVar(&opts.User, "user", "", "export the remote data of this user id")
	return cmd
}

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())
	a, err := bootstrap(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.load(cmd.Context(), opts.User); err != nil {
		return f.Fail(ExitCommandError, ErrCodeBackend, "failed to load data", err)
	}

	if opts.Out == "" {
		_, data, err := a.engine.Export()
		if err != nil {
			return f.Fail(ExitFailure, ErrCodeBackup, "failed to encode backup", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	path, err := backup.Write(opts.Out, a.state.Snapshot(), time.Now())
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeBackup, "failed to write backup", err)
	}
	return f.Success(map[string]string{"path": path})
}

func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <backup.json>",
		Short: "Restore a backup into the local snapshot",
		Long: `Restore a backup document into the local snapshot.

Only the collections present in the document are replaced. A document with
any malformed collection is rejected as a whole and nothing changes. The
remote database is never written.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, rootOpts, args[0])
		},
	}
	return cmd
}

func runImport(cmd *cobra.Command, opts *RootOptions, path string) error {
	f := newFormatter(opts, cmd.OutOrStdout())
	data, err := os.ReadFile(path)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeBackup, "failed to read backup", err)
	}

	a, err := bootstrap(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.load(cmd.Context(), ""); err != nil {
		return f.Fail(ExitCommandError, ErrCodeBackend, "failed to load data", err)
	}
	if !a.engine.Import(data) {
		return f.Fail(ExitFailure, ErrCodeRejected, "backup rejected", nil)
	}
	return f.Success(summarize(a))
}

func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "reset",
		Short:         "Clear the local snapshot and restore the demonstration data",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd.OutOrStdout())
			a, err := bootstrap(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.engine.Reset(cmd.Context()); err != nil {
				return f.Fail(ExitCommandError, ErrCodeBackend, "failed to reset", err)
			}
			return f.Success(summarize(a))
		},
	}
}

type StatusOptions struct {
	*RootOptions
	User string
}

func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatusOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Summarize orders, stock and materials",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd.OutOrStdout())
			a, err := bootstrap(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.load(cmd.Context(), opts.User); err != nil {
				return f.Fail(ExitCommandError, ErrCodeBackend, "failed to load data", err)
			}
			return f.Success(summarize(a))
		},
	}
	cmd.Flags().StringVar(&opts.User, "user", "", "summarize the remote data of this user id")
	return cmd
}

// Summary is the status report printed by status, import and reset.
type Summary struct {
	Source    string         `json:"source"`
	Revision  int64          `json:"revision"`
	Orders    map[string]int `json:"orders"`
	Products  int            `json:"products"`
	Stock     int            `json:"stock"`
	Materials int            `json:"materials"`
	LowStock  []string       `json:"lowStock"`
}

func summarize(a *app) Summary {
	snap := a.state.Snapshot()
	s := Summary{
		Source:    "local",
		Revision:  a.state.Revision(),
		Orders:    map[string]int{},
		Products:  len(snap.Products),
		Materials: len(snap.Materials),
		LowStock:  []string{},
	}
	if id := a.engine.Identity(); id != nil && a.engine.Remote() {
		s.Source = "remote:" + id.ID
	}
	for _, o := range snap.Orders {
		s.Orders[string(o.Status)]++
	}
	for _, p := range snap.Products {
		s.Stock += p.Stock
	}
	for _, m := range a.engine.LowStockMaterials() {
		s.LowStock = append(s.LowStock, m.Name)
	}
	return s
}

func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source:    %s (revision %d)\n", s.Source, s.Revision)
	fmt.Fprintf(&b, "Orders:    %d pending, %d late, %d completed\n", s.Orders["PENDING"], s.Orders["LATE"], s.Orders["COMPLETED"])
	fmt.Fprintf(&b, "Products:  %d (%d units in stock)\n", s.Products, s.Stock)
	fmt.Fprintf(&b, "Materials: %d", s.Materials)
	if len(s.LowStock) > 0 {
		fmt.Fprintf(&b, "\nLow stock: %s", strings.Join(s.LowStock, ", "))
	}
	return b.String()
}
