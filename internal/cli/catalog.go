package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cartography/internal/catalog"
	"github.com/roach88/cartography/internal/dynamics"
)

// CatalogOptions holds flags for the catalog command.
type CatalogOptions struct {
	*RootOptions
	Database  string
	OutputDir string
	Kind      string
	Epoch     int
}

// CatalogResult is the JSON payload of the catalog command.
type CatalogResult struct {
	Entries []catalog.Entry `json:"entries"`
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List recorded epoch-file writes",
		Long: `List the epoch-file writes recorded in a catalog database, oldest first.

A writer configured with a catalog appends one row per write: the file,
how many records the write added, the file's record count afterwards,
and the SHA-256 of its content.

Example:
  cartography catalog --db ./dynamics.db
  cartography catalog --db ./dynamics.db --kind eval --epoch 3`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite catalog (required)")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "", "only writes under this output directory")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only writes of this kind (training|eval)")
	cmd.Flags().IntVar(&opts.Epoch, "epoch", 0, "only writes for this epoch")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runCatalog(opts *CatalogOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var filter catalog.Filter
	filter.OutputDir = opts.OutputDir
	if opts.Kind != "" {
		kind, err := dynamics.ParseKind(opts.Kind)
		if err != nil {
			_ = formatter.Error(ErrCodeInvalidFlag, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid --kind", err)
		}
		filter.Kind = kind
	}
	if cmd.Flags().Changed("epoch") {
		if opts.Epoch < 0 {
			msg := fmt.Sprintf("epoch must be non-negative, got %d", opts.Epoch)
			_ = formatter.Error(ErrCodeInvalidFlag, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		epoch := opts.Epoch
		filter.Epoch = &epoch
	}

	// Open would create an empty catalog; listing a path that doesn't exist
	// is a mistake.
	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("catalog not found: %s", opts.Database), &ErrorDetails{Path: opts.Database})
		return WrapExitError(ExitCommandError, "failed to open catalog", err)
	}

	formatter.VerboseLog("Opening catalog %s", opts.Database)
	cat, err := catalog.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), &ErrorDetails{Path: opts.Database})
		return WrapExitError(ExitCommandError, "failed to open catalog", err)
	}
	defer cat.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	entries, err := cat.List(ctx, filter)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), &ErrorDetails{Path: opts.Database})
		return WrapExitError(ExitFailure, "failed to list catalog", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(CatalogResult{Entries: entries})
	}

	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, "No writes recorded")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "%d write(s)\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(formatter.Writer, "  #%d\t%s\tepoch %d\t+%d (%d total)\t%s\t%.12s\n",
			e.Seq, e.Kind, e.Epoch, e.RecordsAdded, e.RecordsTotal, e.Path, e.ContentSHA256)
	}
	return nil
}
