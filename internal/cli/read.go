package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cartography/internal/dynamics"
)

// ReadOptions holds flags for the read command.
type ReadOptions struct {
	*RootOptions
	Kind      string
	StripLast bool
	NFC       bool
	IDField   string
	BurnOut   int
	Strict    bool
}

// ReadResult is the JSON payload of a successful read.
type ReadResult struct {
	ModelDir  string           `json:"model_dir"`
	Kind      string           `json:"kind"`
	Instances int              `json:"instances"`
	History   []dynamics.Entry `json:"history"`
}

// NewReadCommand creates the read command.
func NewReadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "read <model-dir>",
		Short: "Merge epoch files into a per-instance history",
		Long: `Merge <model-dir>/<kind>_dynamics/dynamics_epoch_<N>.jsonl for every
epoch into one history per instance: its gold label and one score vector
per epoch.

Example:
  cartography read ./run --kind training
  cartography read ./run --kind eval --strip-last --format json
  cartography read ./run --kind training --burn-out 3 --strict`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRead(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "dynamics kind (training|eval)")
	cmd.Flags().BoolVar(&opts.StripLast, "strip-last", false, "drop the last character of string identifiers before merging")
	cmd.Flags().BoolVar(&opts.NFC, "nfc", false, "merge string identifiers by their Unicode NFC form")
	cmd.Flags().StringVar(&opts.IDField, "id-field", dynamics.DefaultIDField, "name of the identifier field in each record")
	cmd.Flags().IntVar(&opts.BurnOut, "burn-out", 0, "merge only the first N epochs (0 = all)")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on width, gold, duplicate and missing-instance inconsistencies")
	_ = cmd.MarkFlagRequired("kind")

	return cmd
}

func runRead(opts *ReadOptions, modelDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	kind, err := dynamics.ParseKind(opts.Kind)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidFlag, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --kind", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	reader := dynamics.NewReader(newLogger(opts.RootOptions, formatter.GetErrWriter()))
	history, err := reader.Read(ctx, modelDir, kind, dynamics.ReadOptions{
		StripLast: opts.StripLast,
		NFC:       opts.NFC,
		IDField:   opts.IDField,
		BurnOut:   opts.BurnOut,
		Strict:    opts.Strict,
	})
	if err != nil {
		return outputDynamicsError(formatter, "read failed", err)
	}

	entries := history.Entries()
	if formatter.Format == "json" {
		return formatter.Success(ReadResult{
			ModelDir:  modelDir,
			Kind:      string(kind),
			Instances: len(entries),
			History:   entries,
		})
	}

	fmt.Fprintf(formatter.Writer, "%s dynamics: %d instance(s) in %s\n", kind.Label(), len(entries), modelDir)
	for _, e := range entries {
		fmt.Fprintf(formatter.Writer, "  %s\tgold=%d\tepochs=%d\t%s\n", e.GUID, e.Gold, len(e.Logits), formatLast(e.Logits))
	}
	return nil
}

// formatLast renders the final epoch's scores, or "-" for an empty history.
func formatLast(logits [][]float64) string {
	if len(logits) == 0 {
		return "-"
	}
	last := logits[len(logits)-1]
	parts := make([]string, len(last))
	for i, v := range last {
		parts[i] = fmt.Sprintf("%.4g", v)
	}
	return "last=[" + strings.Join(parts, " ") + "]"
}

// outputDynamicsError reports a dynamics failure. Typed data errors exit 1;
// rejected options and anything untyped (a missing directory, an I/O
// failure) are command errors.
func outputDynamicsError(formatter *OutputFormatter, message string, err error) error {
	code := dynamics.CodeOf(err)
	details := detailsOf(err)

	exitCode := ExitFailure
	switch code {
	case dynamics.ErrCodeInvalidBurnOut, dynamics.ErrCodeInvalidKind:
		exitCode = ExitCommandError
	case "":
		code = ErrCodeGeneric
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			details = &ErrorDetails{Path: pathErr.Path}
		}
		if errors.Is(err, fs.ErrNotExist) {
			code = ErrCodeNotFound
		}
		exitCode = ExitCommandError
	}
	_ = formatter.Error(string(code), err.Error(), details)
	return WrapExitError(exitCode, message, err)
}
