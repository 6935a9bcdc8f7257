package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/cartography/internal/dynamics"
	"github.com/roach88/cartography/internal/schema"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Kind    string
	IDField string
	BurnOut int
}

// FileReport is the validation outcome for one epoch file.
type FileReport struct {
	Epoch      int                `json:"epoch"`
	Path       string             `json:"path"`
	Violations []schema.Violation `json:"violations,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool         `json:"valid"`
	Files []FileReport `json:"files"`
}

func (r ValidationResult) violationCount() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Violations)
	}
	return n
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <model-dir>",
		Short: "Check every epoch file against the record schema",
		Long: `Check every line of every epoch file under <model-dir>/<kind>_dynamics
against the record schema: an integer or string identifier, a numeric
score list named logits_epoch_<N> for the file's epoch, and an integer
gold label. Unknown fields are rejected.

Unlike read, validate reports every violation instead of stopping at the
first one.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "dynamics kind (training|eval)")
	cmd.Flags().StringVar(&opts.IDField, "id-field", dynamics.DefaultIDField, "name of the identifier field in each record")
	cmd.Flags().IntVar(&opts.BurnOut, "burn-out", 0, "validate only the first N epochs (0 = all)")
	_ = cmd.MarkFlagRequired("kind")

	return cmd
}

func runValidate(opts *ValidateOptions, modelDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	kind, err := dynamics.ParseKind(opts.Kind)
	if err != nil {
		return outputValidateError(formatter, ErrCodeInvalidFlag, err.Error(), nil)
	}
	if opts.BurnOut < 0 {
		return outputValidateError(formatter, ErrCodeInvalidFlag, fmt.Sprintf("burn-out must be non-negative, got %d", opts.BurnOut), nil)
	}

	dir := dynamics.DynamicsDir(modelDir, kind)
	numEpochs, err := dynamics.CountEpochFiles(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("dynamics directory not found: %s", dir), &ErrorDetails{Path: dir})
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), &ErrorDetails{Path: dir})
	}
	if opts.BurnOut > 0 {
		numEpochs = opts.BurnOut
	}
	if numEpochs == 0 {
		return outputValidateError(formatter, ErrCodeNotFound, fmt.Sprintf("no epoch files in %s", dir), &ErrorDetails{Path: dir})
	}

	formatter.VerboseLog("Found %d epoch file(s) in %s", numEpochs, dir)

	validator := schema.New(opts.IDField)
	result := ValidationResult{Valid: true, Files: make([]FileReport, 0, numEpochs)}
	for epoch := 0; epoch < numEpochs; epoch++ {
		path := filepath.Join(dir, dynamics.EpochFileName(epoch))
		formatter.VerboseLog("Validating %s", path)

		violations, err := validator.ValidateFile(path, epoch)
		if errors.Is(err, fs.ErrNotExist) {
			violations = []schema.Violation{{Message: "epoch file missing"}}
		} else if err != nil {
			return outputValidateError(formatter, ErrCodeGeneric, err.Error(), &ErrorDetails{Path: path})
		}

		if len(violations) > 0 {
			result.Valid = false
		}
		result.Files = append(result.Files, FileReport{Epoch: epoch, Path: path, Violations: violations})
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ All %d epoch file(s) valid\n", len(result.Files))
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string, details *ErrorDetails) error {
	_ = formatter.Error(code, message, details)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs every violation of every file.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	count := result.violationCount()

	if formatter.Format == "json" {
		var first schema.Violation
		var firstPath string
		for _, f := range result.Files {
			if len(f.Violations) > 0 {
				first, firstPath = f.Violations[0], f.Path
				break
			}
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    string(dynamics.ErrCodeMalformedRecord),
				Message: first.Message,
				Details: &ErrorDetails{Path: firstPath},
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", count))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, f := range result.Files {
		for _, v := range f.Violations {
			if v.Line > 0 {
				fmt.Fprintf(formatter.Writer, "%s line %d\n", filepath.Base(f.Path), v.Line)
			} else {
				fmt.Fprintln(formatter.Writer, filepath.Base(f.Path))
			}
			fmt.Fprintf(formatter.Writer, "  %s\n\n", v.Message)
		}
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", count))
}
