package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/facetview/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Views  []ViewSummary     `json:"views,omitempty"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// ViewSummary describes one view that compiled.
type ViewSummary struct {
	Name    string `json:"name"`
	Fields  int    `json:"fields"`
	Clauses int    `json:"clauses"`
}

// ValidationIssue is one problem found in a view file.
type ValidationIssue struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate CUE view definitions",
		Long: `Compile every view in a CUE file or directory and validate its query
against its schema. All problems are reported, not just the first.

Exit codes:
  0 - All views valid
  1 - One or more views invalid
  2 - Command error (path not found)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	views, errs := compiler.LoadViews(path)
	if len(errs) == 1 && errors.Is(errs[0], fs.ErrNotExist) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("%s not found", path), nil, nil)
	}

	result := ValidationResult{Valid: len(errs) == 0}
	for _, v := range views {
		formatter.VerboseLog("Compiled view %s", v.Name)
		result.Views = append(result.Views, ViewSummary{
			Name:    v.Name,
			Fields:  v.Schema.Len(),
			Clauses: len(v.Query.Clauses),
		})
	}
	for _, err := range errs {
		result.Errors = append(result.Errors, issueFromError(err))
	}

	if result.Valid {
		return outputValidateSuccess(formatter, result)
	}
	return outputValidationErrors(formatter, result)
}

// issueFromError extracts the CUE position from a compile error when it
// has one.
func issueFromError(err error) ValidationIssue {
	issue := ValidationIssue{Message: err.Error()}
	var cerr *compiler.CompileError
	if errors.As(err, &cerr) {
		issue.Field = cerr.Field
		issue.File, issue.Line = position(cerr.Pos)
	}
	return issue
}

func position(pos token.Pos) (string, int) {
	if !pos.IsValid() {
		return "", 0
	}
	return pos.Filename(), pos.Line()
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %d view(s) valid\n", len(result.Views))
	for _, v := range result.Views {
		fmt.Fprintf(formatter.Writer, "  %s (%d fields, %d clauses)\n", v.Name, v.Fields, v.Clauses)
	}
	return nil
}

// outputValidationErrors reports every problem and returns exit code 1.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.JSON() {
		err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    ErrCodeViewInvalid,
				Message: result.Errors[0].Message,
			},
		})
		if err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, issue := range result.Errors {
		if issue.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", issue.File, issue.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", ErrCodeViewInvalid, issue.Message)
	}
	return failure
}
