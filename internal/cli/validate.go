package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/odatabridge/internal/fixture"
	"github.com/roach88/odatabridge/internal/schema"
)

// Error codes reported by validate.
const (
	ErrCodeInvalidModel   = "E_INVALID_MODEL"
	ErrCodeInvalidFixture = "E_INVALID_FIXTURE"
)

// ValidationIssue is one problem found by validate.
type ValidationIssue struct {
	Code    string `json:"code"`
	Source  string `json:"source"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Entities int               `json:"entities"`
	Sets     []string          `json:"sets"`
	Records  int               `json:"records"`
	Errors   []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [fixture.yaml]...",
		Short: "Validate the model and fixtures without writing",
		Long: `Load the entity model and check every record of the given fixtures
against it. Nothing is written; use seed to load fixtures into a store.

Examples:
  odatabridge validate
  odatabridge validate --model ./model.cue ./fixtures/northwind.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	m, err := loadModel(opts.Model)
	if err != nil {
		issue := ValidationIssue{Code: ErrCodeInvalidModel, Source: opts.Model, Message: err.Error()}
		var lerr *schema.LoadError
		if errors.As(err, &lerr) && lerr.Pos.IsValid() {
			issue.Line = lerr.Pos.Line()
		}
		return outputValidation(formatter, ValidationResult{Errors: []ValidationIssue{issue}})
	}

	result := ValidationResult{Entities: len(m.Entities()), Sets: m.EntitySets()}
	formatter.VerboseLog("model has %d entity types and %d sets", result.Entities, len(result.Sets))

	for _, path := range paths {
		n, err := checkFixture(m, path)
		if err != nil {
			result.Errors = append(result.Errors, ValidationIssue{Code: ErrCodeInvalidFixture, Source: path, Message: err.Error()})
			continue
		}
		formatter.VerboseLog("%s: %d records", path, n)
		result.Records += n
	}

	result.Valid = len(result.Errors) == 0
	return outputValidation(formatter, result)
}

// checkFixture validates the records of the fixture at path against m.
func checkFixture(m *schema.Model, path string) (int, error) {
	f, err := fixture.Load(path)
	if err != nil {
		return 0, err
	}
	recs, err := f.Records(m)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

// outputValidation prints the result. Any issue is a command error
// (exit code 2).
func outputValidation(formatter *OutputFormatter, result ValidationResult) error {
	switch {
	case formatter.Format == "json" && len(result.Errors) == 0:
		if err := formatter.Success(result); err != nil {
			return err
		}
	case formatter.Format == "json":
		msg := fmt.Sprintf("%d validation error(s)", len(result.Errors))
		if err := formatter.Error(result.Errors[0].Code, msg, result); err != nil {
			return err
		}
	case len(result.Errors) == 0:
		fmt.Fprintf(formatter.Writer, "✓ Model valid (%d entity types, %d sets), %d records\n",
			result.Entities, len(result.Sets), result.Records)
	default:
		for _, issue := range result.Errors {
			fmt.Fprintf(formatter.Writer, "✗ [%s] %s: %s\n", issue.Code, issue.Source, issue.Message)
		}
	}

	if len(result.Errors) > 0 {
		return reportedExitError(ExitCommandError, fmt.Sprintf("%d validation error(s)", len(result.Errors)), nil)
	}
	return nil
}
