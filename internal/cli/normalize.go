package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/odatabridge/internal/expr"
	"github.com/roach88/odatabridge/internal/normalize"
	"github.com/roach88/odatabridge/internal/queryir"
	"github.com/roach88/odatabridge/internal/querysql"
)

// NormalizeResult is the normalize command's output.
type NormalizeResult struct {
	Before      string   `json:"before"`
	After       string   `json:"after"`
	Changed     bool     `json:"changed"`
	Fingerprint string   `json:"fingerprint"`
	Warnings    []string `json:"warnings,omitempty"`
	SQL         string   `json:"sql"`
	Args        []any    `json:"args"`
}

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Show how a query's expression tree is rewritten and translated",
		Long: `Compose a query as the query command does, then print its expression
tree before and after normalization and the SQL the backend runs for it.
Nothing is executed; without --db an empty in-memory store is used.

Example:
  odatabridge normalize --set Documents --filter "as Order == null"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNormalize(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Set, "set", "", "entity set to query (required)")
	cmd.Flags().StringVarP(&opts.Filter, "filter", "f", "", "filter expression")
	cmd.Flags().StringSliceVar(&opts.OrderBy, "order-by", nil, `sort keys, "Field" or "Field desc"`)
	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "rows to skip")
	cmd.Flags().IntVar(&opts.Take, "take", -1, "maximum rows to return")
	_ = cmd.MarkFlagRequired("set")

	return cmd
}

func runNormalize(opts *QueryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	step, err := opts.step()
	if err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}
	q, err := step.Query()
	if err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}

	b, err := openBackend(opts.RootOptions, false)
	if err != nil {
		return err
	}
	defer b.Close()

	sel := q.(queryir.Select)
	qq, err := queryir.Compose(b.model, b.provider, sel)
	if err != nil {
		return formatter.Fail("compose failed", err)
	}

	before := qq.Expression()
	after := normalize.Normalize(before)
	fingerprint, err := expr.Fingerprint(after)
	if err != nil {
		return formatter.Fail("fingerprint failed", err)
	}
	plan, err := querysql.NewSQLCompiler(b.model).Compile(after)
	if err != nil {
		return formatter.Fail("translation failed", err)
	}

	result := NormalizeResult{
		Before:      expr.Format(before),
		After:       expr.Format(after),
		Changed:     !expr.Equivalent(before, after),
		Fingerprint: fingerprint,
		Warnings:    queryir.Validate(sel).Warnings,
		SQL:         plan.SQL,
		Args:        plan.Args,
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputNormalizeText(cmd, result)
}

func outputNormalizeText(cmd *cobra.Command, result NormalizeResult) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Before: %s\n", result.Before)
	fmt.Fprintf(w, "After:  %s\n", result.After)
	if !result.Changed {
		fmt.Fprintln(w, "(unchanged)")
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "Rewritten: %s\n", warning)
	}
	fmt.Fprintf(w, "SQL:    %s\n", result.SQL)
	if len(result.Args) > 0 {
		fmt.Fprintf(w, "Args:   %v\n", result.Args)
	}
	return nil
}
