package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/odatabridge/internal/harness"
	"github.com/roach88/odatabridge/internal/queryir"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Set       string
	Filter    string
	OrderBy   []string
	Skip      int
	Take      int // negative means no limit
	Count     bool
	Aggregate string
	Field     string
}

// QueryResult is the query command's output. Rows is set for row queries
// and first/firstOrDefault; Value for count, any and sum.
type QueryResult struct {
	Query    string   `json:"query"`
	Warnings []string `json:"warnings,omitempty"`
	Rows     []any    `json:"rows,omitempty"`
	Value    any      `json:"value,omitempty"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a composed query against the store",
		Long: `Compose a query over an entity set and run it through the provider.

The filter accepts comparisons (==, !=, <, <=, >, >=), and/or/not,
type tests ("is Order"), safe casts ("as Order == null") and string
comparisons ("compare(Name, 'M') < 0"). Constructs the backend cannot
translate directly are rewritten by the normalizer and reported as
warnings in verbose mode.

Examples:
  odatabridge query --db ./nw.db --set Orders --filter "OrderStatus == 'New'"
  odatabridge query --db ./nw.db --set Documents --filter "not (as Order == null)"
  odatabridge query --db ./nw.db --set Orders --order-by "Total desc" --take 2
  odatabridge query --db ./nw.db --set Orders --aggregate sum --field Total`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Set, "set", "", "entity set to query (required)")
	cmd.Flags().StringVarP(&opts.Filter, "filter", "f", "", "filter expression")
	cmd.Flags().StringSliceVar(&opts.OrderBy, "order-by", nil, `sort keys, "Field" or "Field desc"`)
	cmd.Flags().IntVar(&opts.Skip, "skip", 0, "rows to skip")
	cmd.Flags().IntVar(&opts.Take, "take", -1, "maximum rows to return")
	cmd.Flags().BoolVar(&opts.Count, "count", false, "return the row count (same as --aggregate count)")
	cmd.Flags().StringVar(&opts.Aggregate, "aggregate", "", "count|any|first|firstOrDefault|sum")
	cmd.Flags().StringVar(&opts.Field, "field", "", "field summed by --aggregate sum")
	_ = cmd.MarkFlagRequired("set")

	return cmd
}

// step converts the flags into a query step.
func (o *QueryOptions) step() (*harness.QueryStep, error) {
	step := &harness.QueryStep{
		Name:      "query",
		Set:       o.Set,
		Filter:    o.Filter,
		OrderBy:   o.OrderBy,
		Skip:      o.Skip,
		Aggregate: o.Aggregate,
		Field:     o.Field,
	}
	if o.Count {
		if o.Aggregate != "" && o.Aggregate != string(queryir.AggCount) {
			return nil, fmt.Errorf("--count conflicts with --aggregate %s", o.Aggregate)
		}
		step.Aggregate = string(queryir.AggCount)
	}
	if o.Skip < 0 {
		return nil, fmt.Errorf("--skip must be non-negative")
	}
	if o.Take >= 0 {
		take := o.Take
		step.Take = &take
	}
	return step, nil
}

func runQuery(opts *QueryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	step, err := opts.step()
	if err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}
	q, err := step.Query()
	if err != nil {
		return NewExitError(ExitCommandError, err.Error())
	}

	b, err := openBackend(opts.RootOptions, true)
	if err != nil {
		return err
	}
	defer b.Close()

	result := QueryResult{Query: step.Describe()}
	if v := queryir.Validate(q); !v.IsDirect {
		result.Warnings = v.Warnings
		for _, w := range v.Warnings {
			formatter.VerboseLog("warning: %s", w)
		}
	}

	slog.Debug("running query", "query", result.Query)
	out, err := queryir.Run(cmd.Context(), b.model, b.provider, q)
	if err != nil {
		return formatter.Fail("query failed", err)
	}

	switch queryir.AggregateOp(step.Aggregate) {
	case "":
		result.Rows, _ = out.([]any)
		if result.Rows == nil {
			result.Rows = []any{}
		}
	case queryir.AggFirst, queryir.AggFirstOrDefault:
		result.Rows = []any{}
		if out != nil {
			result.Rows = append(result.Rows, out)
		}
	default:
		result.Value = out
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return outputQueryText(cmd, result)
}

// outputQueryText prints one JSON object per row, or the scalar value.
func outputQueryText(cmd *cobra.Command, result QueryResult) error {
	w := cmd.OutOrStdout()
	if result.Value != nil {
		fmt.Fprintln(w, result.Value)
		return nil
	}
	for _, row := range result.Rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("encode row: %w", err)
		}
		fmt.Fprintln(w, string(data))
	}
	fmt.Fprintf(w, "(%d rows)\n", len(result.Rows))
	return nil
}
