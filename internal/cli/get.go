package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/odatabridge/internal/odata"
	"github.com/roach88/odatabridge/internal/queryir"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <link>",
		Short: "Fetch the entity an entity link points to",
		Long: `Resolve an absolute entity link to its set and key, then fetch the
entity through the provider with a key filter.

Examples:
  odatabridge get --db ./nw.db "http://localhost/odata/Orders(1)"
  odatabridge get --db ./nw.db "http://localhost/odata/Customers('ALFKI')"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runGet(opts *RootOptions, link string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	b, err := openBackend(opts, true)
	if err != nil {
		return err
	}
	defer b.Close()

	l, err := odata.ParseLink(b.model, link)
	if err != nil {
		return formatter.Fail("invalid link", err)
	}

	q := queryir.Aggregate{
		Source: queryir.Select{
			From:   l.Set,
			Filter: queryir.Compare{Field: l.Entity.KeyField(), Op: queryir.OpEq, Value: l.Key},
		},
		Op: queryir.AggFirstOrDefault,
	}
	row, err := queryir.Run(cmd.Context(), b.model, b.provider, q)
	if err != nil {
		return formatter.Fail("query failed", err)
	}
	if row == nil {
		msg := fmt.Sprintf("no entity at %s", link)
		if err := formatter.Error(ErrCodeNotFound, msg, nil); err != nil {
			return err
		}
		return reportedExitError(ExitFailure, msg, nil)
	}

	if opts.Format == "json" {
		return formatter.Success(row)
	}
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode entity: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
