package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/odatabridge/internal/odata"
)

// DeleteResult is the delete command's output.
type DeleteResult struct {
	Set    string `json:"set"`
	Entity string `json:"entity"`
	Key    any    `json:"key"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <link>",
		Short: "Delete the entity an entity link points to",
		Long: `Resolve an absolute entity link to its set and key, then remove the
stored record. A link into a base set (e.g. Documents) removes the record of
whichever derived entity type holds the key.

Examples:
  odatabridge delete --db ./nw.db "http://localhost/odata/Orders(1)"
  odatabridge delete --db ./nw.db "http://localhost/odata/Documents(4)"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runDelete(opts *RootOptions, link string, cmd *cobra.Command) error {
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

	// Keys are unique within a set, so at most one concrete type holds it.
	for _, t := range b.model.Subtypes(l.Entity) {
		if t.Abstract {
			continue
		}
		ok, err := b.store.Delete(cmd.Context(), t.Name, l.Key)
		if err != nil {
			return formatter.Fail("delete failed", err)
		}
		if !ok {
			continue
		}
		formatter.VerboseLog("deleted %s %v", t.Name, l.Key)

		result := DeleteResult{Set: l.Set, Entity: t.Name, Key: l.Key}
		if opts.Format == "json" {
			return formatter.Success(result)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s %v\n", result.Entity, result.Key)
		return nil
	}

	msg := fmt.Sprintf("no entity at %s", link)
	if err := formatter.Error(ErrCodeNotFound, msg, nil); err != nil {
		return err
	}
	return reportedExitError(ExitFailure, msg, nil)
}
