package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/odatabridge/internal/odata"
)

// LinkResult is the link command's output.
type LinkResult struct {
	Root   string `json:"root"`
	Set    string `json:"set"`
	Entity string `json:"entity"`
	Key    any    `json:"key"`
}

// NewLinkCommand creates the link command.
func NewLinkCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link <link>",
		Short: "Extract the entity set and key from an entity link",
		Long: `Parse an absolute entity link against the model and print its
service root, entity set, entity type and key. No store is opened.

Examples:
  odatabridge link "http://localhost/odata/Orders(5)"
  odatabridge link "http://localhost/odata/Customers('ALFKI')" --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runLink(opts *RootOptions, link string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	m, err := loadModel(opts.Model)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load model", err)
	}

	l, err := odata.ParseLink(m, link)
	if err != nil {
		return formatter.Fail("invalid link", err)
	}

	result := LinkResult{Root: l.Root, Set: l.Set, Entity: l.Entity.Name, Key: l.Key}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Root:   %s\n", result.Root)
	fmt.Fprintf(w, "Set:    %s\n", result.Set)
	fmt.Fprintf(w, "Entity: %s\n", result.Entity)
	fmt.Fprintf(w, "Key:    %v\n", result.Key)
	return nil
}
