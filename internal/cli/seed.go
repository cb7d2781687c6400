package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/odatabridge/internal/fixture"
)

// SeedResult is the seed command's output.
type SeedResult struct {
	Fixtures []string `json:"fixtures"`
	Records  int      `json:"records"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <fixture.yaml>...",
		Short: "Load YAML fixtures into the store",
		Long: `Validate every record of the fixtures against the model and write
them to the store. Records are upserted by key, so seeding twice is safe.
A fixture with an invalid record writes nothing.

Examples:
  odatabridge seed --db ./northwind.db ./fixtures/northwind.yaml
  ODATABRIDGE_DB=./northwind.db odatabridge seed a.yaml b.yaml`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runSeed(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	b, err := openBackend(opts, true)
	if err != nil {
		return err
	}
	defer b.Close()

	result := SeedResult{Fixtures: paths}
	for _, path := range paths {
		f, err := fixture.Load(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load fixture", err)
		}
		n, err := f.Apply(cmd.Context(), b.store, b.model)
		if err != nil {
			return formatter.Fail(fmt.Sprintf("failed to seed %s", path), err)
		}
		formatter.VerboseLog("seeded %d records from %s", n, path)
		result.Records += n
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Seeded %d records from %d fixture(s)\n", result.Records, len(paths))
	return nil
}
