package cli

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables that configure global flags,
// e.g. ODATABRIDGE_DB for --db.
const EnvPrefix = "ODATABRIDGE"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string // SQLite store path
	Model    string // CUE model file or directory; empty means the built-in model
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the odatabridge CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "odatabridge",
		Short: "Query an entity store through a composable expression-tree provider",
		Long: `odatabridge seeds a SQLite entity store from YAML fixtures and runs
composed queries against it through the expression-tree query provider.

Global flags can also be set from the environment:
  ODATABRIDGE_DB, ODATABRIDGE_MODEL, ODATABRIDGE_FORMAT, ODATABRIDGE_VERBOSE`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.load(v); err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}
			configureLogging(cmd, opts.Verbose)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite store")
	cmd.PersistentFlags().StringVar(&opts.Model, "model", "", "CUE entity model file or directory (default: built-in model)")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewLinkCommand(opts))
	cmd.AddCommand(NewNormalizeCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// load resolves the global options from flags and the environment.
// A flag set on the command line wins over its environment variable.
func (o *RootOptions) load(v *viper.Viper) error {
	o.Verbose = v.GetBool("verbose")
	o.Format = v.GetString("format")
	o.Database = v.GetString("db")
	o.Model = v.GetString("model")

	if !isValidFormat(o.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
	}
	return nil
}

// configureLogging installs the default slog handler on the command's
// stderr. Debug records are emitted only in verbose mode.
func configureLogging(cmd *cobra.Command, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// formatter returns the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
