package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/lmdbkv"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	Config    string
	Engine    string
	DataDir   string
	Libraries []string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the lmdbkv CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "lmdbkv",
		Short: "lmdbkv - inspect and edit lmdbkv databases",
		Long: `Operate on lmdbkv databases from the command line.

Databases are named the way applications name them: a bare name such as
"cache" resolves beneath the platform data directory, an absolute path is
used as given. The native engine library is located the same way the Go
client locates it; use "lmdbkv probe" to see where it looks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.Engine, "engine", "", "engine to use (native|reference)")
	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "directory databases are resolved under")
	cmd.PersistentFlags().StringArrayVar(&opts.Libraries, "library", nil, "engine library path to try first (repeatable)")

	cmd.AddCommand(NewProbeCommand(opts))
	cmd.AddCommand(NewPathCommand(opts))
	for _, sub := range newRecordCommands(opts) {
		cmd.AddCommand(sub)
	}

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// config loads the config file, if any, and applies flag overrides.
func (o *RootOptions) config() (lmdbkv.Config, error) {
	cfg := lmdbkv.DefaultConfig()
	if o.Config != "" {
		loaded, err := lmdbkv.LoadConfig(o.Config)
		if err != nil {
			return lmdbkv.Config{}, err
		}
		cfg = loaded
	}
	if o.Engine != "" {
		cfg.Engine = o.Engine
	}
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	if len(o.Libraries) > 0 {
		cfg.LibraryPaths = append(slices.Clone(o.Libraries), cfg.LibraryPaths...)
	}
	if err := cfg.Validate(); err != nil {
		return lmdbkv.Config{}, err
	}
	return cfg, nil
}

// logger writes to w at the configured level, or debug with --verbose.
func (o *RootOptions) logger(w io.Writer, cfg lmdbkv.Config) *slog.Logger {
	level := cfg.Level()
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
