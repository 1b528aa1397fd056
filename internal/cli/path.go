package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/lmdbkv/internal/dbpath"
)

// NewPathCommand creates the path command.
func NewPathCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path <name>",
		Short: "Print the file path a database name resolves to",
		Long: `Print the file path a database name resolves to, without creating
anything.

Example:
  lmdbkv path sessions`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			cfg, err := rootOpts.config()
			if err != nil {
				return f.Fail("invalid configuration", err)
			}

			r := dbpath.NewResolver()
			r.Namespace = cfg.Namespace
			r.Extension = cfg.Extension
			r.BaseDir = cfg.DataDir

			path, err := r.Resolve(args[0])
			if err != nil {
				return f.Fail("cannot resolve database name", err)
			}
			return f.Success(path)
		},
	}
}
