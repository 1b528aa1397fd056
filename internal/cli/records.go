package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/lmdbkv"
)

// recordCommand describes one subcommand that operates on an open database.
type recordCommand struct {
	use   string
	short string
	args  int // positional arguments after the database name
	run   func(c *lmdbkv.Client, args []string) (any, error)
}

func newRecordCommands(opts *RootOptions) []*cobra.Command {
	records := []recordCommand{
		{"get <db> <key>", "Print the record stored at key", 1, func(c *lmdbkv.Client, a []string) (any, error) {
			return c.Read(a[0])
		}},
		{"create <db> <key> <json>", "Store a new record; fails if the key exists", 2, func(c *lmdbkv.Client, a []string) (any, error) {
			data, err := parseData(a[1])
			if err != nil {
				return nil, err
			}
			return c.Create(a[0], data)
		}},
		{"put <db> <key> <json>", "Store a record, replacing any existing one", 2, func(c *lmdbkv.Client, a []string) (any, error) {
			data, err := parseData(a[1])
			if err != nil {
				return nil, err
			}
			return c.Replace(a[0], data)
		}},
		{"merge <db> <key> <json>", "Overlay top-level fields onto an existing record", 2, func(c *lmdbkv.Client, a []string) (any, error) {
			data, err := parseData(a[1])
			if err != nil {
				return nil, err
			}
			return c.Merge(a[0], data)
		}},
		{"delete <db> <key>", "Remove a record; succeeds if it is already absent", 1, func(c *lmdbkv.Client, a []string) (any, error) {
			return c.Delete(a[0])
		}},
		{"exists <db> <key>", "Report whether a record exists", 1, func(c *lmdbkv.Client, a []string) (any, error) {
			return c.Exists(a[0])
		}},
		{"keys <db>", "List every key", 0, func(c *lmdbkv.Client, _ []string) (any, error) {
			return c.Keys()
		}},
		{"dump <db>", "Print every record keyed by id", 0, func(c *lmdbkv.Client, _ []string) (any, error) {
			return c.All()
		}},
		{"clear <db>", "Remove every record", 0, func(c *lmdbkv.Client, _ []string) (any, error) {
			return c.Clear()
		}},
		{"stats <db>", "Print engine statistics for the database", 0, func(c *lmdbkv.Client, _ []string) (any, error) {
			return c.Stats()
		}},
	}

	cmds := make([]*cobra.Command, 0, len(records))
	for _, r := range records {
		cmds = append(cmds, r.command(opts))
	}
	return cmds
}

func (r recordCommand) command(opts *RootOptions) *cobra.Command {
	name, _, _ := strings.Cut(r.use, " ")
	return &cobra.Command{
		Use:   r.use,
		Short: r.short,
		Args:  cobra.ExactArgs(r.args + 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := opts.formatter(cmd)
			cfg, err := opts.config()
			if err != nil {
				return f.Fail("invalid configuration", err)
			}

			c, err := lmdbkv.Open(args[0],
				lmdbkv.WithConfig(cfg),
				lmdbkv.WithLogger(opts.logger(cmd.ErrOrStderr(), cfg)))
			if err != nil {
				return f.Fail("cannot open database", err)
			}
			defer func() {
				if cerr := c.Close(); cerr != nil {
					f.VerboseLog("close database: %v", cerr)
				}
			}()

			out, err := r.run(c, args[1:])
			if err != nil {
				return f.Fail(name+" failed", err)
			}
			if f.Format != "json" {
				out = textual(out)
			}
			return f.Success(out)
		},
	}
}

// textual adapts results whose default text rendering is unhelpful.
func textual(v any) any {
	switch out := v.(type) {
	case bool:
		return fmt.Sprint(out)
	case []string:
		return strings.Join(out, "\n")
	default:
		return v
	}
}

func parseData(arg string) (lmdbkv.Data, error) {
	var data lmdbkv.Data
	if err := json.Unmarshal([]byte(arg), &data); err != nil {
		return nil, &lmdbkv.Error{Kind: lmdbkv.KindValidation, Message: "record data must be a JSON object", Cause: err}
	}
	return data, nil
}
