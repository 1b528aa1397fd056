package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/lmdbkv/internal/locator"
)

// ProbeResult is the JSON shape of the probe command's output.
type ProbeResult struct {
	Platform   string         `json:"platform"`
	Loaded     string         `json:"loaded,omitempty"`
	Derived    []string       `json:"derived,omitempty"`
	Candidates []ProbeAttempt `json:"candidates"`
}

// ProbeAttempt describes one searched location.
type ProbeAttempt struct {
	Path   string `json:"path"`
	Source string `json:"source"`
	Result string `json:"result"`
}

func (r ProbeResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "platform: %s\n", r.Platform)
	for _, a := range r.Candidates {
		fmt.Fprintf(&b, "  %-8s %s: %s\n", a.Source, a.Path, a.Result)
	}
	if r.Loaded != "" {
		fmt.Fprintf(&b, "loaded: %s", r.Loaded)
		if len(r.Derived) > 0 {
			fmt.Fprintf(&b, " (derived: %s)", strings.Join(r.Derived, ", "))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewProbeCommand creates the probe command.
func NewProbeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Search for the native engine library and report every candidate",
		Long: `Search for the native engine library the way the client does and
report every candidate location with the outcome of trying it.

Exits with status 1 when no candidate loads.

Example:
  lmdbkv probe --library ./build/liblmdbkv.so`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(rootOpts, cmd)
		},
	}
}

func runProbe(opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	cfg, err := opts.config()
	if err != nil {
		return f.Fail("invalid configuration", err)
	}

	loc := locator.New(cfg.LibraryPaths, opts.logger(cmd.ErrOrStderr(), cfg))
	lib, attempts, err := loc.Probe()

	result := ProbeResult{Platform: loc.Platform.Tag(), Candidates: []ProbeAttempt{}}
	for _, a := range attempts {
		outcome := "loaded"
		if a.Err != nil {
			outcome = a.Err.Error()
		}
		result.Candidates = append(result.Candidates, ProbeAttempt{
			Path:   a.Path,
			Source: string(a.Source),
			Result: outcome,
		})
	}
	if lib != nil {
		result.Loaded = lib.Path()
		result.Derived = lib.Derived()
		if rerr := lib.Release(); rerr != nil {
			f.VerboseLog("release engine library: %v", rerr)
		}
	}

	if err != nil {
		if ferr := f.Error("NATIVE_INTEROP", "no usable engine library", result); ferr != nil {
			return ferr
		}
		return WrapExitError(exitCodeFor(err), "no usable engine library", err)
	}
	return f.Success(result)
}
