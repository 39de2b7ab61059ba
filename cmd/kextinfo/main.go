package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/leodido/kextinfo"
	"github.com/leodido/kextinfo/report"
	"github.com/leodido/structcli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thediveo/enumflag/v2"
	"go.uber.org/zap"
)

// Build metadata injected via ldflags.
// When built without ldflags (e.g., plain `go build`), these remain
// at their zero values and the version command omits them gracefully.
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	root := &cobra.Command{
		Use:   "kextinfo",
		Short: "Cross-referenced report of loaded kernel extensions",
		Long: `kextinfo runs kextstat, parses the loaded kernel extension table and
reports every extension together with the extensions it links against and
the extensions that link against it.`,
		SilenceUsage: true,
	}

	root.AddCommand(reportCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// ReportOptions defines flags for the report subcommand.
type ReportOptions struct {
	Output     string        `flag:"output" flagshort:"o" flagdescr:"Output file (- for stdout)" default:"output.html"`
	Format     report.Format `flag:"format" flagshort:"f" flagdescr:"Report format" flagcustom:"true"`
	Input      string        `flag:"input" flagshort:"i" flagdescr:"Read saved kextstat output from this file instead of running kextstat"`
	Title      string        `flag:"title" flagdescr:"HTML page title" default:"kextstat"`
	Stylesheet string        `flag:"stylesheet" flagdescr:"Stylesheet linked from the HTML report" default:"shiny.css"`
	Strict     bool          `flag:"strict" flagdescr:"Fail when a dependency index has no matching extension"`
	Verbose    bool          `flag:"verbose" flagshort:"v" flagdescr:"Log progress to stderr"`
}

func (o *ReportOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func (o *ReportOptions) DefineFormat(name, short, descr string, structField reflect.StructField, fieldValue reflect.Value) (pflag.Value, string) {
	fieldPtr := fieldValue.Addr().Interface().(*report.Format)
	*fieldPtr = report.FormatHTML
	return enumflag.New(fieldPtr, "format", formatIdentifierMap, enumflag.EnumCaseInsensitive),
		fmt.Sprintf("%s (%s)", descr, strings.Join(report.FormatNames(), ", "))
}

func (o *ReportOptions) DecodeFormat(input any) (any, error) {
	s, ok := input.(string)
	if !ok {
		return input, nil
	}

	return parseFormat(s)
}

func (o *ReportOptions) CompleteFormat(c *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix := strings.ToLower(toComplete)
	var candidates []string
	for _, name := range report.FormatNames() {
		if strings.HasPrefix(name, prefix) {
			candidates = append(candidates, name)
		}
	}
	return candidates, cobra.ShellCompDirectiveNoFileComp
}

func reportCmd() *cobra.Command {
	opts := &ReportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a cross-referenced report of loaded kernel extensions",
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			logger, err := newLogger(opts.Verbose)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			return runReport(opts, c.OutOrStdout(), logger)
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

// runReport renders the whole report in memory and writes it once, so a
// failure at any stage leaves no partial output behind.
func runReport(opts *ReportOptions, stdout io.Writer, logger *zap.Logger) error {
	ix, err := loadIndex(opts.Input, logger)
	if err != nil {
		return err
	}

	if opts.Strict {
		if err := ix.Validate(); err != nil {
			return err
		}
	}

	ropts := report.Options{
		Title:      opts.Title,
		Stylesheet: opts.Stylesheet,
	}
	if opts.Input == "" {
		if release, err := kextinfo.KernelRelease(); err == nil {
			ropts.Kernel = release
		}
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, opts.Format, ix, ropts); err != nil {
		return fmt.Errorf("render %s report: %w", opts.Format, err)
	}

	if opts.Output == "-" || opts.Output == "" {
		_, err := stdout.Write(buf.Bytes())
		return err
	}
	if err := writeFile(opts.Output, buf.Bytes()); err != nil {
		return err
	}
	logger.Info("report written",
		zap.String("path", opts.Output),
		zap.Stringer("format", opts.Format),
		zap.Int("bytes", buf.Len()),
	)
	return nil
}

// writeFile replaces path with data. The data goes to a temporary file in
// the same directory first, so a failed write never leaves a truncated
// report behind.
func writeFile(path string, data []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	if _, err = f.Write(data); err != nil {
		return err
	}
	if err = f.Chmod(0o644); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// CheckOptions defines flags for the check subcommand.
type CheckOptions struct {
	Input   string `flag:"input" flagshort:"i" flagdescr:"Read saved kextstat output from this file instead of running kextstat"`
	JSON    bool   `flag:"json" flagshort:"j" flagdescr:"Output in JSON format"`
	Verbose bool   `flag:"verbose" flagshort:"v" flagdescr:"Log progress to stderr"`
}

func (o *CheckOptions) Attach(c *cobra.Command) error {
	return structcli.Define(c, o)
}

func checkCmd() *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that every dependency of every loaded extension is loaded",
		Long: `Check parses the loaded kernel extension table and verifies that every
dependency index listed by an extension has a matching row.
Exits with code 0 if all dependencies resolve, 1 otherwise.`,
		PreRunE: func(c *cobra.Command, args []string) error {
			return structcli.Unmarshal(c, opts)
		},
		RunE: func(c *cobra.Command, args []string) error {
			logger, err := newLogger(opts.Verbose)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ix, err := loadIndex(opts.Input, logger)
			if err != nil {
				return err
			}

			ok, err := writeCheck(c.OutOrStdout(), c.ErrOrStderr(), ix, opts.JSON)
			if err != nil {
				return err
			}
			if !ok {
				os.Exit(1)
			}
			return nil
		},
	}

	if err := opts.Attach(cmd); err != nil {
		panic(err)
	}
	return cmd
}

type danglingJSON struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// writeCheck reports the dangling references of ix and returns whether
// there were none.
func writeCheck(stdout, stderr io.Writer, ix *kextinfo.Index, asJSON bool) (bool, error) {
	dangling := ix.Dangling()

	if asJSON {
		out := make([]danglingJSON, 0, len(dangling))
		for _, d := range dangling {
			out = append(out, danglingJSON{From: d.From, To: d.To})
		}
		return len(dangling) == 0, printJSON(stdout, map[string]any{
			"ok":         len(dangling) == 0,
			"extensions": ix.Len(),
			"dangling":   out,
		})
	}

	if len(dangling) > 0 {
		for _, d := range dangling {
			fmt.Fprintf(stderr, "FAIL: %s\n", d)
		}
		return false, nil
	}

	fmt.Fprintf(stdout, "OK: %d extensions, all dependencies loaded\n", ix.Len())
	return true, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show kernel and tool version",
		RunE: func(c *cobra.Command, args []string) error {
			if version != "" {
				fmt.Printf("kextinfo %s", version)
				if commit != "" {
					fmt.Printf(" (%s)", commit)
				}
				if date != "" {
					fmt.Printf(" built %s", date)
				}
				fmt.Println()
			} else {
				fmt.Println("kextinfo (dev)")
			}

			release, err := kextinfo.KernelRelease()
			if err != nil {
				return err
			}
			fmt.Printf("Kernel: %s\n", release)
			return nil
		},
	}
}

// loadIndex parses the table from input, or from a live kextstat run when
// input is empty, and indexes it.
func loadIndex(input string, logger *zap.Logger) (*kextinfo.Index, error) {
	var (
		exts []kextinfo.Extension
		err  error
	)
	if input != "" {
		exts, err = parseFile(input)
	} else {
		logger.Debug("running kextstat")
		exts, err = kextinfo.Stat()
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("parsed kextstat output", zap.Int("extensions", len(exts)))

	ix, err := kextinfo.NewIndex(exts)
	if err != nil {
		return nil, err
	}
	for _, d := range ix.Dangling() {
		logger.Warn("dependency not loaded", zap.Int("from", d.From), zap.Int("to", d.To))
	}
	return ix, nil
}

func parseFile(path string) ([]kextinfo.Extension, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	exts, err := kextinfo.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return exts, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var formatIdentifierMap = func() map[report.Format][]string {
	ids := make(map[report.Format][]string, len(report.FormatValues()))
	for _, f := range report.FormatValues() {
		ids[f] = []string{f.String()}
	}
	return ids
}()

func parseFormat(input string) (report.Format, error) {
	name := strings.TrimSpace(input)

	var f report.Format
	enumValue := enumflag.New(&f, "format", formatIdentifierMap, enumflag.EnumCaseInsensitive)
	if err := enumValue.Set(name); err != nil {
		return f, fmt.Errorf("unknown format: %q (available: %s)", name, strings.Join(report.FormatNames(), ", "))
	}
	return f, nil
}
