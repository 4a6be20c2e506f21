package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/GoCodeAlone/interception/internal/proxygen"
	"github.com/spf13/cobra"
)

// Version information
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// PrintVersion returns the version line.
func PrintVersion() string {
	return fmt.Sprintf("proxygen v%s (commit: %s, built on: %s)", Version, Commit, Date)
}

// NewRootCommand creates the root command for proxygen
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxygen",
		Short: "Proxygen - typed interception proxies for Go interfaces",
		Long: `Proxygen generates proxy types for Go interfaces. Each proxy routes
method calls through an interceptor chain and registers itself with the
default proxy generator.`,
		Version: Version,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	cmd.SetVersionTemplate(PrintVersion() + "\n")

	cmd.AddCommand(NewGenerateCommand())
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), PrintVersion())
		},
	}
}

// GenerateOptions holds the flags of the generate command.
type GenerateOptions struct {
	Dir     string
	Package string
	Types   []string
	Output  string
}

// NewGenerateCommand creates the generate command
func NewGenerateCommand() *cobra.Command {
	opts := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate proxies for interfaces",
		Long: `Generate proxies for one or more interfaces of a package. The output
file belongs to the same package as the interfaces.`,
		Example: `  proxygen generate --type Store
  proxygen generate --dir ./internal/widgets --type Store,Cache --out widgets_proxy.go`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Dir, "dir", "d", ".", "Directory the package pattern is resolved from")
	cmd.Flags().StringVarP(&opts.Package, "pkg", "p", ".", "Package pattern containing the interfaces")
	cmd.Flags().StringSliceVarP(&opts.Types, "type", "t", nil, "Interface names to generate proxies for")
	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "Output file, relative to --dir (default <first type>_proxy.go, \"-\" for stdout)")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func runGenerate(cmd *cobra.Command, opts *GenerateOptions) error {
	src, err := proxygen.Generate(opts.Dir, opts.Package, opts.Types...)
	if err != nil {
		return err
	}

	out := opts.Output
	if out == "-" {
		_, err := cmd.OutOrStdout().Write(src)
		return err
	}
	if out == "" {
		out = strings.ToLower(opts.Types[0]) + "_proxy.go"
	}
	if !filepath.IsAbs(out) {
		out = filepath.Join(opts.Dir, out)
	}

	if err := os.WriteFile(out, src, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
	return nil
}
