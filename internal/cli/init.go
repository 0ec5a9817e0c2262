package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dusansimic/openrpc-generator/internal/emitter"
)

const defaultConfigPath = "openrpc-generator.yaml"

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool

	stdout io.Writer
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample openrpc-generator configuration file",
		Long:  "Scaffold a commented openrpc-generator configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath: out,
				Force:      force,
				Verbose:    verbose,
				stdout:     cmd.OutOrStdout(),
			}
			return initRunner(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringP("out", "o", defaultConfigPath, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
	_ = ctx

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = defaultConfigPath
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force {
		if st.Mode().IsRegular() {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
		}
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"
	if err := emitter.WriteFileAtomic(absPath, []byte(content), 0o644); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write %s: %v\nHint: choose a different --out or check directory permissions.", absPath, err))
	}
	w := cfg.stdout
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# openrpc-generator configuration (YAML or JSON)
# All fields are optional. Command-line flags override config values.

# Path to the OpenRPC document (local file).
# input: ./openrpc.json

# Target language to emit (typescript|go). Defaults to typescript.
# lang: typescript

# Output file. Defaults to ./client.ts (typescript) or ./server.go (go).
# The Go target also writes <out>_main.go once, next to <out>.
# out: ./src/client.ts

# TypeScript: name of the generated client class.
# className: RPCClient

# TypeScript: default endpoint; the first server URL is used when omitted.
# serverUrl: https://api.example.com/rpc

# Go: package of the generated files. main also emits a main function.
# packageName: main

# Only include methods with these tags (comma-separated or list).
# includeTags: [public]

# Exclude methods with these tags (comma-separated or list).
# excludeTags: [internal]

# Only include methods whose names match one of these regular expressions.
# methods: ["^user\\."]

# Preview planned outputs without writing files.
# dryRun: false

# Overwrite the Go server wiring file when it exists.
# force: false

# Enable verbose logging.
# verbose: false
`
