package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/dusansimic/openrpc-generator/internal/emitter"
	"github.com/dusansimic/openrpc-generator/internal/emitter/goemitter"
	"github.com/dusansimic/openrpc-generator/internal/emitter/tsemitter"
	"github.com/dusansimic/openrpc-generator/internal/organize"
	"github.com/dusansimic/openrpc-generator/internal/spec"
	"github.com/dusansimic/openrpc-generator/internal/typegen"
)

const (
	langTypeScript = "typescript"
	langGo         = "go"
)

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Input       string `validate:"required"`
	Lang        string `validate:"required,oneof=typescript go"`
	Out         string
	ClassName   string
	PackageName string
	ServerURL   string
	IncludeTags []string
	ExcludeTags []string
	Methods     []string
	ConfigPath  string
	DryRun      bool
	Force       bool
	Verbose     bool

	stdout io.Writer
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Lang: langTypeScript}
}

var (
	generateRunner = runGenerate
	validate       = validator.New()
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [spec.json]",
		Short: "Generate a TypeScript client or Go server from an OpenRPC document",
		Long: "Generate a TypeScript client or Gorilla RPC v2 server stubs from an OpenRPC document. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  openrpc-generator generate openrpc.json --out ./src/client.ts
  openrpc-generator generate openrpc.json --lang go --out ./server/server.go --package-name server
  openrpc-generator --config openrpc-generator.yaml generate --dry-run`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd, args)
			if err != nil {
				return err
			}
			cfg.stdout = cmd.OutOrStdout()
			logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return generateRunner(logger.WithContext(ctx), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path to the OpenRPC document (same as the positional argument)")
	flags.StringP("lang", "l", "", "Target language to emit (typescript|go); defaults to typescript")
	flags.StringP("out", "o", "", "Output file (defaults to ./client.ts or ./server.go)")
	flags.String("class-name", "", "TypeScript client class name (default RPCClient)")
	flags.String("package-name", "", "Go package name of the generated server (default main)")
	flags.String("server-url", "", "Override the default endpoint of the TypeScript client")
	flags.StringSlice("include-tags", nil, "Only include methods with these tags")
	flags.StringSlice("exclude-tags", nil, "Exclude methods with these tags")
	flags.StringSlice("methods", nil, "Only include methods whose name matches one of these regular expressions")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite the Go server wiring file when it exists")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command, args []string) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		if cmd.Flags().Changed("input") && strings.TrimSpace(args[0]) != cfg.Input {
			return nil, newUsageError("generate: pass the spec either as an argument or with --input, not both")
		}
		cfg.Input = args[0]
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	for name, dst := range map[string]*string{
		"input":        &cfg.Input,
		"lang":         &cfg.Lang,
		"out":          &cfg.Out,
		"class-name":   &cfg.ClassName,
		"package-name": &cfg.PackageName,
		"server-url":   &cfg.ServerURL,
	} {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}
	for name, dst := range map[string]*[]string{
		"include-tags": &cfg.IncludeTags,
		"exclude-tags": &cfg.ExcludeTags,
		"methods":      &cfg.Methods,
	} {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetStringSlice(name)
		if err != nil {
			return err
		}
		*dst = sanitizeTags(value)
	}
	for name, dst := range map[string]*bool{
		"dry-run": &cfg.DryRun,
		"force":   &cfg.Force,
		"verbose": &cfg.Verbose,
	} {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Lang = strings.ToLower(strings.TrimSpace(c.Lang))
	switch c.Lang {
	case "":
		c.Lang = langTypeScript
	case "ts":
		c.Lang = langTypeScript
	case "golang":
		c.Lang = langGo
	}
	c.Out = strings.TrimSpace(c.Out)
	if c.Out == "" {
		c.Out = defaultOut(c.Lang)
	}
	c.ClassName = strings.TrimSpace(c.ClassName)
	c.PackageName = strings.TrimSpace(c.PackageName)
	c.ServerURL = strings.TrimSpace(c.ServerURL)
	c.IncludeTags = sanitizeTags(c.IncludeTags)
	c.ExcludeTags = sanitizeTags(c.ExcludeTags)
	c.Methods = sanitizeTags(c.Methods)
}

func defaultOut(lang string) string {
	if lang == langGo {
		return "./server.go"
	}
	return "./client.ts"
}

func (c *GenerateConfig) validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return newUsageError("generate: " + formatValidationErrors(verrs))
		}
		return err
	}

	overlap := intersect(c.IncludeTags, c.ExcludeTags)
	if len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("generate: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}

	return nil
}

func formatValidationErrors(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, ve := range verrs {
		msgs = append(msgs, formatValidationError(ve))
	}
	return strings.Join(msgs, "; ")
}

func formatValidationError(ve validator.FieldError) string {
	switch ve.Field() {
	case "Input":
		if ve.Tag() == "required" {
			return "a spec file is required (pass it as an argument, with --input, or in the config file)"
		}
	case "Lang":
		if ve.Tag() == "oneof" {
			return fmt.Sprintf("unsupported --lang %q (allowed: typescript, go)", ve.Value())
		}
	}
	switch ve.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", strings.ToLower(ve.Field()))
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", strings.ToLower(ve.Field()), ve.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", strings.ToLower(ve.Field()), ve.Tag())
	}
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	logger := zerolog.Ctx(ctx)

	doc, err := spec.Load(ctx, cfg.Input, spec.WithLogger(*logger))
	if err != nil {
		var se *spec.SpecError
		if errors.As(err, &se) {
			msg := se.Message
			if !strings.HasPrefix(msg, "spec:") {
				msg = "spec: " + msg
			}
			if se.Location != "" {
				msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
			}
			if se.JSONPointer != "" {
				msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
			}
			return newUsageError(msg)
		}
		return err
	}

	methods, err := spec.Select(
		doc,
		spec.WithIncludeTags(cfg.IncludeTags),
		spec.WithExcludeTags(cfg.ExcludeTags),
		spec.WithMethodPatterns(cfg.Methods),
	)
	if err != nil {
		return newUsageError(fmt.Sprintf("generate: %v", err))
	}
	warnUnknownTags(logger, spec.Tags(doc.Methods), cfg.IncludeTags, cfg.ExcludeTags)
	logger.Debug().
		Str("spec", doc.Info.Title).
		Int("methods", len(methods)).
		Int("selected_of", len(doc.Methods)).
		Msg("selected methods")

	opts := organize.TypeScriptOptions()
	reserved := tsemitter.ReservedNames(cfg.ClassName)
	if cfg.Lang == langGo {
		opts = organize.GoOptions()
		reserved = goemitter.ReservedNames()
	}
	opts.Logger = *logger
	tctx := typegen.NewContext(doc.Schemas, typegen.WithLogger(*logger), typegen.WithReservedNames(reserved...))
	out, err := organize.Organize(tctx, methods, opts)
	if err != nil {
		return err
	}

	var res *emitter.Result
	switch cfg.Lang {
	case langGo:
		res, err = goemitter.Emit(ctx, doc, out, goemitter.Options{
			Output:      cfg.Out,
			PackageName: cfg.PackageName,
			Force:       cfg.Force,
			DryRun:      cfg.DryRun,
			Logger:      *logger,
		})
	case langTypeScript:
		res, err = tsemitter.Emit(ctx, doc, out, tsemitter.Options{
			Output:    cfg.Out,
			ClassName: cfg.ClassName,
			ServerURL: cfg.ServerURL,
			DryRun:    cfg.DryRun,
			Logger:    *logger,
		})
	default:
		return newUsageError(fmt.Sprintf("generate: unsupported --lang %q (allowed: typescript, go)", cfg.Lang))
	}
	if err != nil {
		return wrapOutputError(err, cfg.Out)
	}
	if cfg.DryRun {
		printPlan(cfg.stdout, cfg.Out, res.Planned)
	}
	return nil
}

// warnUnknownTags logs every selection tag that no method of the document
// carries.
func warnUnknownTags(logger *zerolog.Logger, known []string, include, exclude []string) {
	have := make(map[string]bool, len(known))
	for _, t := range known {
		have[t] = true
	}
	check := func(flag string, tags []string) {
		for _, t := range tags {
			if !have[t] {
				logger.Warn().Str("flag", flag).Str("tag", t).Msg("tag is not used by any method")
			}
		}
	}
	check("include-tags", include)
	check("exclude-tags", exclude)
}

func printPlan(w io.Writer, out string, planned []emitter.PlannedFile) {
	if w == nil {
		w = os.Stdout
	}
	dir := filepath.Dir(out)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	fmt.Fprintf(w, "Planned writes to %s (%d files):\n", dir, len(planned))
	for _, p := range planned {
		if p.Skipped {
			fmt.Fprintf(w, "- %s (exists, skipped)\n", p.Path)
			continue
		}
		fmt.Fprintf(w, "- %s (%d bytes)\n", p.Path, p.Size)
	}
}

func wrapOutputError(err error, out string) error {
	// Provide clearer guidance for common FS failures.
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "is a directory") || strings.Contains(lower, "rename") {
		return newUsageError(fmt.Sprintf("output error for %s: %v\nHint: choose a different --out.", out, err))
	}
	return err
}

func sanitizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	// YAML is a superset of JSON, so both formats decode here.
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	for key, value := range raw {
		var err error
		switch normalizeKey(key) {
		case "input", "spec":
			cfg.Input, err = valueAsString(value)
		case "lang", "language":
			cfg.Lang, err = valueAsString(value)
		case "out", "output":
			cfg.Out, err = valueAsString(value)
		case "classname":
			cfg.ClassName, err = valueAsString(value)
		case "packagename":
			cfg.PackageName, err = valueAsString(value)
		case "serverurl":
			cfg.ServerURL, err = valueAsString(value)
		case "includetags":
			var list []string
			list, err = valueAsStringSlice(value)
			cfg.IncludeTags = sanitizeTags(list)
		case "excludetags":
			var list []string
			list, err = valueAsStringSlice(value)
			cfg.ExcludeTags = sanitizeTags(list)
		case "methods":
			var list []string
			list, err = valueAsStringSlice(value)
			cfg.Methods = sanitizeTags(list)
		case "dryrun":
			cfg.DryRun, err = valueAsBool(value)
		case "force":
			cfg.Force, err = valueAsBool(value)
		case "verbose":
			cfg.Verbose, err = valueAsBool(value)
		default:
			return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
		}
		if err != nil {
			return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
		}
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n", "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
