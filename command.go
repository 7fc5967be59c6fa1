package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"img2webp/logger"

	"github.com/spf13/cobra"
)

type Config struct {
	InputPath string
	OutputDir string
	Suffix    string
	Glob      string
	Width     int
	Height    int
	Quality   int
	Recursive bool
	Exact     bool
	Lossless  bool
	Overwrite bool
	Verbose   bool
	LogJSON   bool
}

var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// ParseConfig parses command-line arguments. A nil Config with a nil error
// means help or version output was printed and there is nothing to run.
func ParseConfig(args []string, stdout, stderr io.Writer) (*Config, error) {
	cfg := &Config{}
	var showVersion, parsed bool

	root := &cobra.Command{
		Use:           "img2webp <directory> <width> <height>",
		Short:         "Resize images and convert them to WebP",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				return nil
			}
			return cobra.ExactArgs(3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				logger.Box(stdout, "img2webp version information", fmt.Sprintf(
					"Version: %s\nBuild date: %s\nGit commit: %s",
					Version, BuildDate, GitCommit,
				))
				return nil
			}
			if err := cfg.setPositionals(args); err != nil {
				return err
			}
			parsed = true
			return cfg.validate()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(normalizeArgs(args))
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.Flags()
	flags.StringVar(&cfg.OutputDir, "output-dir", "", "Output directory (default: <directory>/converted_webp)")
	flags.BoolVar(&cfg.Recursive, "recursive", false, "Recurse into subdirectories")
	flags.BoolVar(&cfg.Exact, "exact", false, "Resize to exact WxH without preserving aspect ratio")
	flags.IntVar(&cfg.Quality, "quality", 80, "WebP quality 0-100")
	flags.BoolVar(&cfg.Lossless, "lossless", false, "Use lossless WebP (quality is forced to 100)")
	flags.BoolVar(&cfg.Overwrite, "overwrite", false, "Overwrite existing outputs")
	flags.StringVar(&cfg.Suffix, "suffix", "", "Suffix to append to output basename")
	flags.StringVar(&cfg.Glob, "glob", "*.*", "Glob pattern for matching files (\"**\" spans directories)")
	flags.BoolVar(&cfg.Verbose, "verbose", false, "Log settings, timings and a size summary to stderr")
	flags.BoolVar(&cfg.LogJSON, "log-json", false, "Write stderr logs as JSON lines")
	flags.BoolVar(&showVersion, "version", false, "Show version information")

	if err := root.Execute(); err != nil {
		return nil, err
	}
	if !parsed {
		return nil, nil
	}
	return cfg, nil
}

var negativeInt = regexp.MustCompile(`^-\d+$`)

// valueFlags take their value from the next argument when written without "=".
var valueFlags = map[string]bool{
	"--output-dir": true,
	"--quality":    true,
	"--suffix":     true,
	"--glob":       true,
}

// normalizeArgs moves positionals behind a "--" terminator so that negative
// sizes such as "-5" reach setPositionals instead of being read as shorthand
// flags. Flag values, including negative ones, stay attached to their flag.
func normalizeArgs(args []string) []string {
	flags := make([]string, 0, len(args)+1)
	var positionals []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			positionals = append(positionals, args[i+1:]...)
			i = len(args)
		case valueFlags[arg]:
			flags = append(flags, arg)
			if i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		case negativeInt.MatchString(arg), !strings.HasPrefix(arg, "-"), arg == "-":
			positionals = append(positionals, arg)
		default:
			flags = append(flags, arg)
		}
	}
	if len(positionals) == 0 {
		return flags
	}
	return append(append(flags, "--"), positionals...)
}

func (cfg *Config) setPositionals(args []string) error {
	width, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid width %q: must be an integer", args[1])
	}
	height, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid height %q: must be an integer", args[2])
	}

	cfg.InputPath = args[0]
	cfg.Width = width
	cfg.Height = height
	return nil
}

func (cfg *Config) validate() error {
	return validatePattern(cfg.Glob)
}

// resolvePaths makes the source and output directories absolute and checks
// that the source is a directory.
func (cfg *Config) resolvePaths() error {
	src, err := filepath.Abs(cfg.InputPath)
	if err != nil {
		return fmt.Errorf("%w: %v", errNotDirectory, err)
	}
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%s: %w", src, errNotDirectory)
	}
	if resolved, err := filepath.EvalSymlinks(src); err == nil {
		src = resolved
	}
	cfg.InputPath = src

	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(src, "converted_webp")
		return nil
	}
	out, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("invalid output directory %q: %w", cfg.OutputDir, err)
	}
	cfg.OutputDir = out
	return nil
}

// GetEncodingOptions applies the quality clamp and the lossless override.
func (cfg *Config) GetEncodingOptions() EncodeOptions {
	if cfg.Lossless {
		return EncodeOptions{Quality: 100, Lossless: true, Method: MaxMethod}
	}
	return EncodeOptions{Quality: clampQuality(cfg.Quality), Method: MaxMethod}
}

func (cfg *Config) LoggerOptions(w io.Writer) *logger.Options {
	opts := logger.DefaultOptions()
	opts.Output = w
	opts.Colors = logger.ColorsEnabled(w)
	opts.JSON = cfg.LogJSON
	if cfg.Verbose {
		opts.Level = slog.LevelDebug
	}
	return opts
}

// Execute runs the whole program and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer, codec Codec) int {
	cfg, err := ParseConfig(args, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "img2webp: %v\n", err)
		fmt.Fprintln(stderr, "Usage: img2webp <directory> <width> <height> [options] (see --help)")
		return exitUsage
	}
	if cfg == nil {
		return exitOK
	}

	console := logger.NewConsole(cfg.LoggerOptions(stderr))
	return run(cfg, codec, console, stdout)
}

func run(cfg *Config, codec Codec, console *logger.Console, stdout io.Writer) int {
	if err := codec.Check(); err != nil {
		console.Error("WebP encoding is not supported by the image codec: %v", err)
		return exitNoWebP
	}
	if b, ok := codec.(interface{ Backend() string }); ok {
		console.Debug("WebP encoder backend: %s", b.Backend())
	}

	if err := cfg.resolvePaths(); err != nil {
		console.Error("Error: %v", err)
		return exitBadSource
	}

	processor := NewProcessor(cfg, codec, console, stdout)
	if console.Verbose() {
		logSettings(console, cfg, processor.Options)
	}

	if _, err := processor.ProcessDirectory(cfg.InputPath); err != nil {
		if errors.Is(err, errNoImages) {
			console.Warn("No image files found")
			return exitOK
		}
		console.Error("Processing error: %v", err)
		return exitBadSource
	}

	return exitOK
}

func logSettings(console *logger.Console, cfg *Config, opts EncodeOptions) {
	table := console.NewTable([]string{"Setting", "Value"})
	table.AddRow("Source", cfg.InputPath)
	table.AddRow("Output", cfg.OutputDir)
	table.AddRow("Target", fmt.Sprintf("%dx%d", max(1, cfg.Width), max(1, cfg.Height)))
	table.AddRow("Exact", strconv.FormatBool(cfg.Exact))
	table.AddRow("Quality", strconv.Itoa(opts.Quality))
	table.AddRow("Lossless", strconv.FormatBool(opts.Lossless))
	table.AddRow("Overwrite", strconv.FormatBool(cfg.Overwrite))
	table.AddRow("Glob", cfg.Glob)
	table.AddRow("Recursive", strconv.FormatBool(cfg.Recursive))
	console.Debug("Settings:")
	table.Print()
}
