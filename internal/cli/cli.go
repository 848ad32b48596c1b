package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/scrollstory/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments on top of environment defaults. It
// returns a populated app.Config, a boolean indicating if the program should
// exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")

	envCfg, err := app.ConfigFromEnv()
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	flagSet := flag.NewFlagSet("scrollstory", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
ScrollStory - A scroll-driven story orchestration engine.

Usage:
  scrollstory [options] [MANIFEST_PATH]

Arguments:
  MANIFEST_PATH
    Path to a story manifest (.hcl, .yaml or .yml).

Options:
`)
		flagSet.PrintDefaults()
	}

	manifestFlag := flagSet.String("manifest", "", "Path to the story manifest file.")
	mFlag := flagSet.String("m", "", "Path to the story manifest file (shorthand).")
	logFormatFlag := flagSet.String("log-format", envCfg.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", envCfg.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	reducedMotionFlag := flagSet.Bool("reduced-motion", envCfg.ReducedMotion, "Snap timelines to keyframes instead of animating.")
	sectionHeightFlag := flagSet.Float64("section-height", envCfg.SectionHeight, "Simulated pixel height of each section.")
	viewportHeightFlag := flagSet.Float64("viewport-height", envCfg.ViewportHeight, "Simulated viewport height.")
	stepFlag := flagSet.Float64("step", envCfg.ScrollStep, "Scroll delta per simulated frame.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := envCfg.ManifestPath
	if *manifestFlag != "" {
		path = *manifestFlag
	} else if *mFlag != "" {
		path = *mFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Manifest path determined.", "path", path)

	if path == "" {
		slog.Debug("No manifest path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if *sectionHeightFlag <= 0 || *viewportHeightFlag <= 0 || *stepFlag <= 0 {
		return nil, false, &ExitError{Code: 2, Message: "section-height, viewport-height and step must all be positive"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		ManifestPath:   path,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
		ReducedMotion:  *reducedMotionFlag,
		SectionHeight:  *sectionHeightFlag,
		ViewportHeight: *viewportHeightFlag,
		ScrollStep:     *stepFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
