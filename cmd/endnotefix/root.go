package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/simp-lee/endnotefix"
)

type options struct {
	repack  bool
	toc     bool
	verbose bool
	workDir string
	suffix  string
	start   string
	end     string
}

func newRootCmd() *cobra.Command {
	env := loadEnv()
	opts := options{
		workDir: env.WorkDir,
		suffix:  env.OutputSuffix,
		start:   env.StartMarker,
		end:     env.EndMarker,
	}

	cmd := &cobra.Command{
		Use:   "endnotefix <file.epub>",
		Short: "Unpack an ePub and fix endnote and chapter numbering",
		Long: `endnotefix extracts an ePub into a scratch directory, renumbers endnote
labels that read "-1", removes empty text frames, prefixes table-of-contents
chapters with their spelled-out number and repacks the book next to the input
as <name>_fixed.epub.

--toc and --repack operate on the scratch directory left by a previous full
run and fail if it does not exist.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], opts, env)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&opts.repack, "repack", "r", false, "repack only, useful for debugging")
	f.BoolVarP(&opts.toc, "toc", "t", false, "modify toc only, useful for debugging")
	f.BoolVarP(&opts.verbose, "verbose", "v", env.Verbose, "log every packed file")
	f.StringVar(&opts.workDir, "workdir", opts.workDir, "scratch extraction directory")
	f.StringVar(&opts.suffix, "suffix", opts.suffix, "suffix inserted before the output extension")
	f.StringVar(&opts.start, "start", opts.start, "title of the first numbered chapter")
	f.StringVar(&opts.end, "end", opts.end, "title at which chapter numbering stops")

	return cmd
}

func run(cmd *cobra.Command, archive string, opts options, env settings) error {
	log, err := newLogger(opts.verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	cfg := env.Config
	cfg.WorkDir = opts.workDir
	cfg.OutputSuffix = opts.suffix
	cfg.StartMarker = opts.start
	cfg.EndMarker = opts.end

	mode := endnotefix.ModeFull
	switch {
	case opts.toc:
		mode = endnotefix.ModeTOCOnly
	case opts.repack:
		mode = endnotefix.ModeRepackOnly
	}

	report, err := endnotefix.New(cfg, log).Run(cmd.Context(), archive, mode)
	if err != nil {
		return err
	}

	fields := []zap.Field{
		zap.String("mode", mode.String()),
		zap.Int("endnotes", report.HTML.Count),
		zap.Int("frames_removed", report.HTML.FramesRemoved),
		zap.Int("chapters", report.TOC.Count),
	}
	if report.Output != "" {
		fields = append(fields, zap.String("result", report.Output))
	}
	log.Info("done", fields...)
	return nil
}

// newLogger builds a human-readable console logger on stderr. Debug level
// is enabled with verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.DisableCaller = !verbose
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}
