package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/simp-lee/endnotefix"
)

// settings is the library configuration plus the CLI-only knobs.
type settings struct {
	endnotefix.Config
	Verbose bool
}

// loadEnv returns the default configuration with ENDNOTEFIX_* environment
// overrides applied. Command-line flags take precedence over both.
func loadEnv() settings {
	cfg := settings{Config: endnotefix.DefaultConfig()}

	cfg.WorkDir = envOr("ENDNOTEFIX_WORKDIR", cfg.WorkDir)
	cfg.OutputSuffix = envOr("ENDNOTEFIX_SUFFIX", cfg.OutputSuffix)
	cfg.StartMarker = envOr("ENDNOTEFIX_START", cfg.StartMarker)
	cfg.EndMarker = envOr("ENDNOTEFIX_END", cfg.EndMarker)
	cfg.Placeholder = envOr("ENDNOTEFIX_PLACEHOLDER", cfg.Placeholder)
	cfg.EndnoteAnchorClass = envOr("ENDNOTEFIX_ANCHOR_CLASS", cfg.EndnoteAnchorClass)
	cfg.TextFrameClass = envOr("ENDNOTEFIX_FRAME_CLASS", cfg.TextFrameClass)
	cfg.TOCPrefix = envOr("ENDNOTEFIX_TOC_PREFIX", cfg.TOCPrefix)
	if v := os.Getenv("ENDNOTEFIX_ORDINALS"); v != "" {
		cfg.Ordinals = splitList(v)
	}
	cfg.Verbose = envBool("ENDNOTEFIX_VERBOSE", false)

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// splitList splits a comma-separated list, dropping blank items.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
