package internal

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// DefaultAppName is used for config lookup and the env prefix
	DefaultAppName        = "tokenizer-forge"
	DefaultEnvPrefix      = "TKFORGE"
	DefaultConfigPath     = filepath.Join(getHomeDir(), ".config", DefaultAppName)
	DefaultHistoryDBPath  = filepath.Join(DefaultConfigPath, "history.db")
	DefaultHistoryDSN     = "file:" + DefaultHistoryDBPath
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "pretty"
	DefaultInlineVocab    = 512
	DefaultInlineMaxLen   = 2048
	DefaultDebounceMillis = 500
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			log.Printf("Unable to get home or working directory, using /tmp: %v", err)
			return "/tmp"
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// NewLogger builds a logger for the CLI. format is "json" or "pretty";
// unknown levels fall back to info.
func NewLogger(w io.Writer, level, format string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
