package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	charmLog "github.com/charmbracelet/log"
	"github.com/hylla/tavla/internal/config"
)

// logSink is one charm logger plus whether it writes to the terminal.
type logSink struct {
	*charmLog.Logger
	console bool
}

// runtimeLogger writes each event to the terminal and, in dev mode, to a daily logfmt file.
// The terminal sink is muted while the TUI owns the screen.
type runtimeLogger struct {
	sinks     []logSink
	muted     bool
	closeFile func() error
	devLog    string
}

func newSinkLogger(w io.Writer, prefix string, level charmLog.Level, formatter charmLog.Formatter) *charmLog.Logger {
	return charmLog.NewWithOptions(w, charmLog.Options{
		Level:           level,
		Prefix:          prefix,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       formatter,
	})
}

func newRuntimeLogger(stderr io.Writer, appName string, devMode bool, cfg config.LoggingConfig, now func() time.Time) (*runtimeLogger, error) {
	level, err := charmLog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}
	if stderr == nil {
		stderr = io.Discard
	}
	l := &runtimeLogger{sinks: []logSink{{
		Logger:  newSinkLogger(stderr, appName, level, charmLog.TextFormatter),
		console: true,
	}}}
	if !devMode || !cfg.DevFile.Enabled {
		return l, nil
	}

	if now == nil {
		now = time.Now
	}
	path, err := devLogFilePath(cfg.DevFile.Dir, appName, now().UTC())
	if err != nil {
		return nil, fmt.Errorf("resolve dev log file path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dev log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dev log file: %w", err)
	}
	l.sinks = append(l.sinks, logSink{Logger: newSinkLogger(f, appName, level, charmLog.LogfmtFormatter)})
	l.closeFile = f.Close
	l.devLog = path
	return l, nil
}

// DevLogPath is empty unless a dev log file is open.
func (l *runtimeLogger) DevLogPath() string {
	if l == nil {
		return ""
	}
	return l.devLog
}

func (l *runtimeLogger) Close() error {
	if l == nil || l.closeFile == nil {
		return nil
	}
	return l.closeFile()
}

// MuteConsole stops or resumes terminal output. File output is unaffected.
func (l *runtimeLogger) MuteConsole(muted bool) {
	if l != nil {
		l.muted = muted
	}
}

// Sink picks the one charm logger handed to adapters: the first sink still writing, or nil.
func (l *runtimeLogger) Sink() *charmLog.Logger {
	if l == nil {
		return nil
	}
	for _, sink := range l.sinks {
		if l.writes(sink) {
			return sink.Logger
		}
	}
	return nil
}

func (l *runtimeLogger) writes(sink logSink) bool {
	return !sink.console || !l.muted
}

func (l *runtimeLogger) log(level charmLog.Level, msg string, keyvals ...any) {
	if l == nil {
		return
	}
	for _, sink := range l.sinks {
		if l.writes(sink) {
			sink.Log(level, msg, keyvals...)
		}
	}
}

func (l *runtimeLogger) Debug(msg string, keyvals ...any) {
	l.log(charmLog.DebugLevel, msg, keyvals...)
}

func (l *runtimeLogger) Info(msg string, keyvals ...any) {
	l.log(charmLog.InfoLevel, msg, keyvals...)
}

func (l *runtimeLogger) Warn(msg string, keyvals ...any) {
	l.log(charmLog.WarnLevel, msg, keyvals...)
}

func (l *runtimeLogger) Error(msg string, keyvals ...any) {
	l.log(charmLog.ErrorLevel, msg, keyvals...)
}

// devLogFilePath returns <dir>/<app>-YYYYMMDD.log, with relative dirs anchored at the workspace root.
func devLogFilePath(configDir, appName string, now time.Time) (string, error) {
	baseDir := strings.TrimSpace(configDir)
	if baseDir == "" {
		baseDir = ".tavla/log"
	}
	if !filepath.IsAbs(baseDir) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working dir: %w", err)
		}
		baseDir = filepath.Join(workspaceRootFrom(cwd), baseDir)
	}
	fileName := fmt.Sprintf("%s-%s.log", sanitizeLogFileStem(appName), now.Format("20060102"))
	return filepath.Join(filepath.Clean(baseDir), fileName), nil
}

// workspaceRootFrom walks up from start to the first directory holding go.mod or .git.
// With no marker above it, start itself is the root.
func workspaceRootFrom(start string) string {
	if strings.TrimSpace(start) == "" {
		return "."
	}
	start = filepath.Clean(start)
	for dir := start; ; {
		if hasWorkspaceMarker(dir) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}

func hasWorkspaceMarker(dir string) bool {
	for _, marker := range []string{"go.mod", ".git"} {
		if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
			return true
		}
	}
	return false
}

// sanitizeLogFileStem turns an app name into a file name stem.
func sanitizeLogFileStem(appName string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", " ", "-")
	stem := strings.Trim(replacer.Replace(strings.TrimSpace(appName)), "-")
	if stem == "" {
		return "tavla"
	}
	return stem
}
