package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/orandin/lumberjackrus"
	"github.com/sirupsen/logrus"
)

// This won't be as verbose as tracing, which is likely for testing only.
var VerboseEnabled = false

var std = newLogger(os.Stderr)

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		FieldsOrder:     []string{"component", "tag"},
		TimestampFormat: "15:04:05",
	})
	return l
}

// Component returns the process logger tagged with a "component" field.
func Component(name string) *logrus.Entry {
	return std.WithField("component", name)
}

// Config is mapped from the [logger] section of the config file.
type Config struct {
	Level      string
	NoColors   bool
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

func DefaultConfig() *Config {
	return &Config{
		Level:      "warning",
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     30,
	}
}

// Setup applies cfg to the process logger. When cfg.File is set, entries are
// also written to a size-rotated log file.
func Setup(cfg *Config) error {
	return setup(std, cfg)
}

func setup(l *logrus.Logger, cfg *Config) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("logger level: %w", err)
	}
	if VerboseEnabled && level < logrus.DebugLevel {
		level = logrus.DebugLevel
	}
	l.SetLevel(level)
	if f, ok := l.Formatter.(*nested.Formatter); ok {
		f.NoColors = cfg.NoColors
	}

	l.ReplaceHooks(make(logrus.LevelHooks))
	if cfg.File != "" {
		hook, err := lumberjackrus.NewHook(
			&lumberjackrus.LogFile{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   cfg.Compress,
			},
			level,
			&logrus.TextFormatter{DisableColors: true, FullTimestamp: true},
			&lumberjackrus.LogFileOpts{},
		)
		if err != nil {
			return fmt.Errorf("logger file hook: %w", err)
		}
		l.AddHook(hook)
	}
	MaybeLoadTraceSetting()
	return nil
}

func Fverbosef(w io.Writer, format string, v ...interface{}) {
	if VerboseEnabled {
		fmt.Fprintf(w, format, v...)
	}
}

var tracingLoaded = false

// Tags enabled. Value ignored
var TraceSetting = map[string]bool{}

// Supply the TRACE environment variable with a comma-separated list of
// trace tags to enable.
func LoadTraceSetting() {
	tracingLoaded = true
	traceVar := os.Getenv("TRACE")
	if traceVar != "" {
		tags := strings.Split(traceVar, ",")
		for _, tag := range tags {
			TraceSetting[strings.TrimSpace(tag)] = true
		}
		std.SetLevel(logrus.TraceLevel)
	}
}

func MaybeLoadTraceSetting() {
	if !tracingLoaded {
		LoadTraceSetting()
	}
}

func Tracef(tag string, format string, v ...interface{}) {
	MaybeLoadTraceSetting()
	if _, ok := TraceSetting[tag]; ok {
		std.WithField("tag", "TR "+tag).Tracef(format, v...)
	}
}

type ErrorPrinter interface {
	Ln(v ...interface{})
	F(format string, v ...interface{})
}

// The default ErrorPrinter
type StderrErrorPrinter struct{}

func (p *StderrErrorPrinter) Ln(v ...interface{}) {
	fmt.Fprintln(os.Stderr, v...)
}

func (p *StderrErrorPrinter) F(format string, v ...interface{}) {
	fmt.Fprintf(os.Stderr, format, v...)
}

// WriterErrorPrinter sends errors to an arbitrary writer, e.g. a cobra
// command's error stream.
type WriterErrorPrinter struct {
	W io.Writer
}

func (p *WriterErrorPrinter) Ln(v ...interface{}) {
	fmt.Fprintln(p.W, v...)
}

func (p *WriterErrorPrinter) F(format string, v ...interface{}) {
	fmt.Fprintf(p.W, format, v...)
}
