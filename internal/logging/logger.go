// Package logging builds the zap logger shared by the rotate-backups command.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultSyslogTag identifies rotate-backups messages in the system log.
const DefaultSyslogTag = "rotate-backups"

// Options controls logger construction.
type Options struct {
	// Verbose lowers the threshold one level per increment (info, then debug).
	Verbose int
	// Quiet raises the threshold one level per increment (warn, then error).
	Quiet int
	// Syslog additionally sends records to the local syslog daemon.
	Syslog    bool
	SyslogTag string
	// Output receives console records; defaults to stderr.
	Output io.Writer
}

// Level returns the minimum level enabled by the verbosity counters.
func (o Options) Level() zapcore.Level {
	level := zapcore.InfoLevel - zapcore.Level(o.Verbose) + zapcore.Level(o.Quiet)
	if level < zapcore.DebugLevel {
		return zapcore.DebugLevel
	}
	if level > zapcore.ErrorLevel {
		return zapcore.ErrorLevel
	}
	return level
}

// New creates a console logger, teed to syslog when requested.
func New(opts Options) (*zap.Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level := zap.NewAtomicLevelAt(opts.Level())

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(out), level),
	}

	if opts.Syslog {
		tag := opts.SyslogTag
		if tag == "" {
			tag = DefaultSyslogTag
		}
		w, err := newSyslogWriter(tag)
		if err != nil {
			return nil, fmt.Errorf("connect to syslog: %w", err)
		}
		sysCfg := encCfg
		sysCfg.TimeKey = ""
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(sysCfg), zapcore.AddSync(w), level))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}
