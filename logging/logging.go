package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process logger. Unknown levels fall back to info;
// format is "text" or "json".
func NewLogger(level, format string) *logrus.Logger {
	return newLogger(level, format, os.Stdout)
}

func newLogger(level, format string, out io.Writer) *logrus.Logger {
	logger := logrus.New()

	logLevel := logrus.InfoLevel
	if level != "" {
		if lv, err := logrus.ParseLevel(strings.ToLower(level)); err == nil {
			logLevel = lv
		}
	}
	logger.SetLevel(logLevel)
	logger.SetOutput(out)

	var underlying logrus.Formatter
	if format == "json" {
		underlying = &logrus.JSONFormatter{
			CallerPrettyfier: hideCaller,
		}
	} else {
		underlying = &logrus.TextFormatter{
			FullTimestamp:    true,
			CallerPrettyfier: hideCaller,
		}
	}
	logger.SetFormatter(&SourceFormatter{Underlying: underlying})
	logger.SetReportCaller(true)

	return logger
}

// hideCaller drops logrus' own func/file fields; SourceFormatter adds a
// shorter one.
func hideCaller(*runtime.Frame) (string, string) {
	return "", ""
}

// SourceFormatter adds the caller as a "source" field in file:line form.
type SourceFormatter struct {
	Underlying logrus.Formatter
}

func (f *SourceFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if entry.HasCaller() {
		entry.Data["source"] = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}
	return f.Underlying.Format(entry)
}
