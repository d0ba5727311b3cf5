// ABOUTME: Logger construction for the player and feed server
// ABOUTME: Builds a logrus logger writing to stderr or a rotating file
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// LogConfig describes where and how to log
type LogConfig struct {
	Path         string        `yaml:"path"`
	RotationTime time.Duration `yaml:"rotation_time"`
	ReserveDays  int           `yaml:"reserve_days"`
	Level        string        `yaml:"level"`
	Format       string        `yaml:"format"` // text or json
	ReportCaller bool          `yaml:"report_caller"`
	UseStderr    bool          `yaml:"use_stderr"`
}

// ApplyDefaults fills unset fields.
func (lc *LogConfig) ApplyDefaults() {
	if lc.Path == "" {
		lc.Path = "liveaudio.log"
	}
	if lc.RotationTime == 0 {
		lc.RotationTime = 24 * time.Hour
	}
	if lc.ReserveDays == 0 {
		lc.ReserveDays = 7
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Format == "" {
		lc.Format = "text"
	}
}

// NewLogger builds the logger. Unknown levels fall back to info.
func (lc *LogConfig) NewLogger() (*logrus.Logger, error) {
	var out io.Writer
	if lc.UseStderr {
		out = os.Stderr
	} else {
		logWriter, err := rotatelogs.New(
			lc.Path+".%Y%m%d",
			rotatelogs.WithLinkName(lc.Path),
			rotatelogs.WithRotationTime(lc.RotationTime),
			rotatelogs.WithMaxAge(time.Duration(lc.ReserveDays)*24*time.Hour),
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open log file")
		}
		out = logWriter
	}

	logger := logrus.New()
	logger.SetOutput(out)

	switch strings.ToLower(lc.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	}

	if level, err := logrus.ParseLevel(lc.Level); err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.SetReportCaller(lc.ReportCaller)
	return logger, nil
}

// Tee also copies log output to w, for running without the TUI.
func Tee(logger *logrus.Logger, w io.Writer) {
	logger.SetOutput(io.MultiWriter(logger.Out, w))
}
