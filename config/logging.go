package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// SetupLogging configures the standard logrus logger from the log flags.
func SetupLogging(out io.Writer) error {
	return setupLogging(out, viper.GetString(CfgLogLevel), viper.GetString(CfgLogFormat))
}

func setupLogging(out io.Writer, level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", CfgLogLevel, err)
	}

	var formatter logrus.Formatter
	switch strings.ToLower(format) {
	case FormatText:
		formatter = &logrus.TextFormatter{FullTimestamp: true}
	case FormatJSON:
		formatter = &logrus.JSONFormatter{}
	default:
		return fmt.Errorf("invalid %s %q: must be %s or %s", CfgLogFormat, format, FormatText, FormatJSON)
	}

	logrus.SetLevel(lvl)
	logrus.SetFormatter(formatter)
	if out != nil {
		logrus.SetOutput(out)
	}
	return nil
}
