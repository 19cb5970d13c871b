package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

func init() {
	Logger = logrus.New()
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	Logger.SetLevel(logrus.InfoLevel)

	// LOG_LEVEL=debug; an invalid value keeps info
	_ = Configure(os.Getenv("LOG_LEVEL"), os.Stdout)
}

// Configure applies a textual log level and an optional output.
// An invalid level leaves the current level untouched and is returned as an error.
func Configure(level string, out io.Writer) error {
	if out != nil {
		Logger.SetOutput(out)
	}
	if level == "" {
		return nil
	}
	parsedLevel, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}
	Logger.SetLevel(parsedLevel)
	return nil
}

// WithComponent adds a component field to the logger
func WithComponent(component string) *logrus.Entry {
	return Logger.WithField("component", component)
}

// WithLocation adds component and location fields.
func WithLocation(component string, loc fmt.Stringer) *logrus.Entry {
	return WithComponent(component).WithField("location", loc.String())
}
