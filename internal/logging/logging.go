// Package logging builds the crawler's line-oriented console logger.
package logging

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// TimestampFormat matches JavaScript's Date.toISOString output.
const TimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// New returns a logger that writes info and debug lines to stdout and
// warnings and errors to stderr, each as "[<timestamp>] <message>".
func New(stdout, stderr io.Writer, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	logger := logrus.New()
	logger.SetLevel(lvl)
	logger.SetFormatter(&Formatter{})
	logger.SetOutput(io.Discard)
	logger.AddHook(&streamHook{stdout: stdout, stderr: stderr})

	return logger, nil
}

// Formatter renders "[<UTC timestamp>] <message>" followed by any fields as
// sorted key=value pairs.
type Formatter struct{}

func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('[')
	b.WriteString(entry.Time.UTC().Format(TimestampFormat))
	b.WriteString("] ")
	b.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
		}
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

// streamHook routes each entry to stdout or stderr by severity.
type streamHook struct {
	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer
}

func (h *streamHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *streamHook) Fire(entry *logrus.Entry) error {
	line, err := entry.Logger.Formatter.Format(entry)
	if err != nil {
		return err
	}

	out := h.stdout
	if entry.Level <= logrus.WarnLevel {
		out = h.stderr
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = out.Write(line)
	return err
}
