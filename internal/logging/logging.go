package logging

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Formatter renders "[time] [level] message key=value ..." with fields in
// key order.
type Formatter struct{}

func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	b := entry.Buffer
	if b == nil {
		b = &bytes.Buffer{}
	}

	fmt.Fprintf(b, "[%s] [%s] %s", entry.Time.Format("2006-01-02 15:04:05.000"), entry.Level, entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		v := entry.Data[k]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		fmt.Fprintf(b, " %s=%v", k, v)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// FileHook appends every entry to <dir>/<name>-<date>.log and switches to a
// new file when the local date changes.
type FileHook struct {
	mu       sync.Mutex
	dir      string
	name     string
	fileDate string
	writer   *os.File
	now      func() time.Time
}

func NewFileHook(dir, name string) (*FileHook, error) {
	h := &FileHook{dir: dir, name: name, now: time.Now}
	if err := h.rotate(h.now().Format(time.DateOnly)); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *FileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *FileHook) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if today := h.now().Format(time.DateOnly); today != h.fileDate {
		if err := h.rotate(today); err != nil {
			return err
		}
	}
	_, err = h.writer.WriteString(line)
	return err
}

// Close releases the current log file.
func (h *FileHook) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.writer == nil {
		return nil
	}
	err := h.writer.Close()
	h.writer = nil
	return err
}

func (h *FileHook) rotate(date string) error {
	if err := os.MkdirAll(h.dir, os.ModePerm); err != nil {
		return err
	}
	name := filepath.Join(h.dir, fmt.Sprintf("%s-%s.log", h.name, date))
	w, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if h.writer != nil {
		_ = h.writer.Close()
	}
	h.writer = w
	h.fileDate = date
	return nil
}

// New builds the application logger. Output always goes to stderr; when dir
// is non-empty a FileHook is attached as well and returned so the caller can
// close it on shutdown.
func New(level, dir, name string) (*logrus.Logger, *FileHook, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger := logrus.New()
	logger.SetFormatter(&Formatter{})
	logger.SetLevel(lvl)
	logger.SetOutput(os.Stderr)

	if dir == "" {
		return logger, nil, nil
	}
	hook, err := NewFileHook(dir, name)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger.AddHook(hook)
	return logger, hook, nil
}

// Discard returns a logger that drops everything, for tests and tools.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
