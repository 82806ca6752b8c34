// Package emberlog is the structured logging layer wrapped around the
// compiler core: a buffered, level-filtered logger with optional JSON
// output and file rotation, plus a ContextLogger for stamping every line
// of a single compile with the same request/unit identifier.
package emberlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level represents the severity of a log message.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
	Fatal
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Format is the output encoding for log lines.
type Format int

const (
	TextFormat Format = iota
	JSONFormat
)

// Entry is a single structured log record.
type Entry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	UnitID    string                 `json:"unit_id,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
}

// Config configures a Logger.
type Config struct {
	// MinLevel is the minimum level to emit (default: Info).
	MinLevel Level
	// Format is the output encoding (default: TextFormat).
	Format Format
	// IncludeCaller stamps each entry with the file:line that logged it.
	IncludeCaller bool
	// BufferSize bounds the async log channel (default: 1000); once full,
	// a log call falls back to writing synchronously rather than blocking
	// the compiler it instruments.
	BufferSize int
	// Outputs are the writers every entry is fanned out to (default:
	// os.Stdout).
	Outputs []io.Writer
	// FilePath, if set, adds a rotating file writer to Outputs.
	FilePath string
	// MaxFileSize is the rotation threshold in bytes (0 = no rotation).
	MaxFileSize int64
	// MaxBackups bounds how many rotated files are kept.
	MaxBackups int
}

// DefaultConfig returns a Logger config writing text lines at Info and
// above to stdout.
func DefaultConfig() Config {
	return Config{MinLevel: Info, Format: TextFormat}
}

// LevelFromString maps pkg/emberconfig's LogConfig.Level strings onto a
// Level, defaulting to Info for anything unrecognized.
func LevelFromString(s string) Level {
	switch s {
	case "debug":
		return Debug
	case "warn":
		return Warn
	case "error":
		return Error
	case "fatal":
		return Fatal
	default:
		return Info
	}
}

// FormatFromString maps pkg/emberconfig's LogConfig.Format strings onto a
// Format, defaulting to TextFormat for anything but "json".
func FormatFromString(s string) Format {
	if s == "json" {
		return JSONFormat
	}
	return TextFormat
}

// Logger is a buffered, level-filtered log sink.
type Logger struct {
	config     Config
	buffer     chan *Entry
	wg         sync.WaitGroup
	mu         sync.Mutex
	stopped    bool
	fileWriter *rotatingFileWriter
	syncCh     chan chan struct{}
}

// New constructs a Logger from config, starting its async writer goroutine.
func New(config Config) (*Logger, error) {
	if config.BufferSize == 0 {
		config.BufferSize = 1000
	}
	if len(config.Outputs) == 0 {
		config.Outputs = []io.Writer{os.Stdout}
	}

	l := &Logger{
		config: config,
		buffer: make(chan *Entry, config.BufferSize),
		syncCh: make(chan chan struct{}, 1),
	}

	if config.FilePath != "" {
		fw, err := newRotatingFileWriter(config.FilePath, config.MaxFileSize, config.MaxBackups)
		if err != nil {
			return nil, fmt.Errorf("emberlog: open log file: %w", err)
		}
		l.fileWriter = fw
		l.config.Outputs = append(l.config.Outputs, fw)
	}

	l.wg.Add(1)
	go l.processEntries()
	return l, nil
}

// NewUnitID generates a fresh identifier for tagging one compile unit's log
// lines together (one per source file or REPL submission).
func NewUnitID() string { return uuid.New().String() }

func (l *Logger) processEntries() {
	defer l.wg.Done()
	for {
		select {
		case entry, ok := <-l.buffer:
			if !ok {
				select {
				case done := <-l.syncCh:
					close(done)
				default:
				}
				return
			}
			l.writeEntry(entry)
		case done := <-l.syncCh:
			draining := true
			for draining {
				select {
				case entry := <-l.buffer:
					l.writeEntry(entry)
				default:
					draining = false
				}
			}
			close(done)
		}
	}
}

func (l *Logger) writeEntry(entry *Entry) {
	var out string
	if l.config.Format == JSONFormat {
		b, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "emberlog: marshal entry: %v\n", err)
			return
		}
		out = string(b) + "\n"
	} else {
		out = formatText(entry)
	}
	for _, w := range l.config.Outputs {
		if _, err := w.Write([]byte(out)); err != nil {
			fmt.Fprintf(os.Stderr, "emberlog: write entry: %v\n", err)
		}
	}
}

func formatText(e *Entry) string {
	ts := e.Timestamp.Format("2006-01-02 15:04:05.000")
	parts := []string{fmt.Sprintf("[%s]", ts), fmt.Sprintf("[%s]", e.Level)}
	if e.UnitID != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.UnitID))
	}
	if e.Caller != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Caller))
	}
	parts = append(parts, e.Message)
	if len(e.Fields) > 0 {
		fieldsStr := ""
		for k, v := range e.Fields {
			if fieldsStr != "" {
				fieldsStr += ", "
			}
			fieldsStr += fmt.Sprintf("%s=%v", k, v)
		}
		parts = append(parts, fmt.Sprintf("{%s}", fieldsStr))
	}
	result := ""
	for i, p := range parts {
		if i > 0 {
			result += " "
		}
		result += p
	}
	return result + "\n"
}

func (l *Logger) log(level Level, msg string, fields map[string]interface{}, unitID string) {
	l.mu.Lock()
	stopped := l.stopped
	l.mu.Unlock()
	if stopped || level < l.config.MinLevel {
		return
	}

	entry := &Entry{Timestamp: time.Now(), Level: level.String(), Message: msg, UnitID: unitID, Fields: fields}
	if l.config.IncludeCaller {
		if _, file, line, ok := runtime.Caller(2); ok {
			entry.Caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
		}
	}

	select {
	case l.buffer <- entry:
	default:
		l.writeEntry(entry)
	}

	if level == Fatal {
		l.Close()
		os.Exit(1)
	}
}

func (l *Logger) Debug(msg string)                                    { l.log(Debug, msg, nil, "") }
func (l *Logger) DebugWithFields(msg string, f map[string]interface{}) { l.log(Debug, msg, f, "") }
func (l *Logger) Info(msg string)                                     { l.log(Info, msg, nil, "") }
func (l *Logger) InfoWithFields(msg string, f map[string]interface{}) { l.log(Info, msg, f, "") }
func (l *Logger) Warn(msg string)                                     { l.log(Warn, msg, nil, "") }
func (l *Logger) WarnWithFields(msg string, f map[string]interface{}) { l.log(Warn, msg, f, "") }
func (l *Logger) Error(msg string)                                    { l.log(Error, msg, nil, "") }
func (l *Logger) ErrorWithFields(msg string, f map[string]interface{}) { l.log(Error, msg, f, "") }
func (l *Logger) Fatal(msg string)                                    { l.log(Fatal, msg, nil, "") }

// Sync blocks until every buffered entry has been written — tests use this
// to observe log output deterministically.
func (l *Logger) Sync() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()
	done := make(chan struct{})
	l.syncCh <- done
	<-done
}

// Close drains the buffer and shuts the logger down.
func (l *Logger) Close() error {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	l.stopped = true
	l.mu.Unlock()

	close(l.buffer)
	l.wg.Wait()
	if l.fileWriter != nil {
		return l.fileWriter.Close()
	}
	return nil
}

// WithUnitID returns a ContextLogger stamping every line with unitID.
func (l *Logger) WithUnitID(unitID string) *ContextLogger {
	return &ContextLogger{logger: l, unitID: unitID, fields: make(map[string]interface{})}
}

// WithFields returns a ContextLogger stamping every line with fields.
func (l *Logger) WithFields(fields map[string]interface{}) *ContextLogger {
	return &ContextLogger{logger: l, fields: fields}
}

// ContextLogger carries a fixed unit id and field set across a sequence of
// log calls belonging to one compile.
type ContextLogger struct {
	logger *Logger
	unitID string
	fields map[string]interface{}
	mu     sync.Mutex
}

func (cl *ContextLogger) WithField(key string, value interface{}) *ContextLogger {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	merged := make(map[string]interface{}, len(cl.fields)+1)
	for k, v := range cl.fields {
		merged[k] = v
	}
	merged[key] = value
	return &ContextLogger{logger: cl.logger, unitID: cl.unitID, fields: merged}
}

func (cl *ContextLogger) mergeFields(additional map[string]interface{}) map[string]interface{} {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if additional == nil {
		return cl.fields
	}
	merged := make(map[string]interface{}, len(cl.fields)+len(additional))
	for k, v := range cl.fields {
		merged[k] = v
	}
	for k, v := range additional {
		merged[k] = v
	}
	return merged
}

func (cl *ContextLogger) Debug(msg string) { cl.logger.log(Debug, msg, cl.fields, cl.unitID) }
func (cl *ContextLogger) Info(msg string)  { cl.logger.log(Info, msg, cl.fields, cl.unitID) }
func (cl *ContextLogger) Warn(msg string)  { cl.logger.log(Warn, msg, cl.fields, cl.unitID) }
func (cl *ContextLogger) Error(msg string) { cl.logger.log(Error, msg, cl.fields, cl.unitID) }
func (cl *ContextLogger) Fatal(msg string) { cl.logger.log(Fatal, msg, cl.fields, cl.unitID) }
func (cl *ContextLogger) ErrorWithFields(msg string, f map[string]interface{}) {
	cl.logger.log(Error, msg, cl.mergeFields(f), cl.unitID)
}

// rotatingFileWriter is an io.Writer that rotates the underlying file once
// it passes maxSize, keeping up to maxBackups old copies.
type rotatingFileWriter struct {
	mu          sync.Mutex
	file        *os.File
	path        string
	maxSize     int64
	maxBackups  int
	currentSize int64
}

func newRotatingFileWriter(path string, maxSize int64, maxBackups int) (*rotatingFileWriter, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	return &rotatingFileWriter{file: file, path: path, maxSize: maxSize, maxBackups: maxBackups, currentSize: info.Size()}, nil
}

func (w *rotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.maxSize > 0 && w.currentSize+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.file.Write(p)
	w.currentSize += int64(n)
	return n, err
}

func (w *rotatingFileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	for i := w.maxBackups - 1; i > 0; i-- {
		oldPath := fmt.Sprintf("%s.%d", w.path, i)
		newPath := fmt.Sprintf("%s.%d", w.path, i+1)
		if _, err := os.Stat(oldPath); err == nil {
			os.Rename(oldPath, newPath)
		}
	}
	if err := os.Rename(w.path, fmt.Sprintf("%s.1", w.path)); err != nil {
		return err
	}
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	w.file = file
	w.currentSize = 0
	return nil
}

func (w *rotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
