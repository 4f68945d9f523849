// Package errlog writes the operator-facing error log: one line per fault in
// LOG_DIR/error_log_<date>.log, append-only.
package errlog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	fieldUserID = "user_id"
	fieldInfo   = "info"

	timestampFormat = "2006-01-02 15:04:05,000"
)

// Formatter renders "<time> - ERROR - Error: <msg> | User ID: <id> | Additional Info: <info>".
// Empty user id and info segments are omitted.
type Formatter struct {
	Location *time.Location
}

func (f *Formatter) Format(e *logrus.Entry) ([]byte, error) {
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s - %s - Error: %s",
		e.Time.In(loc).Format(timestampFormat),
		levelName(e.Level),
		e.Message,
	)
	if v, ok := e.Data[fieldUserID]; ok && v != "" {
		fmt.Fprintf(&b, " | User ID: %v", v)
	}
	if v, ok := e.Data[fieldInfo]; ok && v != "" {
		fmt.Fprintf(&b, " | Additional Info: %v", v)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelName(l logrus.Level) string {
	switch l {
	case logrus.PanicLevel, logrus.FatalLevel:
		return "CRITICAL"
	case logrus.WarnLevel:
		return "WARNING"
	default:
		b, _ := l.MarshalText()
		return string(bytes.ToUpper(b))
	}
}

// Logger is the operator error log. It is safe for concurrent use.
type Logger struct {
	log *logrus.Logger
	out io.Closer
}

// New opens the error log under dir, creating the directory if needed.
// A new file is started whenever the date changes.
func New(dir string, loc *time.Location) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	w := &dailyFile{dir: dir, loc: loc, now: time.Now}
	l := NewWithWriter(w, loc)
	l.out = w
	return l, nil
}

// NewWithWriter builds a Logger writing to w.
func NewWithWriter(w io.Writer, loc *time.Location) *Logger {
	lg := logrus.New()
	lg.SetOutput(w)
	lg.SetLevel(logrus.ErrorLevel)
	lg.SetFormatter(&Formatter{Location: loc})
	return &Logger{log: lg}
}

// Log records one fault. userID 0 and empty info are omitted from the line.
func (l *Logger) Log(msg string, userID int64, info string) {
	fields := logrus.Fields{}
	if userID != 0 {
		fields[fieldUserID] = userID
	}
	if info != "" {
		fields[fieldInfo] = info
	}
	l.log.WithFields(fields).Error(msg)
}

// Close releases the current log file.
func (l *Logger) Close() error {
	if l.out == nil {
		return nil
	}
	return l.out.Close()
}

// dailyFile appends to error_log_<YYYY-MM-DD>.log, reopening on date change.
type dailyFile struct {
	dir string
	loc *time.Location
	now func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
}

func (d *dailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if d.loc != nil {
		now = now.In(d.loc)
	}
	day := now.Format("2006-01-02")
	if d.file == nil || day != d.day {
		if d.file != nil {
			_ = d.file.Close()
		}
		f, err := os.OpenFile(filepath.Join(d.dir, "error_log_"+day+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			d.file = nil
			return 0, err
		}
		d.file, d.day = f, day
	}
	return d.file.Write(p)
}

func (d *dailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}
