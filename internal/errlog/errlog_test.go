package errlog

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_Format(t *testing.T) {
	tests := []struct {
		name   string
		msg    string
		userID int64
		info   string
		want   string
	}{
		{
			name:   "all fields",
			msg:    "write failed",
			userID: 42,
			info:   "category=Java",
			want:   ` - ERROR - Error: write failed \| User ID: 42 \| Additional Info: category=Java$`,
		},
		{
			name: "message only",
			msg:  "ledger persist failed",
			want: ` - ERROR - Error: ledger persist failed$`,
		},
		{
			name:   "no info",
			msg:    "send failed",
			userID: 7,
			want:   ` - ERROR - Error: send failed \| User ID: 7$`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewWithWriter(&buf, time.UTC).Log(tt.msg, tt.userID, tt.info)

			line := string(bytes.TrimRight(buf.Bytes(), "\n"))
			assert.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2},\d{3}`+tt.want), line)
		})
	}
}

func TestNew_WritesDatedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := New(dir, time.UTC)
	require.NoError(t, err)

	l.Log("first", 1, "")
	l.Log("second", 0, "ctx")
	require.NoError(t, l.Close())

	path := filepath.Join(dir, "error_log_"+time.Now().UTC().Format("2006-01-02")+".log")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Error: first | User ID: 1\n")
	assert.Contains(t, string(data), "Error: second | Additional Info: ctx\n")
}

func TestDailyFile_Rotates(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)
	d := &dailyFile{dir: dir, loc: time.UTC, now: func() time.Time { return day }}

	_, err := d.Write([]byte("a\n"))
	require.NoError(t, err)
	day = day.Add(2 * time.Minute)
	_, err = d.Write([]byte("b\n"))
	require.NoError(t, err)
	require.NoError(t, d.Close())

	a, err := os.ReadFile(filepath.Join(dir, "error_log_2025-03-01.log"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir, "error_log_2025-03-02.log"))
	require.NoError(t, err)
	assert.Equal(t, "a\n", string(a))
	assert.Equal(t, "b\n", string(b))
}
