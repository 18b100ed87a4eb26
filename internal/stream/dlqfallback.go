package stream

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DLQFallbackMaxBytesPerDay caps the local fallback file's daily size
//.
const DLQFallbackMaxBytesPerDay = 100 * 1024 * 1024

// DLQFallback writes forwarding-dead-letter records to a local
// newline-delimited JSON file when the real stream is unreachable, so a
// forwarding failure never silently loses an opportunity. One file per UTC
// day; writes beyond the daily cap are dropped and logged by the caller via
// the returned error.
type DLQFallback struct {
	mu      sync.Mutex
	dir     string
	day     string
	file    *os.File
	written int64
}

// NewDLQFallback returns a fallback writer rooted at dir (created if
// missing).
func NewDLQFallback(dir string) *DLQFallback {
	return &DLQFallback{dir: dir}
}

// Write appends record (any JSON-marshalable value) to today's fallback
// file. It returns an error if the daily cap has been reached or the record
// cannot be marshaled/written.
func (d *DLQFallback) Write(record any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("stream: marshal dlq fallback record: %w", err)
	}
	line = append(line, '\n')

	if err := d.rotateLocked(); err != nil {
		return err
	}

	if d.written+int64(len(line)) > DLQFallbackMaxBytesPerDay {
		return fmt.Errorf("stream: dlq fallback daily cap (%d bytes) reached for %s", DLQFallbackMaxBytesPerDay, d.day)
	}

	n, err := d.file.Write(line)
	d.written += int64(n)
	if err != nil {
		return fmt.Errorf("stream: write dlq fallback record: %w", err)
	}
	return nil
}

// Close releases the current day's file handle, if open.
func (d *DLQFallback) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

func (d *DLQFallback) rotateLocked() error {
	today := time.Now().UTC().Format("2006-01-02")
	if d.file != nil && d.day == today {
		return nil
	}
	if d.file != nil {
		_ = d.file.Close()
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("stream: create dlq fallback dir: %w", err)
	}

	path := filepath.Join(d.dir, fmt.Sprintf("dlq-forwarding-fallback-%s.jsonl", today))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("stream: open dlq fallback file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("stream: stat dlq fallback file: %w", err)
	}

	d.file = f
	d.day = today
	d.written = info.Size()
	return nil
}
