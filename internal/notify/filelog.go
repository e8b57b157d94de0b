package notify

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	logPrefix = "BeholderLog-"
	logSuffix = ".txt"
	dayLayout = "2006-01-02"
	lineStamp = "2006-01-02 15:04:05"
)

// FileLog appends detections to one plain-text file per day. With archive
// enabled, a finished day's file is compressed to <name>.zst and removed.
type FileLog struct {
	dir     string
	archive bool
	now     func() time.Time

	mu      sync.Mutex
	lastDay string
}

func NewFileLog(dir string, archive bool) *FileLog {
	return &FileLog{
		dir:     dir,
		archive: archive,
		now:     time.Now,
	}
}

// PathFor returns the log file used for the day of t.
func (f *FileLog) PathFor(t time.Time) string {
	return filepath.Join(f.dir, logPrefix+t.Format(dayLayout)+logSuffix)
}

// Append writes one timestamped line, creating the day's file if needed.
func (f *FileLog) Append(msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	day := now.Format(dayLayout)
	if f.archive && f.lastDay != "" && f.lastDay != day {
		if err := f.compressLocked(f.lastDay); err != nil {
			log.Printf("[notify] archiving %s failed: %v", f.lastDay, err)
		}
	}
	f.lastDay = day

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}
	file, err := os.OpenFile(f.PathFor(now), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	if _, err := file.WriteString(now.Format(lineStamp) + " " + msg + "\n"); err != nil {
		file.Close()
		return fmt.Errorf("writing log file: %w", err)
	}
	return file.Close()
}

// ArchivePending compresses every plain daily log older than today. It is a
// no-op unless archiving is enabled.
func (f *FileLog) ArchivePending() error {
	if !f.archive {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	today := f.now().Format(dayLayout)
	var errs []error
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, logPrefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}
		day := strings.TrimSuffix(strings.TrimPrefix(name, logPrefix), logSuffix)
		if _, err := time.Parse(dayLayout, day); err != nil || day >= today {
			continue
		}
		if err := f.compressLocked(day); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// compressLocked appends the day's plain log to its .zst archive as a new
// frame, then removes the plain file. Caller must hold f.mu.
func (f *FileLog) compressLocked(day string) error {
	src := filepath.Join(f.dir, logPrefix+day+logSuffix)
	in, err := os.Open(src)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(src+".zst", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		out.Close()
		return err
	}
	if _, err := io.Copy(enc, in); err != nil {
		enc.Close()
		out.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	in.Close()
	return os.Remove(src)
}
