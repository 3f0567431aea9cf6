package tail

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aicommandcenter/aicc/pkg/types"
)

// WindowSize is the maximum number of bytes read from the end of a file.
const WindowSize = 64 << 10

var (
	// ErrNotFound indicates the log file does not exist.
	ErrNotFound = errors.New("tail: log file not found")

	// ErrUnknownService indicates a service that has no log file.
	ErrUnknownService = errors.New("tail: unknown service")
)

// logFiles maps services to their log file name under the logs directory.
var logFiles = map[types.ServiceID]string{
	types.ServiceRouter:  "router.out.log",
	types.ServiceGateway: "litellm.out.log",
}

// LogPath returns the log file for service under dir.
func LogPath(dir string, service types.ServiceID) (string, error) {
	name, ok := logFiles[service]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownService, service)
	}
	return filepath.Join(dir, name), nil
}

// Tail returns up to maxLines trailing lines of path, oldest first. A missing
// file yields one informational line and a nil error; other I/O failures are
// returned.
func Tail(path string, maxLines int) ([]string, error) {
	lines, err := Read(path, maxLines)
	if errors.Is(err, ErrNotFound) {
		return []string{fmt.Sprintf("Log file not found: %s", path)}, nil
	}
	return lines, err
}

// Read returns up to maxLines trailing lines of path, oldest first. It
// returns an error wrapping ErrNotFound when the file does not exist.
func Read(path string, maxLines int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("tail: open %q: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("tail: stat %q: %w", path, err)
	}

	var seekPos int64
	if info.Size() >= WindowSize {
		seekPos = info.Size() - WindowSize
	}
	if _, err := f.Seek(seekPos, io.SeekStart); err != nil {
		return nil, fmt.Errorf("tail: seek %q: %w", path, err)
	}

	// A writer may append between Stat and Read; cap the read at the window.
	buf, err := io.ReadAll(io.LimitReader(f, WindowSize))
	if err != nil {
		return nil, fmt.Errorf("tail: read %q: %w", path, err)
	}

	lines := splitLines(string(buf))
	if seekPos > 0 && len(lines) > 0 {
		lines = lines[1:]
	}
	return last(lines, maxLines), nil
}

// splitLines splits s on '\n', dropping a trailing '\r' from each line and
// the empty element after a final newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// last returns the final n elements of lines, or all of them when fewer.
func last(lines []string, n int) []string {
	if n <= 0 {
		return []string{}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}
