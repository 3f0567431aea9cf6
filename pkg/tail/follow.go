package tail

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Follow calls fn for every complete line appended to path after Follow
// starts. It runs until ctx is cancelled or fn returns an error.
//
// The parent directory is watched rather than the file itself so that a file
// created later, or replaced by log rotation, is picked up. When the file
// shrinks it is treated as truncated and read again from the start.
func Follow(ctx context.Context, path string, fn func(line string) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tail: new watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("tail: watch %q: %w", dir, err)
	}

	f := &follower{path: path, fn: fn}
	if info, err := os.Stat(path); err == nil {
		f.offset = info.Size()
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			switch {
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				f.offset = 0
				f.partial = ""
				continue
			case event.Has(fsnotify.Create):
				f.offset = 0
				f.partial = ""
			case !event.Has(fsnotify.Write):
				continue
			}
			if err := f.drain(); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("tail: watcher error", "path", path, "err", err)
		}
	}
}

type follower struct {
	path    string
	offset  int64
	partial string
	fn      func(string) error
}

// drain reads everything between the last offset and EOF and emits complete
// lines; an unterminated trailing fragment is held until its newline arrives.
func (f *follower) drain() error {
	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("tail: open %q: %w", f.path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("tail: stat %q: %w", f.path, err)
	}
	if info.Size() < f.offset {
		slog.Debug("tail: file truncated, rewinding", "path", f.path)
		f.offset = 0
		f.partial = ""
	}
	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return fmt.Errorf("tail: seek %q: %w", f.path, err)
	}

	r := bufio.NewReader(file)
	for {
		chunk, err := r.ReadString('\n')
		f.offset += int64(len(chunk))
		if strings.HasSuffix(chunk, "\n") {
			line := strings.TrimSuffix(f.partial+chunk, "\n")
			f.partial = ""
			if err := f.fn(strings.TrimSuffix(line, "\r")); err != nil {
				return err
			}
		} else {
			f.partial += chunk
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("tail: read %q: %w", f.path, err)
		}
	}
}
