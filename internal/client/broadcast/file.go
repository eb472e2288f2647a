package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophfeed/internal/logging"
	"github.com/fsnotify/fsnotify"
)

const (
	eventSuffix      = ".evt"
	subscriberBuffer = 16
	// published files older than this are removed on the next Publish
	eventRetention = time.Minute
)

// FileBus publishes each event as a small file in dir and watches dir for
// files written by other processes.
type FileBus struct {
	dir    string
	logger logging.Logger
	now    func() time.Time
}

func NewFileBus(dir string, l logging.Logger) (*FileBus, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("broadcast dir: %w", err)
	}
	return &FileBus{dir: dir, logger: l.With("module", "broadcast"), now: time.Now}, nil
}

func (b *FileBus) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = b.now()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	b.prune(ctx)

	tmp, err := os.CreateTemp(b.dir, ".pending-*")
	if err != nil {
		return fmt.Errorf("broadcast write: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("broadcast write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("broadcast write: %w", err)
	}

	name := fmt.Sprintf("%d-%s%s", e.At.UnixNano(), sanitize(e.Origin), eventSuffix)
	// rename is atomic, so watchers never see a partial file
	if err := os.Rename(tmp.Name(), filepath.Join(b.dir, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("broadcast publish: %w", err)
	}
	return nil
}

func (b *FileBus) Subscribe(ctx context.Context) (<-chan Event, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(b.dir); err != nil {
		_ = w.Close()
		return nil, err
	}

	out := make(chan Event, subscriberBuffer)
	go func() {
		defer close(out)
		defer w.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				b.logger.Warn(ctx, "watch error", "error", err)
			case fe, ok := <-w.Events:
				if !ok {
					return
				}
				if !fe.Has(fsnotify.Create) || !strings.HasSuffix(fe.Name, eventSuffix) {
					continue
				}
				e, err := readEvent(fe.Name)
				if err != nil {
					// pruned before we got to it
					if !errors.Is(err, fs.ErrNotExist) {
						b.logger.Warn(ctx, "unreadable event", "file", fe.Name, "error", err)
					}
					continue
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func readEvent(path string) (Event, error) {
	var e Event
	data, err := os.ReadFile(path)
	if err != nil {
		return e, err
	}
	err = json.Unmarshal(data, &e)
	return e, err
}

func (b *FileBus) prune(ctx context.Context) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return
	}
	cutoff := b.now().Add(-eventRetention)
	for _, de := range entries {
		if !strings.HasSuffix(de.Name(), eventSuffix) {
			continue
		}
		info, err := de.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(b.dir, de.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			b.logger.Debug(ctx, "prune failed", "file", de.Name(), "error", err)
		}
	}
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, s)
}
