package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tuannm99/coldb/internal/alias/util"
	"github.com/tuannm99/coldb/internal/colstore"
)

const (
	imageSuffix = ".tbl"
	tempMarker  = ".tmp-"
)

// Store keeps one image file per table, <dir>/<name>.tbl.
type Store struct {
	dir  string
	opts []colstore.Option
}

// NewStore creates dir if needed. opts are applied to every loaded table.
func NewStore(dir string, opts ...colstore.Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir, opts: opts}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) string { return filepath.Join(s.dir, name+imageSuffix) }

// Staged is an image written to a temp file and not yet visible.
type Staged struct {
	Name  string
	Size  int
	tmp   string
	final string
}

// Stage encodes t and writes it to a synced temp file next to its final path.
func (s *Store) Stage(t *colstore.Table) (*Staged, error) {
	data, err := Encode(t.Image())
	if err != nil {
		return nil, err
	}
	final := s.path(t.Name())

	tmp, err := os.CreateTemp(s.dir, filepath.Base(final)+tempMarker+"*")
	if err != nil {
		return nil, err
	}
	tmpName := tmp.Name()

	ok := false
	defer func() {
		_ = tmp.Close()
		if !ok {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return nil, err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return nil, err
	}
	if err := tmp.Sync(); err != nil {
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	ok = true
	return &Staged{Name: t.Name(), Size: len(data), tmp: tmpName, final: final}, nil
}

// Publish atomically replaces the table's image with the staged one.
func (s *Store) Publish(st *Staged) error {
	if err := os.Rename(st.tmp, st.final); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	slog.Debug("persist.image.published", "table", st.Name, "bytes", st.Size)
	return nil
}

// Discard removes a staged temp file that will not be published.
func (s *Store) Discard(st *Staged) {
	if st == nil {
		return
	}
	if err := os.Remove(st.tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("persist.discard.failed", "path", st.tmp, "err", err)
	}
}

// Sync makes completed renames and removals in the store durable.
func (s *Store) Sync() error { return util.SyncDir(s.dir) }

// Save stages and publishes a single table.
func (s *Store) Save(t *colstore.Table) error {
	st, err := s.Stage(t)
	if err != nil {
		return err
	}
	if err := s.Publish(st); err != nil {
		s.Discard(st)
		return err
	}
	return s.Sync()
}

// Load reads and decodes the image of one table.
func (s *Store) Load(name string) (*colstore.Table, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return nil, err
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return colstore.FromImage(img, s.opts...)
}

// Names lists the tables that have an image, sorted.
func (s *Store) Names() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.IsDir() || !strings.HasSuffix(n, imageSuffix) || strings.Contains(n, tempMarker) {
			continue
		}
		names = append(names, strings.TrimSuffix(n, imageSuffix))
	}
	sort.Strings(names)
	return names, nil
}

// LoadAll decodes every image in parallel. Tables are returned in name order.
func (s *Store) LoadAll(ctx context.Context) ([]*colstore.Table, error) {
	names, err := s.Names()
	if err != nil {
		return nil, err
	}
	out := make([]*colstore.Table, len(names))
	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := s.Load(name)
			if err != nil {
				return err
			}
			out[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// Remove deletes a table's image; a missing image is not an error.
func (s *Store) Remove(name string) error {
	if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// RemoveAll deletes every image and leftover temp file.
func (s *Store) RemoveAll() error {
	names, err := s.Names()
	if err != nil {
		return err
	}
	for _, n := range names {
		if err := s.Remove(n); err != nil {
			return err
		}
	}
	if _, err := s.Cleanup(); err != nil {
		return err
	}
	slog.Info("persist.store.cleared", "dir", s.dir, "tables", len(names))
	return s.Sync()
}

// Cleanup removes temp files left behind by an interrupted commit.
func (s *Store) Cleanup() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), imageSuffix+tempMarker) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		slog.Info("persist.cleanup", "dir", s.dir, "removed", n)
	}
	return n, nil
}
