// Package txn owns the single process-wide transaction: the dirty set, the
// durable name of every persisted table, and the commit/abort protocol.
package txn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tuannm99/coldb/internal/catalog"
	"github.com/tuannm99/coldb/internal/colstore"
	"github.com/tuannm99/coldb/internal/dberr"
	"github.com/tuannm99/coldb/internal/persist"
	"github.com/tuannm99/coldb/internal/record"
)

// Store is the durable side of the manager. *persist.Store implements it.
type Store interface {
	Stage(t *colstore.Table) (*persist.Staged, error)
	Publish(st *persist.Staged) error
	Discard(st *persist.Staged)
	Sync() error
	Load(name string) (*colstore.Table, error)
	LoadAll(ctx context.Context) ([]*colstore.Table, error)
	Remove(name string) error
	Cleanup() (int, error)
}

var _ Store = (*persist.Store)(nil)

type State uint8

const (
	NoTransaction State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "none"
}

type Manager struct {
	mu      sync.Mutex
	store   Store
	catalog *catalog.Catalog

	persistence bool
	state       State
	txID        uuid.UUID

	// implicit is set while statements of the current auto-commit run
	// wait to be committed. runKind is the statement kind of that run and
	// runCommitted records that its first mutating statement is durable.
	implicit     bool
	runKind      string
	runCommitted bool

	dirty   map[record.TableID]bool
	durable map[record.TableID]string // table id -> name of its image
}

var _ catalog.Tracker = (*Manager)(nil)

// NewManager wires the manager to cat as its tracker.
func NewManager(store Store, cat *catalog.Catalog) *Manager {
	m := &Manager{
		store:   store,
		catalog: cat,
		dirty:   make(map[record.TableID]bool),
		durable: make(map[record.TableID]string),
	}
	cat.SetTracker(m)
	return m
}

func (m *Manager) SetPersistence(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistence = enabled
	slog.Info("txn.persistence", "enabled", enabled)
}

func (m *Manager) Persistence() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persistence
}

// HasActiveTransaction reports whether an explicit transaction is open.
func (m *Manager) HasActiveTransaction() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == Active
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ID returns the id of the open transaction, or uuid.Nil.
func (m *Manager) ID() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txID
}

// DirtyTables returns the ids of tables changed since the last checkpoint.
func (m *Manager) DirtyTables() []record.TableID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]record.TableID, 0, len(m.dirty))
	for id := range m.dirty {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (m *Manager) MarkDirty(t *colstore.Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty[t.ID()] = true
}

func (m *Manager) MarkDropped(id record.TableID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirty[id] = true
}

func (m *Manager) Begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Active {
		return fmt.Errorf("begin: %w", dberr.ErrTransactionAlreadyActive)
	}
	if m.implicit {
		if err := m.commitLocked(); err != nil {
			return fmt.Errorf("flush pending auto-commit: %w", err)
		}
	}
	m.state = Active
	m.runKind = ""
	m.runCommitted = false
	m.txID = uuid.New()
	slog.Debug("txn.begin", "tx", m.txID)
	return nil
}

func (m *Manager) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Active && !m.implicit {
		return fmt.Errorf("commit: %w", dberr.ErrNoTransactionActive)
	}
	return m.commitLocked()
}

func (m *Manager) Abort() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Active && !m.implicit {
		return fmt.Errorf("abort: %w", dberr.ErrNoTransactionActive)
	}
	return m.abortLocked()
}

// BeforeStatement ends the current auto-commit run when a statement of a
// different kind arrives, committing whatever the run left pending.
func (m *Manager) BeforeStatement(kind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Active || m.runKind == kind {
		return nil
	}
	if m.implicit {
		if err := m.commitLocked(); err != nil {
			return err
		}
	}
	m.runKind = kind
	m.runCommitted = false
	return nil
}

// AfterStatement auto-commits a mutating statement run outside an explicit
// transaction with persistence enabled. The first mutating statement of a run
// is committed before returning; later statements of the same run stay
// pending until the run ends, Flush, Begin or Commit.
func (m *Manager) AfterStatement(kind string, mutated bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !mutated || m.state == Active || !m.persistence {
		return nil
	}
	if m.runKind != kind {
		m.runKind = kind
		m.runCommitted = false
	}
	if !m.implicit {
		m.txID = uuid.New()
	}
	m.implicit = true
	if m.runCommitted {
		return nil
	}
	if err := m.commitLocked(); err != nil {
		return err
	}
	m.runCommitted = true
	return nil
}

// Flush commits a pending auto-commit batch, if any.
func (m *Manager) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.implicit || m.state == Active {
		return nil
	}
	return m.commitLocked()
}

func (m *Manager) reset() {
	clear(m.dirty)
	m.state = NoTransaction
	m.implicit = false
	m.txID = uuid.Nil
}

// commitLocked publishes every dirty table. On a staging error nothing is
// published and the transaction keeps its dirty set.
func (m *Manager) commitLocked() error {
	tx := m.txID
	if !m.persistence {
		slog.Debug("txn.commit.memory", "tx", tx, "dirty", len(m.dirty))
		m.reset()
		return nil
	}

	var (
		live    []*colstore.Table
		dropped []record.TableID
	)
	for id := range m.dirty {
		t, err := m.catalog.Table(id)
		if errors.Is(err, dberr.ErrNoSuchTable) {
			dropped = append(dropped, id)
			continue
		}
		live = append(live, t)
	}

	staged := make([]*persist.Staged, len(live))
	var g errgroup.Group
	for i, t := range live {
		g.Go(func() error {
			st, err := m.store.Stage(t)
			if err != nil {
				return fmt.Errorf("stage %s: %w", t.Name(), err)
			}
			staged[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, st := range staged {
			m.store.Discard(st)
		}
		m.keepFailedTransaction()
		slog.Error("txn.commit.failed", "tx", tx, "err", err)
		return err
	}

	// From here the new images become visible one by one.
	var stale []string
	for i, st := range staged {
		if err := m.store.Publish(st); err != nil {
			for _, rest := range staged[i:] {
				m.store.Discard(rest)
			}
			m.keepFailedTransaction()
			slog.Error("txn.commit.publish_failed", "tx", tx, "table", st.Name, "err", err)
			return err
		}
		t := live[i]
		if old, ok := m.durable[t.ID()]; ok && old != t.Name() {
			stale = append(stale, old)
		}
		m.durable[t.ID()] = t.Name()
	}
	for _, id := range dropped {
		if name, ok := m.durable[id]; ok {
			stale = append(stale, name)
			delete(m.durable, id)
		}
	}
	for _, name := range stale {
		if m.nameInUse(name) {
			continue
		}
		if err := m.store.Remove(name); err != nil {
			return fmt.Errorf("remove stale image %s: %w", name, err)
		}
	}
	if err := m.store.Sync(); err != nil {
		return fmt.Errorf("sync store: %w", err)
	}

	slog.Info("txn.commit.done", "tx", tx, "written", len(live), "removed", len(dropped))
	m.reset()
	return nil
}

// nameInUse reports whether the image name belongs to a persisted table.
func (m *Manager) nameInUse(name string) bool {
	for _, n := range m.durable {
		if n == name {
			return true
		}
	}
	return false
}

// keepFailedTransaction turns a failed auto-commit into an explicit
// transaction so the caller can retry or abort it.
func (m *Manager) keepFailedTransaction() {
	m.state = Active
	m.implicit = false
	m.runKind = ""
	m.runCommitted = false
}

// abortLocked restores the last durable image of every persisted table.
// Tables that were never persisted stay as they are.
func (m *Manager) abortLocked() error {
	tx := m.txID
	// load every image before touching the catalog so a failed read leaves
	// the in-memory state as it was
	images := make([]*colstore.Table, 0, len(m.durable))
	for id, name := range m.durable {
		t, err := m.store.Load(name)
		if err != nil {
			return fmt.Errorf("abort: reload %s: %w", name, err)
		}
		if t.ID() != id {
			return fmt.Errorf("abort: image %s holds table %d, want %d: %w",
				name, t.ID(), id, dberr.ErrCorruptImage)
		}
		images = append(images, t)
	}
	for _, t := range images {
		m.catalog.Install(t)
	}
	slog.Info("txn.abort.done", "tx", tx, "restored", len(images))
	m.reset()
	return nil
}

// Recover removes temp files of an interrupted commit and installs every
// durable image into the catalog. It runs before any statement.
func (m *Manager) Recover(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.store.Cleanup(); err != nil {
		return fmt.Errorf("recover: cleanup: %w", err)
	}
	tables, err := m.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("recover: %w", err)
	}
	for _, t := range tables {
		m.catalog.Install(t)
		m.durable[t.ID()] = t.Name()
	}
	m.reset()
	slog.Info("txn.recover.done", "tables", len(tables))
	return nil
}

// Forget drops every durable name and pending change. Used after the store
// has been wiped.
func (m *Manager) Forget() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.durable)
	m.reset()
	m.runKind = ""
	m.runCommitted = false
}
