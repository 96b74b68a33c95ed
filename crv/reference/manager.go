package reference

import (
	"sync"

	"github.com/howeyc/fsnotify"
	"github.com/sirupsen/logrus"
)

// Manager owns the current reference Snapshot and swaps it on refresh.
// Validation batches call Current once and keep the returned snapshot; the
// swap never mutates a snapshot already handed out.
type Manager struct {
	tomlPath string
	csvPath  string
	logger   logrus.FieldLogger

	mu   sync.RWMutex
	snap *Snapshot

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewManager performs the initial load. A load failure at startup is fatal to
// the caller; there is no snapshot to fall back to yet.
func NewManager(tomlPath, csvPath string, logger logrus.FieldLogger) (*Manager, error) {
	snap, err := Load(tomlPath, csvPath)
	if err != nil {
		return nil, err
	}
	return &Manager{
		tomlPath: tomlPath,
		csvPath:  csvPath,
		logger:   logger,
		snap:     snap,
	}, nil
}

// NewManagerFromSnapshot wraps an already-built snapshot. Useful when the
// reference data does not live on disk; Refresh and Watch are not supported.
func NewManagerFromSnapshot(snap *Snapshot, logger logrus.FieldLogger) *Manager {
	return &Manager{logger: logger, snap: snap}
}

// Current returns the active snapshot.
func (m *Manager) Current() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// Refresh reloads the reference files. On failure the previous snapshot stays
// active so a bad edit never takes the validator down.
func (m *Manager) Refresh() error {
	snap, err := Load(m.tomlPath, m.csvPath)
	if err != nil {
		m.logger.Errorf("Reference refresh failed, keeping previous snapshot: %s", err.Error())
		return err
	}

	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()

	m.logger.Info("Reference snapshot refreshed.")
	return nil
}

// Watch refreshes the snapshot whenever a reference file is rewritten.
func (m *Manager) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Watch(m.tomlPath); err != nil {
		_ = watcher.Close()
		return err
	}
	if m.csvPath != "" {
		if err := watcher.Watch(m.csvPath); err != nil {
			_ = watcher.Close()
			return err
		}
	}

	m.watcher = watcher
	m.done = make(chan struct{})

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Event:
				if !ok {
					return
				}
				if ev.IsModify() || ev.IsCreate() {
					m.logger.Infof("Reference file %s changed; reloading.", ev.Name)
					_ = m.Refresh()
				}
			case err, ok := <-watcher.Error:
				if !ok {
					return
				}
				m.logger.Errorf("Reference watcher error: %s", err.Error())
			case <-m.done:
				return
			}
		}
	}()

	return nil
}

// Close stops the watcher if one is running.
func (m *Manager) Close() error {
	if m.done != nil {
		close(m.done)
		m.done = nil
	}
	if m.watcher != nil {
		err := m.watcher.Close()
		m.watcher = nil
		return err
	}
	return nil
}
