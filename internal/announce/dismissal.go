package announce

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alexanderramin/journey/internal/domain"
)

// DefaultRetention is how long a dismissal suppresses an announcement.
const DefaultRetention = 24 * time.Hour

// DismissalStore keeps the client-side suppression set.
type DismissalStore interface {
	Dismiss(id string, at time.Time) error
	// Active returns the ids dismissed within the retention window.
	Active(now time.Time) (map[string]bool, error)
}

func prune(entries []domain.Dismissal, now time.Time, retention time.Duration) []domain.Dismissal {
	kept := entries[:0]
	for _, d := range entries {
		if now.Sub(d.DismissedAt) < retention {
			kept = append(kept, d)
		}
	}
	return kept
}

// FileDismissals persists dismissals as a JSON array on local disk. Expired
// entries are pruned on every read and write.
type FileDismissals struct {
	mu        sync.Mutex
	path      string
	retention time.Duration
}

func NewFileDismissals(path string, retention time.Duration) *FileDismissals {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &FileDismissals{path: path, retention: retention}
}

func (f *FileDismissals) Dismiss(id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return err
	}
	entries = prune(entries, at, f.retention)
	replaced := false
	for i := range entries {
		if entries[i].AnnouncementID == id {
			entries[i].DismissedAt = at
			replaced = true
		}
	}
	if !replaced {
		entries = append(entries, domain.Dismissal{AnnouncementID: id, DismissedAt: at})
	}
	return f.save(entries)
}

func (f *FileDismissals) Active(now time.Time) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.load()
	if err != nil {
		return nil, err
	}
	before := len(entries)
	entries = prune(entries, now, f.retention)
	if len(entries) != before {
		if err := f.save(entries); err != nil {
			return nil, err
		}
	}
	active := make(map[string]bool, len(entries))
	for _, d := range entries {
		active[d.AnnouncementID] = true
	}
	return active, nil
}

// load returns no entries for a missing or unreadable-as-JSON file; a
// corrupt file only loses suppressions.
func (f *FileDismissals) load() ([]domain.Dismissal, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading dismissals: %w", err)
	}
	var entries []domain.Dismissal
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, nil
	}
	return entries, nil
}

func (f *FileDismissals) save(entries []domain.Dismissal) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating dismissal directory: %w", err)
	}
	if entries == nil {
		entries = []domain.Dismissal{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding dismissals: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".dismissals-*")
	if err != nil {
		return fmt.Errorf("creating dismissal temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing dismissals: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing dismissal temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replacing dismissal file: %w", err)
	}
	return nil
}

// MemoryDismissals is an in-process DismissalStore.
type MemoryDismissals struct {
	mu        sync.Mutex
	retention time.Duration
	entries   map[string]time.Time
}

func NewMemoryDismissals(retention time.Duration) *MemoryDismissals {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &MemoryDismissals{retention: retention, entries: make(map[string]time.Time)}
}

func (m *MemoryDismissals) Dismiss(id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = at
	return nil
}

func (m *MemoryDismissals) Active(now time.Time) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	active := make(map[string]bool, len(m.entries))
	for id, at := range m.entries {
		if now.Sub(at) < m.retention {
			active[id] = true
		} else {
			delete(m.entries, id)
		}
	}
	return active, nil
}
