package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rewired-gh/goi/internal/models"
)

// MemoryStore is a thread-safe in-memory raw stat store. When a file path is
// set, Save and Load persist it as a JSON snapshot.
type MemoryStore struct {
	records map[recordKey]models.GameRecord
	version int64
	mu      sync.RWMutex

	filePath        string
	filePermissions os.FileMode
	dirPermissions  os.FileMode
}

type recordKey struct {
	gameID string
	team   string
}

// snapshotFile is the JSON persistence layout.
type snapshotFile struct {
	Version string              `json:"version"`
	SavedAt time.Time           `json:"saved_at"`
	Records []models.GameRecord `json:"records"`
}

const snapshotFormat = "1.0"

// NewMemoryStore creates an empty store. An empty filePath disables Save and
// Load.
func NewMemoryStore(filePath string) *MemoryStore {
	return &MemoryStore{
		records:         make(map[recordKey]models.GameRecord),
		filePath:        filePath,
		filePermissions: 0o644,
		dirPermissions:  0o755,
	}
}

// UpsertRecords validates every record and then replaces or inserts them.
func (m *MemoryStore) UpsertRecords(_ context.Context, records []models.GameRecord) (int, error) {
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return 0, fmt.Errorf("record %d (%s/%s): %w", i, records[i].GameID, records[i].Team, err)
		}
	}
	if len(records) == 0 {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		r.Date = models.Day(r.Date)
		m.records[recordKey{r.GameID, r.Team}] = r
	}
	m.version++
	return len(records), nil
}

// SnapshotVersion returns a counter that changes after every write.
func (m *MemoryStore) SnapshotVersion(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version, nil
}

// Teams returns every team with at least one stored game, sorted.
func (m *MemoryStore) Teams(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	for k := range m.records {
		seen[k.team] = true
	}
	teams := make([]string, 0, len(seen))
	for team := range seen {
		teams = append(teams, team)
	}
	sort.Strings(teams)
	return teams, nil
}

// FetchRecords returns one team's records inside the window, most recent first.
func (m *MemoryStore) FetchRecords(_ context.Context, team string, w models.Window) ([]models.GameRecord, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w.Select(team, m.all()), nil
}

// FetchLeagueRecords returns every team's records inside the window.
func (m *MemoryStore) FetchLeagueRecords(_ context.Context, w models.Window) ([]models.GameRecord, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	var inBounds []models.GameRecord
	for _, r := range m.all() {
		if w.Contains(r.Date) {
			inBounds = append(inBounds, r)
		}
	}
	return selectLeague(w, inBounds), nil
}

func (m *MemoryStore) all() []models.GameRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.GameRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	return out
}

// Close is a no-op; it lets MemoryStore stand in for Store.
func (m *MemoryStore) Close() error { return nil }

// Save writes the store to its file atomically.
func (m *MemoryStore) Save() error {
	if m.filePath == "" {
		return nil
	}

	records := m.all()
	models.SortRecentFirst(records)

	if err := os.MkdirAll(filepath.Dir(m.filePath), m.dirPermissions); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	data, err := json.MarshalIndent(snapshotFile{
		Version: snapshotFormat,
		SavedAt: time.Now(),
		Records: records,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	tempPath := m.filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, m.filePermissions); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tempPath, m.filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// Load replaces the store contents with the file's records. A missing file
// leaves the store empty.
func (m *MemoryStore) Load() error {
	if m.filePath == "" {
		return nil
	}

	// Clean up a temp file left by an interrupted Save.
	tempPath := m.filePath + ".tmp"
	if _, err := os.Stat(tempPath); err == nil {
		_ = os.Remove(tempPath)
	}

	data, err := os.ReadFile(m.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var snap snapshotFile
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to unmarshal records: %w", err)
	}
	if snap.Version != snapshotFormat {
		return fmt.Errorf("unsupported snapshot version %q", snap.Version)
	}

	loaded := make(map[recordKey]models.GameRecord, len(snap.Records))
	for i, r := range snap.Records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("snapshot record %d: %w", i, err)
		}
		r.Date = models.Day(r.Date)
		loaded[recordKey{r.GameID, r.Team}] = r
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = loaded
	m.version++
	return nil
}
