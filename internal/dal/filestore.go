package dal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"brightward.com/patients-api/internal/model"
)

// FileStore is the file-backed Directory variant: a single JSON document
// map keyed by pid. It exists for deployments without a Couchbase
// cluster and carries the same semantics as Store, including the
// error taxonomy. A mutex serializes the read-modify-write cycles; the
// file is the sole owner of persisted state.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore wraps the given path. An empty path means the variant was
// not configured and every call fails with ErrStoreUnavailable.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) load() (map[string]Document, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}

	records := map[string]Document{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.path, err)
		}
	}
	return records, nil
}

func (f *FileStore) save(records map[string]Document) error {
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	if err := os.WriteFile(f.path, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

func (f *FileStore) ready() error {
	if f.path == "" {
		return ErrStoreUnavailable
	}
	return nil
}

// Create persists a validated record under its pid.
func (f *FileStore) Create(ctx context.Context, p *model.Patient) (Document, error) {
	if err := f.ready(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load()
	if err != nil {
		return nil, err
	}
	if _, exists := records[p.PID]; exists {
		log.Warn().Str("pid", p.PID).Msg("Duplicate patient id on insert")
		return nil, fmt.Errorf("insert %s: %w", p.PID, ErrDuplicateID)
	}

	doc := p.Document()
	records[p.PID] = doc
	if err := f.save(records); err != nil {
		return nil, err
	}
	return doc, nil
}

// All returns every record ordered by pid.
func (f *FileStore) All(ctx context.Context) ([]Document, error) {
	if err := f.ready(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load()
	if err != nil {
		return nil, err
	}
	return docsByPID(records), nil
}

// ByID is a point lookup by pid.
func (f *FileStore) ByID(ctx context.Context, pid string) (Document, error) {
	if err := f.ready(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load()
	if err != nil {
		return nil, err
	}
	doc, exists := records[pid]
	if !exists {
		return nil, ErrNotFound
	}
	return doc, nil
}

// ByName returns every record with exactly the given name.
func (f *FileStore) ByName(ctx context.Context, name string) ([]Document, error) {
	if err := f.ready(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load()
	if err != nil {
		return nil, err
	}

	matches := []Document{}
	for _, doc := range docsByPID(records) {
		if doc["name"] == name {
			matches = append(matches, doc)
		}
	}
	return matches, nil
}

// SortBy returns all records ordered by the named field. Numeric values
// compare numerically, everything else as text; records missing the
// field sort last.
func (f *FileStore) SortBy(ctx context.Context, field string, descending bool) ([]Document, error) {
	if err := f.ready(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load()
	if err != nil {
		return nil, err
	}

	docs := docsByPID(records)
	sort.SliceStable(docs, func(i, j int) bool {
		if descending {
			return fieldLess(docs[j][field], docs[i][field])
		}
		return fieldLess(docs[i][field], docs[j][field])
	})
	return docs, nil
}

// Update merges the patch into the stored document, re-derives bmi and
// verdict when the vitals changed, and writes the file back. The no-op
// case skips the write.
func (f *FileStore) Update(ctx context.Context, pid string, patch *model.Patch) (Document, error) {
	if err := f.ready(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load()
	if err != nil {
		return nil, err
	}
	doc, exists := records[pid]
	if !exists {
		return nil, ErrNotFound
	}

	if !patch.Apply(doc) {
		return doc, ErrNoOpUpdate
	}
	model.RecomputeDerived(doc)

	records[pid] = doc
	if err := f.save(records); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes the record matching pid.
func (f *FileStore) Delete(ctx context.Context, pid string) error {
	if err := f.ready(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load()
	if err != nil {
		return err
	}
	if _, exists := records[pid]; !exists {
		return ErrNotFound
	}

	delete(records, pid)
	return f.save(records)
}

// NextID derives the next identifier from the lexically greatest stored
// pid, matching the document store's comparison order.
func (f *FileStore) NextID(ctx context.Context) (model.PatientID, error) {
	if err := f.ready(); err != nil {
		return model.PatientID{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	records, err := f.load()
	if err != nil {
		return model.PatientID{}, err
	}

	maxPID := ""
	for pid := range records {
		if pid > maxPID {
			maxPID = pid
		}
	}
	return nextID(maxPID)
}

func docsByPID(records map[string]Document) []Document {
	pids := make([]string, 0, len(records))
	for pid := range records {
		pids = append(pids, pid)
	}
	sort.Strings(pids)

	docs := make([]Document, 0, len(pids))
	for _, pid := range pids {
		docs = append(docs, records[pid])
	}
	return docs
}

// fieldLess orders document field values: numbers before their numeric
// order, strings by text order, missing values last.
func fieldLess(a, b any) bool {
	af, aNum := a.(float64)
	bf, bNum := b.(float64)
	switch {
	case aNum && bNum:
		return af < bf
	case aNum:
		return true
	case bNum:
		return false
	}

	as, aStr := a.(string)
	bs, bStr := b.(string)
	switch {
	case aStr && bStr:
		return as < bs
	case aStr:
		return true
	default:
		return false
	}
}
