package dal

import (
	"context"
	"fmt"

	"brightward.com/patients-api/internal/model"
)

// Document is the persisted patient shape: one map per record, scalar
// JSON values only, dates as text. Storage-internal identifiers are
// never part of a Document handed out of this package.
type Document = map[string]any

// Directory is the access-layer contract over the patient store.
// Implementations return ErrStoreUnavailable from every method when the
// underlying store was never connected.
type Directory interface {
	// Create persists a validated record. ErrDuplicateID when the pid
	// already exists.
	Create(ctx context.Context, p *model.Patient) (Document, error)

	// All returns every record; an empty slice is not an error.
	All(ctx context.Context) ([]Document, error)

	// ByID returns the record matching pid, or ErrNotFound.
	ByID(ctx context.Context, pid string) (Document, error)

	// ByName returns every record with exactly the given name; names are
	// not unique and zero matches is a normal result.
	ByName(ctx context.Context, name string) ([]Document, error)

	// SortBy returns all records ordered by the named field. The
	// sortable-field restriction lives at the HTTP boundary; this layer
	// orders by whatever field it is handed.
	SortBy(ctx context.Context, field string, descending bool) ([]Document, error)

	// Update merges the explicitly supplied patch fields into the record
	// matching pid and returns the post-update document. ErrNotFound when
	// nothing matched; ErrNoOpUpdate (with the unchanged document) when
	// the match existed but no value changed.
	Update(ctx context.Context, pid string, patch *model.Patch) (Document, error)

	// Delete removes the record matching pid, or returns ErrNotFound.
	Delete(ctx context.Context, pid string) error

	// NextID derives the next sequential patient identifier from the
	// current stored maximum. Not transactional; see ErrDuplicateID.
	NextID(ctx context.Context) (model.PatientID, error)
}

var (
	_ Directory = (*Store)(nil)
	_ Directory = (*FileStore)(nil)
)

// nextID turns the stored maximum pid into the next identifier. An empty
// maximum means the store holds no records yet and seeds the sequence.
func nextID(maxPID string) (model.PatientID, error) {
	if maxPID == "" {
		return model.SeedPatientID, nil
	}
	id, err := model.ParsePatientID(maxPID)
	if err != nil {
		return model.PatientID{}, fmt.Errorf("stored max pid: %w", err)
	}
	return id.Next(), nil
}
