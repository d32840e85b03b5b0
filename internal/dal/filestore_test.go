package dal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brightward.com/patients-api/internal/model"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "patients.json"))
}

func newTestPatient(t *testing.T, pid, name string, height, weight float64) *model.Patient {
	t.Helper()
	p, err := model.NewPatient(model.PatientInput{
		Name:   name,
		City:   "Mumbai",
		Age:    30,
		Gender: "male",
		Height: height,
		Weight: weight,
		PID:    pid,
	}, time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	return p
}

func TestFileStoreCreateGetRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := newTestPatient(t, "P001", "John Doe", 1.75, 70)
	p.DateOfDischarge = "2025-04-01"

	created, err := store.Create(ctx, p)
	require.NoError(t, err)

	got, err := store.ByID(ctx, "P001")
	require.NoError(t, err)

	assert.Equal(t, created, got)
	// Dates come back as plain text.
	assert.Equal(t, "2025-04-01", got["date_of_discharge"])
	assert.Equal(t, "2025-03-14T10:30:00Z", got["date_of_admission"])
	assert.Equal(t, 22.86, got["bmi"])
	assert.Equal(t, "Normal Weight", got["verdict"])
}

func TestFileStoreDuplicateID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, newTestPatient(t, "P001", "John Doe", 1.75, 70))
	require.NoError(t, err)

	_, err = store.Create(ctx, newTestPatient(t, "P001", "Jane Doe", 1.60, 55))
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestFileStoreByIDNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ByID(context.Background(), "P404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	docs, err := store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = store.Create(ctx, newTestPatient(t, "P002", "Jane Doe", 1.60, 55))
	require.NoError(t, err)
	_, err = store.Create(ctx, newTestPatient(t, "P001", "John Doe", 1.75, 70))
	require.NoError(t, err)

	docs, err = store.All(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "P001", docs[0]["pid"])
	assert.Equal(t, "P002", docs[1]["pid"])
}

func TestFileStoreByName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, newTestPatient(t, "P001", "John Doe", 1.75, 70))
	require.NoError(t, err)
	_, err = store.Create(ctx, newTestPatient(t, "P002", "John Doe", 1.80, 80))
	require.NoError(t, err)
	_, err = store.Create(ctx, newTestPatient(t, "P003", "Jane Doe", 1.60, 55))
	require.NoError(t, err)

	docs, err := store.ByName(ctx, "John Doe")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	docs, err = store.ByName(ctx, "Nobody")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFileStoreSortByBMIDescending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// BMIs: 18.0, 30.1, 16.5
	_, err := store.Create(ctx, newTestPatient(t, "P001", "A", 2.0, 72))
	require.NoError(t, err)
	_, err = store.Create(ctx, newTestPatient(t, "P002", "B", 2.0, 120.4))
	require.NoError(t, err)
	_, err = store.Create(ctx, newTestPatient(t, "P003", "C", 2.0, 66))
	require.NoError(t, err)

	docs, err := store.SortBy(ctx, "bmi", true)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, 30.1, docs[0]["bmi"])
	assert.Equal(t, 18.0, docs[1]["bmi"])
	assert.Equal(t, 16.5, docs[2]["bmi"])

	docs, err = store.SortBy(ctx, "bmi", false)
	require.NoError(t, err)
	assert.Equal(t, 16.5, docs[0]["bmi"])
}

func TestFileStoreUpdateSingleField(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, newTestPatient(t, "P001", "John Doe", 1.75, 70))
	require.NoError(t, err)

	_, patch, err := model.ParsePatch([]byte(`{"city": "Pune"}`))
	require.NoError(t, err)

	doc, err := store.Update(ctx, "P001", patch)
	require.NoError(t, err)

	assert.Equal(t, "Pune", doc["city"])
	assert.Equal(t, "John Doe", doc["name"])
	assert.Equal(t, 22.86, doc["bmi"])

	// The change survives a re-read.
	got, err := store.ByID(ctx, "P001")
	require.NoError(t, err)
	assert.Equal(t, "Pune", got["city"])
}

func TestFileStoreUpdateRederivesVitals(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, newTestPatient(t, "P001", "John Doe", 1.75, 70))
	require.NoError(t, err)

	_, patch, err := model.ParsePatch([]byte(`{"weight": 95}`))
	require.NoError(t, err)

	doc, err := store.Update(ctx, "P001", patch)
	require.NoError(t, err)
	assert.Equal(t, 31.02, doc["bmi"])
	assert.Equal(t, "Moderately Obese", doc["verdict"])
}

func TestFileStoreUpdateNotFound(t *testing.T) {
	store := newTestStore(t)

	_, patch, err := model.ParsePatch([]byte(`{"city": "Pune"}`))
	require.NoError(t, err)

	_, err = store.Update(context.Background(), "P404", patch)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreUpdateNoOp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, newTestPatient(t, "P001", "John Doe", 1.75, 70))
	require.NoError(t, err)

	_, patch, err := model.ParsePatch([]byte(`{"city": "Mumbai"}`))
	require.NoError(t, err)

	doc, err := store.Update(ctx, "P001", patch)
	assert.ErrorIs(t, err, ErrNoOpUpdate)
	// The unchanged record still comes back.
	assert.Equal(t, "Mumbai", doc["city"])
}

func TestFileStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, newTestPatient(t, "P001", "John Doe", 1.75, 70))
	require.NoError(t, err)

	assert.ErrorIs(t, store.Delete(ctx, "P404"), ErrNotFound)

	require.NoError(t, store.Delete(ctx, "P001"))
	_, err = store.ByID(ctx, "P001")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreNextID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "P001", id.String())

	_, err = store.Create(ctx, newTestPatient(t, "P007", "John Doe", 1.75, 70))
	require.NoError(t, err)

	id, err = store.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "P008", id.String())
}

func TestUnconfiguredFileStoreIsUnavailable(t *testing.T) {
	store := NewFileStore("")
	ctx := context.Background()

	_, err := store.All(ctx)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = store.ByID(ctx, "P001")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	_, err = store.NextID(ctx)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete(ctx, "P001"), ErrStoreUnavailable)
}
