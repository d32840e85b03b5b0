package dal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog/log"

	"brightward.com/patients-api/internal/model"
)

// Connection wraps the process-wide Couchbase handle. It is established
// once at startup and read-only afterwards; request handling never
// reassigns it.
type Connection struct {
	cluster        *gocb.Cluster
	bucket         *gocb.Bucket
	bucketName     string
	collectionName string
}

// ConnectOptions carries the store configuration resolved from the
// environment.
type ConnectOptions struct {
	URL        string
	Username   string
	Password   string
	Bucket     string
	Collection string
}

// Connect establishes the Couchbase connection with a short readiness
// timeout. Failure here leaves the service running with an unavailable
// store rather than terminating the process.
func Connect(opts ConnectOptions) (*Connection, error) {
	log.Info().
		Str("url", opts.URL).
		Str("bucket", opts.Bucket).
		Str("collection", opts.Collection).
		Msg("Connecting to Couchbase")

	cluster, err := gocb.Connect(opts.URL, gocb.ClusterOptions{
		Authenticator: gocb.PasswordAuthenticator{Username: opts.Username, Password: opts.Password},
	})
	if err != nil {
		return nil, fmt.Errorf("connect cluster: %w", err)
	}

	bucket := cluster.Bucket(opts.Bucket)
	err = bucket.WaitUntilReady(3*time.Second, &gocb.WaitUntilReadyOptions{
		ServiceTypes: []gocb.ServiceType{gocb.ServiceTypeKeyValue, gocb.ServiceTypeQuery},
	})
	if err != nil {
		return nil, fmt.Errorf("bucket not ready: %w", err)
	}

	log.Info().Msg("Couchbase connection established")
	return &Connection{
		cluster:        cluster,
		bucket:         bucket,
		bucketName:     opts.Bucket,
		collectionName: opts.Collection,
	}, nil
}

// Close closes the Couchbase connection.
func (c *Connection) Close() error {
	if c != nil && c.cluster != nil {
		return c.cluster.Close(nil)
	}
	return nil
}

// Store is the Couchbase-backed Directory. Records live one document per
// patient, keyed by pid, in the configured collection of the default
// scope.
type Store struct {
	conn *Connection
}

// NewStore wraps a connection handle. conn may be nil when startup could
// not establish the store; every call then fails with
// ErrStoreUnavailable instead of crashing.
func NewStore(conn *Connection) *Store {
	return &Store{conn: conn}
}

func (s *Store) ready() error {
	if s.conn == nil {
		return ErrStoreUnavailable
	}
	return nil
}

func (s *Store) collection() *gocb.Collection {
	return s.conn.bucket.Scope("_default").Collection(s.conn.collectionName)
}

func (s *Store) keyspace() string {
	return fmt.Sprintf("`%s`.`_default`.`%s`", s.conn.bucketName, s.conn.collectionName)
}

// Create persists a validated record under its pid. Dates are already
// canonical text by the time the document is built.
func (s *Store) Create(ctx context.Context, p *model.Patient) (Document, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	doc := p.Document()
	_, err := s.collection().Insert(p.PID, doc, &gocb.InsertOptions{Context: ctx})
	if errors.Is(err, gocb.ErrDocumentExists) {
		log.Warn().Str("pid", p.PID).Msg("Duplicate patient id on insert")
		return nil, fmt.Errorf("insert %s: %w", p.PID, ErrDuplicateID)
	}
	if err != nil {
		log.Error().Err(err).Str("pid", p.PID).Msg("Failed to insert patient record")
		return nil, fmt.Errorf("insert %s: %w", p.PID, err)
	}

	log.Debug().Str("pid", p.PID).Msg("Patient record inserted")
	return doc, nil
}

// All returns every record. The document key is the only storage-side
// identifier and is never projected into results.
func (s *Store) All(ctx context.Context) ([]Document, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT p.* FROM %s AS p ORDER BY p.`pid`", s.keyspace())
	return s.queryDocuments(ctx, query, nil)
}

// ByID is a point lookup by pid.
func (s *Store) ByID(ctx context.Context, pid string) (Document, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	result, err := s.collection().Get(pid, &gocb.GetOptions{Context: ctx})
	if errors.Is(err, gocb.ErrDocumentNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		log.Error().Err(err).Str("pid", pid).Msg("Failed to get patient record")
		return nil, fmt.Errorf("get %s: %w", pid, err)
	}

	var doc Document
	if err := result.Content(&doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", pid, err)
	}
	return doc, nil
}

// ByName returns every record with exactly the given name.
func (s *Store) ByName(ctx context.Context, name string) ([]Document, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT p.* FROM %s AS p WHERE p.`name` = $name ORDER BY p.`pid`", s.keyspace())
	return s.queryDocuments(ctx, query, map[string]any{"name": name})
}

// SortBy returns all records ordered by the named field. Field names
// reaching this layer have already passed the boundary's sortable-set
// check when they came from a request.
func (s *Store) SortBy(ctx context.Context, field string, descending bool) ([]Document, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	direction := "ASC"
	if descending {
		direction = "DESC"
	}
	query := fmt.Sprintf("SELECT p.* FROM %s AS p ORDER BY p.`%s` %s", s.keyspace(), field, direction)
	return s.queryDocuments(ctx, query, nil)
}

// Update merges the patch into the stored document, re-derives bmi and
// verdict when the vitals changed, and replaces the document. The no-op
// case skips the write entirely.
func (s *Store) Update(ctx context.Context, pid string, patch *model.Patch) (Document, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	doc, err := s.ByID(ctx, pid)
	if err != nil {
		return nil, err
	}

	if !patch.Apply(doc) {
		return doc, ErrNoOpUpdate
	}
	model.RecomputeDerived(doc)

	_, err = s.collection().Replace(pid, doc, &gocb.ReplaceOptions{Context: ctx})
	if errors.Is(err, gocb.ErrDocumentNotFound) {
		// Deleted between read and replace.
		return nil, ErrNotFound
	}
	if err != nil {
		log.Error().Err(err).Str("pid", pid).Msg("Failed to replace patient record")
		return nil, fmt.Errorf("replace %s: %w", pid, err)
	}

	log.Debug().Str("pid", pid).Msg("Patient record updated")
	return doc, nil
}

// Delete removes the record matching pid.
func (s *Store) Delete(ctx context.Context, pid string) error {
	if err := s.ready(); err != nil {
		return err
	}

	_, err := s.collection().Remove(pid, &gocb.RemoveOptions{Context: ctx})
	if errors.Is(err, gocb.ErrDocumentNotFound) {
		return ErrNotFound
	}
	if err != nil {
		log.Error().Err(err).Str("pid", pid).Msg("Failed to delete patient record")
		return fmt.Errorf("remove %s: %w", pid, err)
	}

	log.Debug().Str("pid", pid).Msg("Patient record deleted")
	return nil
}

// NextID reads the current maximum pid and derives the next identifier.
// Read-then-increment is not transactional; a concurrent create can win
// the race and the later insert fails with ErrDuplicateID.
func (s *Store) NextID(ctx context.Context) (model.PatientID, error) {
	if err := s.ready(); err != nil {
		return model.PatientID{}, err
	}

	query := fmt.Sprintf("SELECT MAX(p.`pid`) AS max_pid FROM %s AS p", s.keyspace())
	rows, err := s.conn.cluster.Query(query, &gocb.QueryOptions{Context: ctx})
	if err != nil {
		log.Error().Err(err).Msg("Failed to query max pid")
		return model.PatientID{}, fmt.Errorf("query max pid: %w", err)
	}
	defer rows.Close()

	var row struct {
		MaxPID *string `json:"max_pid"`
	}
	if rows.Next() {
		if err := rows.Row(&row); err != nil {
			return model.PatientID{}, fmt.Errorf("decode max pid: %w", err)
		}
	}

	maxPID := ""
	if row.MaxPID != nil {
		maxPID = *row.MaxPID
	}
	return nextID(maxPID)
}

func (s *Store) queryDocuments(ctx context.Context, query string, params map[string]any) ([]Document, error) {
	opts := &gocb.QueryOptions{Context: ctx}
	if params != nil {
		opts.NamedParameters = params
	}

	rows, err := s.conn.cluster.Query(query, opts)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("Query failed")
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var doc Document
		if err := rows.Row(&doc); err != nil {
			log.Warn().Err(err).Msg("Failed to decode query row")
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
