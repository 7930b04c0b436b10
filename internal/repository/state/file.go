package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jason790/lamplighter/internal/config"
	domain "github.com/jason790/lamplighter/internal/domain/presence"
)

// FileRepository persists presence records to a JSON document on disk.
// JSON is produced and consumed via protobuf JSON (protojson) over a
// google.protobuf.Struct, the same shape the status API serves.
type FileRepository struct {
	// path is the filesystem location of the JSON state file.
	path string
	// now is the time source for updated_at.
	now func() time.Time
	// mu protects concurrent access to the state file.
	mu sync.Mutex
}

// fileDocument is the on-disk layout of the state file:
// {"subjects": {"<alias>": {"state": "home", "updated_at": "<RFC 3339>"}}}.
type fileDocument struct {
	Subjects map[string]fileRecord
}

type fileRecord struct {
	State     string
	UpdatedAt time.Time
}

const (
	fieldSubjects  = "subjects"
	fieldState     = "state"
	fieldUpdatedAt = "updated_at"
)

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string, opts ...Option) *FileRepository {
	o := newOptions(opts)

	return &FileRepository{
		path: filepath.Clean(path),
		now:  o.now,
	}
}

// EnsureSchema creates the directory holding the state file.
func (r *FileRepository) EnsureSchema(_ context.Context) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o750); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	return nil
}

// Get reads the record of subject from disk.
func (r *FileRepository) Get(_ context.Context, subject string) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read()
	if err != nil {
		return nil, err
	}

	rec, ok := doc.Subjects[subject]
	if !ok {
		return nil, ErrNotFound
	}

	return toRecord(subject, rec)
}

// Set upserts the state of subject and rewrites the document atomically.
func (r *FileRepository) Set(_ context.Context, subject string, state domain.State) (*domain.Record, error) {
	if err := validateSet(subject, state); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read()
	if err != nil {
		return nil, err
	}

	updatedAt := r.now()
	if previous, ok := doc.Subjects[subject]; ok {
		updatedAt = nextTimestamp(updatedAt, previous.UpdatedAt)
	}

	doc.Subjects[subject] = fileRecord{
		State:     string(state),
		UpdatedAt: updatedAt,
	}

	if err = r.write(doc); err != nil {
		return nil, err
	}

	return &domain.Record{
		Subject:   subject,
		State:     state,
		UpdatedAt: updatedAt,
	}, nil
}

// GetAll returns the records of subjects present in the document.
func (r *FileRepository) GetAll(_ context.Context, subjects []string) ([]*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read()
	if err != nil {
		return nil, err
	}

	records := make([]*domain.Record, 0, len(subjects))

	for _, subject := range subjects {
		rec, ok := doc.Subjects[subject]
		if !ok {
			continue
		}

		record, err := toRecord(subject, rec)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, nil
}

// read loads the document; a missing file is an empty document.
func (r *FileRepository) read() (*fileDocument, error) {
	doc := &fileDocument{Subjects: make(map[string]fileRecord)}

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return doc, nil
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var protoDoc structpb.Struct
	if err = protojson.Unmarshal(contents, &protoDoc); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	for subject, value := range protoDoc.GetFields()[fieldSubjects].GetStructValue().GetFields() {
		rec, err := fromProto(value.GetStructValue())
		if err != nil {
			return nil, fmt.Errorf("decode state of %s: %w", subject, err)
		}

		doc.Subjects[subject] = rec
	}

	return doc, nil
}

// write replaces the document through a temporary file so readers never see a partial write.
func (r *FileRepository) write(doc *fileDocument) error {
	var (
		protoDoc       = toProto(doc)
		marshalOptions = protojson.MarshalOptions{
			Multiline: true,
		}
	)

	data, err := marshalOptions.Marshal(protoDoc)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}

func toRecord(subject string, rec fileRecord) (*domain.Record, error) {
	state, err := domain.ParseState(rec.State)
	if err != nil {
		return nil, fmt.Errorf("decode state of %s: %w", subject, err)
	}

	return &domain.Record{
		Subject:   subject,
		State:     state,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// toProto converts the document into a protobuf Struct.
func toProto(doc *fileDocument) *structpb.Struct {
	subjects := make(map[string]*structpb.Value, len(doc.Subjects))

	for subject, rec := range doc.Subjects {
		subjects[subject] = structpb.NewStructValue(&structpb.Struct{
			Fields: map[string]*structpb.Value{
				fieldState:     structpb.NewStringValue(rec.State),
				fieldUpdatedAt: structpb.NewStringValue(rec.UpdatedAt.UTC().Format(time.RFC3339Nano)),
			},
		})
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			fieldSubjects: structpb.NewStructValue(&structpb.Struct{Fields: subjects}),
		},
	}
}

// fromProto converts one subject entry of the protobuf Struct into a record.
func fromProto(entry *structpb.Struct) (fileRecord, error) {
	fields := entry.GetFields()

	updatedAt, err := time.Parse(time.RFC3339Nano, fields[fieldUpdatedAt].GetStringValue())
	if err != nil {
		return fileRecord{}, fmt.Errorf("parse %s: %w", fieldUpdatedAt, err)
	}

	return fileRecord{
		State:     fields[fieldState].GetStringValue(),
		UpdatedAt: updatedAt,
	}, nil
}
