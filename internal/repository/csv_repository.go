package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v6"
	"github.com/google/uuid"
	"github.com/lewtec/apontador/internal/csvio"
	"github.com/lewtec/apontador/internal/domain"
)

var raterIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)

const (
	csvFilePrefix = "clicks_"
	csvFileSuffix = ".csv"
)

// CSVRepository implements domain.AnnotationRepository with one CSV file per rater.
// Every write rewrites the rater's whole file through a temporary file and a rename.
type CSVRepository struct {
	fs billy.Filesystem
	mu sync.Mutex
}

// NewCSVRepository creates a CSVRepository storing files at the root of fs
func NewCSVRepository(fs billy.Filesystem) *CSVRepository {
	return &CSVRepository{fs: fs}
}

// Filename returns the file a rater's annotations are kept in
func (r *CSVRepository) Filename(raterID string) (string, error) {
	if !raterIDPattern.MatchString(raterID) {
		return "", fmt.Errorf("invalid rater id '%s'", raterID)
	}
	return csvFilePrefix + raterID + csvFileSuffix, nil
}

// List retrieves all annotations of a rater in file order
func (r *CSVRepository) List(ctx context.Context, raterID string) ([]domain.Annotation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(raterID)
}

// Upsert overwrites the row of the item in place or appends a new one
func (r *CSVRepository) Upsert(ctx context.Context, raterID string, itemID string, x, y int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	anns, err := r.load(raterID)
	if err != nil {
		return err
	}
	found := false
	for i := range anns {
		if anns[i].ItemID == itemID {
			anns[i].X, anns[i].Y = x, y
			found = true
		}
	}
	if !found {
		anns = append(anns, domain.Annotation{RaterID: raterID, ItemID: itemID, X: x, Y: y})
	}
	return r.save(raterID, anns)
}

// Delete removes the row of an item
func (r *CSVRepository) Delete(ctx context.Context, raterID string, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	anns, err := r.load(raterID)
	if err != nil {
		return err
	}
	kept := anns[:0]
	for _, ann := range anns {
		if ann.ItemID != itemID {
			kept = append(kept, ann)
		}
	}
	return r.save(raterID, kept)
}

// DeleteAll leaves the rater with an empty table
func (r *CSVRepository) DeleteAll(ctx context.Context, raterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save(raterID, nil)
}

// Raters lists raters whose file has at least one row
func (r *CSVRepository) Raters(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids, err := r.raterFiles()
	if err != nil {
		return nil, err
	}
	var result []string
	for _, rater := range ids {
		anns, err := r.load(rater)
		if err != nil {
			return nil, err
		}
		if len(anns) > 0 {
			result = append(result, rater)
		}
	}
	return result, nil
}

// RaterFiles lists the raters that have a file, without reading it. File names that
// don't hold a valid rater id are left out.
func (r *CSVRepository) RaterFiles(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.raterFiles()
}

// Read decodes a rater's file keeping every row that parses. Rows that don't are
// returned apart, so one bad row doesn't hide the rest of the file.
func (r *CSVRepository) Read(ctx context.Context, raterID string) ([]domain.Record, []*domain.MalformedRecordError, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, records, malformed, err := r.decode(raterID)
	return records, malformed, err
}

func (r *CSVRepository) raterFiles() ([]string, error) {
	entries, err := r.fs.ReadDir("/")
	if err != nil {
		return nil, err
	}
	var result []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, csvFilePrefix) || !strings.HasSuffix(name, csvFileSuffix) {
			continue
		}
		rater := strings.TrimSuffix(strings.TrimPrefix(name, csvFilePrefix), csvFileSuffix)
		if raterIDPattern.MatchString(rater) {
			result = append(result, rater)
		}
	}
	sort.Strings(result)
	return result, nil
}

func (r *CSVRepository) decode(raterID string) (string, []domain.Record, []*domain.MalformedRecordError, error) {
	filename, err := r.Filename(raterID)
	if err != nil {
		return "", nil, nil, err
	}
	f, err := r.fs.Open(filename)
	if errors.Is(err, os.ErrNotExist) {
		return filename, nil, nil, nil
	}
	if err != nil {
		return filename, nil, nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return filename, nil, nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return filename, nil, nil, nil
	}
	records, malformed, err := csvio.Decode(bytes.NewReader(data))
	if err != nil {
		return filename, nil, nil, fmt.Errorf("while reading '%s': %w", filename, err)
	}
	return filename, records, malformed, nil
}

func (r *CSVRepository) load(raterID string) ([]domain.Annotation, error) {
	filename, records, malformed, err := r.decode(raterID)
	if err != nil {
		return nil, err
	}
	if len(malformed) > 0 {
		return nil, fmt.Errorf("while reading '%s': %w", filename, malformed[0])
	}
	anns := make([]domain.Annotation, 0, len(records))
	position := make(map[string]int, len(records))
	for _, rec := range records {
		if i, ok := position[rec.ItemID]; ok {
			// a repeated name keeps its first position with the latest values
			anns[i].X, anns[i].Y = rec.X, rec.Y
			continue
		}
		position[rec.ItemID] = len(anns)
		anns = append(anns, domain.Annotation{RaterID: raterID, ItemID: rec.ItemID, X: rec.X, Y: rec.Y})
	}
	return anns, nil
}

func (r *CSVRepository) save(raterID string, anns []domain.Annotation) error {
	filename, err := r.Filename(raterID)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := csvio.Encode(&buf, anns); err != nil {
		return err
	}
	tempFile := fmt.Sprintf(".%s.%s.tmp", filename, uuid.New())
	f, err := r.fs.Create(tempFile)
	if err != nil {
		return err
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		r.fs.Remove(tempFile)
		return err
	}
	if err := f.Close(); err != nil {
		r.fs.Remove(tempFile)
		return err
	}
	if err := r.fs.Rename(tempFile, filename); err != nil {
		r.fs.Remove(tempFile)
		return err
	}
	return nil
}

// Verify that CSVRepository implements domain.AnnotationRepository
var _ domain.AnnotationRepository = (*CSVRepository)(nil)
