package manifest

import (
	"context"
	"sort"
	"sync"

	"gorm.io/gorm"

	"github.com/tigerroll/helios/pkg/batch/support/util/exception"
)

const module = "manifest"

// Repository stores manifest records. Implementations are safe for
// concurrent use by partition workers.
type Repository interface {
	Save(ctx context.Context, rec *Record) error
	// FindByRun returns the records of a run in insertion order.
	FindByRun(ctx context.Context, runID string) ([]Record, error)
	// CountByRun counts the records of one split of a run.
	CountByRun(ctx context.Context, runID, split string) (int64, error)
}

// GormRepository is a Repository on a gorm connection.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a GormRepository. The schema is expected to be
// in place; see Migrate.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Save inserts rec and sets its ID.
func (r *GormRepository) Save(ctx context.Context, rec *Record) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return exception.NewStorageError(module, "failed to save manifest record "+rec.Name, err)
	}
	return nil
}

// FindByRun implements Repository.
func (r *GormRepository) FindByRun(ctx context.Context, runID string) ([]Record, error) {
	var recs []Record
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).Order("id").Find(&recs).Error; err != nil {
		return nil, exception.NewStorageError(module, "failed to query manifest of run "+runID, err)
	}
	return recs, nil
}

// CountByRun implements Repository.
func (r *GormRepository) CountByRun(ctx context.Context, runID, split string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Record{}).Where("run_id = ? AND split = ?", runID, split).Count(&n).Error; err != nil {
		return 0, exception.NewStorageError(module, "failed to count manifest of run "+runID, err)
	}
	return n, nil
}

// MemoryRepository keeps records in memory.
type MemoryRepository struct {
	mu   sync.Mutex
	recs []Record
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Save implements Repository.
func (r *MemoryRepository) Save(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ID = uint(len(r.recs) + 1)
	r.recs = append(r.recs, *rec)
	return nil
}

// FindByRun implements Repository.
func (r *MemoryRepository) FindByRun(_ context.Context, runID string) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Record
	for _, rec := range r.recs {
		if rec.RunID == runID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CountByRun implements Repository.
func (r *MemoryRepository) CountByRun(_ context.Context, runID, split string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.recs {
		if rec.RunID == runID && rec.Split == split {
			n++
		}
	}
	return n, nil
}

var (
	_ Repository = (*GormRepository)(nil)
	_ Repository = (*MemoryRepository)(nil)
)
