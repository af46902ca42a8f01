package repository

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository stores simulation outputs to the local file system (sqlite), one row per recorded value.
type Repository struct {
	db *gorm.DB
}

func New(path string) (*Repository, error) {

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Migrate the schema
	err = db.AutoMigrate(&StoredRun{}, &StoredValue{})
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Repository{
		db: db,
	}, nil
}

// StartRun records a new simulation run and returns its ID.
func (r *Repository) StartRun(controller string, dt float64) (uuid.UUID, error) {
	run := StoredRun{
		ID:         uuid.New(),
		Controller: controller,
		Dt:         dt,
		StartedAt:  time.Now(),
	}
	result := r.db.Create(&run)
	if result.Error != nil {
		return uuid.Nil, result.Error
	}
	return run.ID, nil
}

// GetRun returns the run with the given ID.
func (r *Repository) GetRun(runID uuid.UUID) (StoredRun, error) {
	var run StoredRun
	result := r.db.First(&run, "id = ?", runID)
	if result.Error != nil {
		return StoredRun{}, result.Error
	}
	return run, nil
}

// AddStep stores the named values recorded at one step of a run. NaN values are not stored.
func (r *Repository) AddStep(runID uuid.UUID, step int, t float64, values map[string]float64) error {
	names := make([]string, 0, len(values))
	for name, v := range values {
		if math.IsNaN(v) {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return nil
	}
	sort.Strings(names)

	rows := make([]StoredValue, 0, len(names))
	for _, name := range names {
		rows = append(rows, newStoredValue(runID, step, t, name, values[name]))
	}

	result := r.db.Create(&rows)
	return result.Error
}

// Column returns every sample of the named value in a run, in step order.
func (r *Repository) Column(runID uuid.UUID, name string) ([]Sample, error) {
	var rows []StoredValue

	result := r.db.Where("run_id = ? AND name = ?", runID, name).Order("step asc").Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	samples := make([]Sample, 0, len(rows))
	for _, row := range rows {
		samples = append(samples, Sample{Step: row.Step, Time: row.Time, Value: row.Value})
	}
	return samples, nil
}

// Columns returns the names of the values recorded in a run, sorted.
func (r *Repository) Columns(runID uuid.UUID) ([]string, error) {
	var names []string

	result := r.db.Model(&StoredValue{}).Where("run_id = ?", runID).Distinct("name").Order("name asc").Pluck("name", &names)
	if result.Error != nil {
		return nil, result.Error
	}
	return names, nil
}

// DeleteRun removes a run and all of its values.
func (r *Repository) DeleteRun(runID uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("run_id = ?", runID).Delete(&StoredValue{})
		if result.Error != nil {
			return result.Error
		}
		return tx.Delete(&StoredRun{}, "id = ?", runID).Error
	})
}
