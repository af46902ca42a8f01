package repository

import (
	"time"

	"github.com/google/uuid"
)

// StoredRun represents a simulation run that is persisted to the SQLite database.
type StoredRun struct {
	ID         uuid.UUID
	Controller string
	Dt         float64
	StartedAt  time.Time
}

// StoredValue represents one named output value at one step of a run, e.g. "battery.power".
type StoredValue struct {
	ID    uuid.UUID
	RunID uuid.UUID `gorm:"index"`
	Step  int
	Time  float64
	Name  string `gorm:"index"`
	Value float64
}

// Sample is one point of a recorded column.
type Sample struct {
	Step  int
	Time  float64
	Value float64
}

func newStoredValue(runID uuid.UUID, step int, t float64, name string, value float64) StoredValue {
	return StoredValue{
		ID:    uuid.New(),
		RunID: runID,
		Step:  step,
		Time:  t,
		Name:  name,
		Value: value,
	}
}
