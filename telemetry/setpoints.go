package telemetry

import (
	"errors"
	"fmt"
	"sort"
)

// Setpoint keys produced by the controllers
const (
	KeyBatteryPowerSetpoint  = "power_setpoint"
	KeyWindPowerSetpoints    = "wind_power_setpoints"
	KeySolarPowerSetpoint    = "solar_power_setpoint"
	KeyHydrogenPowerSetpoint = "hydrogen_power_setpoint"
)

// PowerSetpointDefault is the setpoint given to wind turbines and solar farms that have not been commanded, it is large
// enough to leave them unconstrained.
const PowerSetpointDefault = 1e9

// ErrSetpointCollision is returned when two partial results carry the same key.
var ErrSetpointCollision = errors.New("setpoint collision")

// SetpointCollisionError names the key that was produced twice.
type SetpointCollisionError struct {
	Key string
}

func (err SetpointCollisionError) Error() string {
	return fmt.Sprintf("setpoint %q produced by more than one controller", err.Key)
}

func (err SetpointCollisionError) Unwrap() error {
	return ErrSetpointCollision
}

// Setpoint is a commanded value, either a single scalar or an ordered vector (e.g. one value per turbine).
type Setpoint struct {
	values []float64
	vector bool
}

// Scalar returns a single-valued setpoint.
func Scalar(v float64) Setpoint {
	return Setpoint{values: []float64{v}}
}

// Vector returns a vector setpoint holding a copy of the given values.
func Vector(values []float64) Setpoint {
	return Setpoint{values: append([]float64{}, values...), vector: true}
}

// IsVector reports whether the setpoint was created with Vector.
func (s Setpoint) IsVector() bool {
	return s.vector
}

// Len returns the number of values held.
func (s Setpoint) Len() int {
	return len(s.values)
}

// Value returns the scalar value, or the first element of a vector. Zero is returned for an empty setpoint.
func (s Setpoint) Value() float64 {
	if len(s.values) == 0 {
		return 0
	}
	return s.values[0]
}

// Values returns a copy of the held values.
func (s Setpoint) Values() []float64 {
	return append([]float64{}, s.values...)
}

// Setpoints maps a control name to its commanded value. Which keys are present depends on the active controllers.
type Setpoints map[string]Setpoint

// Merge adds every entry of `other` into `s`. Nothing is added if any key already exists in `s`.
func (s Setpoints) Merge(other Setpoints) error {
	for _, k := range other.Keys() {
		if _, exists := s[k]; exists {
			return SetpointCollisionError{Key: k}
		}
	}
	for k, v := range other {
		s[k] = v
	}
	return nil
}

// Keys returns the keys in sorted order.
func (s Setpoints) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Float64 returns the scalar value for `key` and whether it was present.
func (s Setpoints) Float64(key string) (float64, bool) {
	sp, ok := s[key]
	if !ok {
		return 0, false
	}
	return sp.Value(), true
}
