package telemetry

import (
	"errors"
	"fmt"
)

// ErrMissingMeasurement is returned when a controller needs a measurement that the snapshot does not carry.
var ErrMissingMeasurement = errors.New("missing measurement")

// WindFarm holds the wind farm slice of a measurement snapshot
type WindFarm struct {
	TurbinePowers  []float64
	WindDirections []float64
	PowerReference *float64
}

// SolarFarm holds the solar farm slice of a measurement snapshot
type SolarFarm struct {
	Power                  float64
	DirectNormalIrradiance float64
	AngleOfIncidence       float64
	PowerReference         *float64
}

// Battery holds the battery slice of a measurement snapshot. Positive power is discharging, negative is charging.
type Battery struct {
	Power          float64
	StateOfCharge  float64 // fraction in [0,1]
	PowerReference *float64
}

// Hydrogen holds the electrolyzer slice of a measurement snapshot
type Hydrogen struct {
	ProductionRate float64
	PowerReference *float64 // hydrogen production reference
}

// Measurements is the per-step snapshot produced by an interface adapter. Assets that are not part of the plant are nil.
type Measurements struct {
	Time float64

	WindFarm  *WindFarm
	SolarFarm *SolarFarm
	Battery   *Battery
	Hydrogen  *Hydrogen

	PlantPowerReference *float64

	// Price signals, see PriceSignal for how the two layouts are resolved.
	RealTimeLMP    *float64
	DayAheadLMP    []float64 // hourly, index is hour of day
	ChargePrice    *float64
	DischargePrice *float64

	Forecast   map[string]float64
	TotalPower float64
}

// WindPower returns the summed turbine power, or zero if there is no wind farm.
func (m Measurements) WindPower() float64 {
	if m.WindFarm == nil {
		return 0
	}
	total := 0.0
	for _, p := range m.WindFarm.TurbinePowers {
		total += p
	}
	return total
}

// SolarPower returns the solar farm power, or zero if there is no solar farm.
func (m Measurements) SolarPower() float64 {
	if m.SolarFarm == nil {
		return 0
	}
	return m.SolarFarm.Power
}

// RequireBattery returns the battery measurements or an error if they are absent.
func (m Measurements) RequireBattery() (*Battery, error) {
	if m.Battery == nil {
		return nil, fmt.Errorf("battery: %w", ErrMissingMeasurement)
	}
	return m.Battery, nil
}

// Clone returns a deep copy, so that references can be rewritten for one controller without affecting another.
func (m Measurements) Clone() Measurements {
	out := m
	if m.WindFarm != nil {
		w := *m.WindFarm
		w.TurbinePowers = append([]float64(nil), m.WindFarm.TurbinePowers...)
		w.WindDirections = append([]float64(nil), m.WindFarm.WindDirections...)
		w.PowerReference = copyFloat(m.WindFarm.PowerReference)
		out.WindFarm = &w
	}
	if m.SolarFarm != nil {
		s := *m.SolarFarm
		s.PowerReference = copyFloat(m.SolarFarm.PowerReference)
		out.SolarFarm = &s
	}
	if m.Battery != nil {
		b := *m.Battery
		b.PowerReference = copyFloat(m.Battery.PowerReference)
		out.Battery = &b
	}
	if m.Hydrogen != nil {
		h := *m.Hydrogen
		h.PowerReference = copyFloat(m.Hydrogen.PowerReference)
		out.Hydrogen = &h
	}
	out.PlantPowerReference = copyFloat(m.PlantPowerReference)
	out.RealTimeLMP = copyFloat(m.RealTimeLMP)
	out.ChargePrice = copyFloat(m.ChargePrice)
	out.DischargePrice = copyFloat(m.DischargePrice)
	if m.DayAheadLMP != nil {
		out.DayAheadLMP = append([]float64(nil), m.DayAheadLMP...)
	}
	if m.Forecast != nil {
		out.Forecast = make(map[string]float64, len(m.Forecast))
		for k, v := range m.Forecast {
			out.Forecast[k] = v
		}
	}
	return out
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Float returns a pointer to the given value, handy for filling in optional measurements.
func Float(val float64) *float64 {
	return &val
}
