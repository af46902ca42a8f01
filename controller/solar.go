package controller

import (
	"errors"
	"fmt"

	"github.com/cepro/hybridcontroller/telemetry"
)

// SolarPassthroughController passes the solar power reference straight through. Without a reference the solar farm is
// left unconstrained.
type SolarPassthroughController struct {
	base
}

func NewSolarPassthroughController(iface Interface, opts Options) (*SolarPassthroughController, error) {
	c := &SolarPassthroughController{
		base: newBase(iface, "solar_passthrough", opts.Verbose),
	}
	if c.plant.SolarFarm == nil {
		return nil, errors.New("solar passthrough controller: plant has no solar farm")
	}
	return c, nil
}

func (c *SolarPassthroughController) ComputeControls(measurements telemetry.Measurements) (telemetry.Setpoints, error) {
	if measurements.SolarFarm == nil {
		return nil, fmt.Errorf("solar farm: %w", telemetry.ErrMissingMeasurement)
	}

	setpoint := telemetry.PowerSetpointDefault
	if measurements.SolarFarm.PowerReference != nil {
		setpoint = *measurements.SolarFarm.PowerReference
	}
	return telemetry.Setpoints{telemetry.KeySolarPowerSetpoint: telemetry.Scalar(setpoint)}, nil
}
