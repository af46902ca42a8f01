package controller

import (
	"errors"
	"fmt"

	"github.com/cepro/hybridcontroller/telemetry"
)

// WindFarmPowerDistributingController shares the wind farm power reference equally between the turbines. Without a
// reference every turbine is left unconstrained.
type WindFarmPowerDistributingController struct {
	base
	nTurbines int
}

func NewWindFarmPowerDistributingController(iface Interface, opts Options) (*WindFarmPowerDistributingController, error) {
	c := &WindFarmPowerDistributingController{
		base: newBase(iface, "wind_farm_power_distributing", opts.Verbose),
	}
	if c.plant.WindFarm == nil {
		return nil, errors.New("wind farm power distributing controller: plant has no wind farm")
	}
	c.nTurbines = c.plant.WindFarm.NTurbines
	return c, nil
}

func (c *WindFarmPowerDistributingController) ComputeControls(measurements telemetry.Measurements) (telemetry.Setpoints, error) {
	if measurements.WindFarm == nil {
		return nil, fmt.Errorf("wind farm: %w", telemetry.ErrMissingMeasurement)
	}

	perTurbine := telemetry.PowerSetpointDefault
	if ref := measurements.WindFarm.PowerReference; ref != nil && c.nTurbines > 0 {
		perTurbine = *ref / float64(c.nTurbines)
	}

	setpoints := make([]float64, c.nTurbines)
	for i := range setpoints {
		setpoints[i] = perTurbine
	}

	c.debug("Wind farm control", "time", measurements.Time, "turbine_power_setpoint", perTurbine)
	return telemetry.Setpoints{telemetry.KeyWindPowerSetpoints: telemetry.Vector(setpoints)}, nil
}
