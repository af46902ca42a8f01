package controller

import (
	"errors"
	"fmt"
	"math"

	"github.com/cepro/hybridcontroller/telemetry"
)

// HydrogenControllerParameters tune the HydrogenPlantController.
type HydrogenControllerParameters struct {
	NominalPlantPower   float64 `mapstructure:"nominal_plant_power_kW"`
	NominalHydrogenRate float64 `mapstructure:"nominal_hydrogen_rate_kgps"`
	Gain                float64 `mapstructure:"hydrogen_controller_gain"`
}

// HydrogenPlantController converts a hydrogen production reference into the power the electrolyzer should be supplied
// with, using feed-forward on the reference plus a proportional correction on the production error. The setpoint is
// kept within [0, NominalPlantPower].
type HydrogenPlantController struct {
	base
	params HydrogenControllerParameters
}

func NewHydrogenPlantController(iface Interface, opts Options) (*HydrogenPlantController, error) {
	c := &HydrogenPlantController{
		base: newBase(iface, "hydrogen_plant", opts.Verbose),
	}
	if c.plant.Hydrogen == nil {
		return nil, errors.New("hydrogen plant controller: plant has no electrolyzer")
	}

	params := HydrogenControllerParameters{Gain: 1.0}
	err := c.decodeParameters(iface, opts, &params)
	if err != nil {
		return nil, fmt.Errorf("hydrogen plant controller: %w", err)
	}
	if params.NominalPlantPower <= 0 || params.NominalHydrogenRate <= 0 {
		return nil, fmt.Errorf(
			"hydrogen plant controller: nominal_plant_power_kW and nominal_hydrogen_rate_kgps must be positive, got %v and %v",
			params.NominalPlantPower, params.NominalHydrogenRate,
		)
	}
	c.params = params
	return c, nil
}

func (c *HydrogenPlantController) ComputeControls(measurements telemetry.Measurements) (telemetry.Setpoints, error) {
	h := measurements.Hydrogen
	if h == nil {
		return nil, fmt.Errorf("hydrogen: %w", telemetry.ErrMissingMeasurement)
	}
	if h.PowerReference == nil {
		return nil, fmt.Errorf("hydrogen reference: %w", telemetry.ErrMissingMeasurement)
	}

	reference := *h.PowerReference
	targetRate := reference + c.params.Gain*(reference-h.ProductionRate)
	power := targetRate / c.params.NominalHydrogenRate * c.params.NominalPlantPower
	power = math.Min(math.Max(power, 0), c.params.NominalPlantPower)

	c.debug("Hydrogen control", "time", measurements.Time, "production_rate", h.ProductionRate, "power_setpoint", power)
	return telemetry.Setpoints{telemetry.KeyHydrogenPowerSetpoint: telemetry.Scalar(power)}, nil
}
