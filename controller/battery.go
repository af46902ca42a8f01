package controller

import (
	"errors"
	"fmt"
	"math"

	"github.com/cepro/hybridcontroller/cartesian"
	"github.com/cepro/hybridcontroller/telemetry"
)

// dampingRatio of the battery controller's closed loop
const dampingRatio = 2.0

// errNoBattery is returned when a battery controller is built for a plant without a battery.
var errNoBattery = errors.New("plant has no battery")

// BatteryControllerParameters tune the BatteryController.
//
// KBatt is the controller gain: small values (e.g. 0.01) are stable and slow to react, large values (e.g. 1) are fast
// and eventually unstable.
//
// ClippingThresholds is [soc_min, soc_min_clip, soc_max_clip, soc_max]. Below soc_min and above soc_max the reference is
// clipped to zero, between soc_min and soc_min_clip (and soc_max_clip and soc_max) it is scaled linearly, and between
// soc_min_clip and soc_max_clip the full reference is used.
type BatteryControllerParameters struct {
	KBatt              float64   `mapstructure:"k_batt"`
	ClippingThresholds []float64 `mapstructure:"clipping_thresholds"`
}

// DefaultBatteryControllerParameters returns a gain of 0.1 and no clipping.
func DefaultBatteryControllerParameters() BatteryControllerParameters {
	return BatteryControllerParameters{
		KBatt:              0.1,
		ClippingThresholds: []float64{0, 0, 1, 1},
	}
}

// BatteryController shapes the battery power reference so that the battery does not see rapid power changes, which
// degrade it, and clips the reference near the SOC limits.
//
// The controller is a discrete-time, first-order state-space system:
//
//	u[k]   = c*x[k] + d*e[k]
//	x[k+1] = a*x[k] + b*e[k]
//
// where e is the error between the (clipped) reference and the current battery power, and the setpoint is the current
// power plus u.
type BatteryController struct {
	base
	params BatteryControllerParameters

	a, b, c, d float64
	clipping   cartesian.Curve

	x float64 // internal filter state
}

// NewBatteryController builds a BatteryController from the interface's plant parameters and the tuning parameters.
func NewBatteryController(iface Interface, opts Options) (*BatteryController, error) {
	c := &BatteryController{
		base: newBase(iface, "battery", opts.Verbose),
	}
	if c.plant.Battery == nil {
		return nil, fmt.Errorf("battery controller: %w", errNoBattery)
	}

	params := BatteryControllerParameters{KBatt: DefaultBatteryControllerParameters().KBatt}
	err := c.decodeParameters(iface, opts, &params)
	if err != nil {
		return nil, fmt.Errorf("battery controller: %w", err)
	}
	if params.ClippingThresholds == nil {
		params.ClippingThresholds = DefaultBatteryControllerParameters().ClippingThresholds
	}

	err = c.SetParameters(params)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Created battery controller", "k_batt", params.KBatt, "clipping_thresholds", params.ClippingThresholds)
	return c, nil
}

// SetParameters recomputes the filter coefficients and clipping curve. The internal state is kept.
func (c *BatteryController) SetParameters(params BatteryControllerParameters) error {
	if len(params.ClippingThresholds) != 4 {
		return fmt.Errorf("battery controller: expected 4 clipping thresholds, got %d", len(params.ClippingThresholds))
	}

	omega := 2 * math.Pi * params.KBatt
	p := math.Exp(-2 * dampingRatio * omega * c.dt)
	c.a = p
	c.b = 1
	c.c = omega / (2 * dampingRatio) * (1 - p) / 2 * (p + 1)
	c.d = omega / (2 * dampingRatio) * (1 - p) / 2

	c.params = BatteryControllerParameters{
		KBatt:              params.KBatt,
		ClippingThresholds: append([]float64{}, params.ClippingThresholds...),
	}
	c.clipping = cartesian.NewCurve(c.params.ClippingThresholds, []float64{0, 1, 1, 0})
	return nil
}

// clipFraction returns the fraction of the rated power available at the given SOC. It is zero at or beyond soc_min and
// soc_max.
func (c *BatteryController) clipFraction(soc float64) float64 {
	thresholds := c.params.ClippingThresholds
	if soc <= thresholds[0] || soc >= thresholds[3] {
		return 0
	}
	return c.clipping.Interpolate(soc, 0, 0)
}

// socClipping limits the reference to [-clip*discharge_rate, clip*charge_rate].
func (c *BatteryController) socClipping(soc, referencePower float64) float64 {
	fraction := c.clipFraction(soc)
	rCharge := fraction * c.plant.Battery.ChargeRate
	rDischarge := fraction * c.plant.Battery.DischargeRate

	clipped, _ := limitValue(referencePower, rCharge, rDischarge)
	return clipped
}

func (c *BatteryController) ComputeControls(measurements telemetry.Measurements) (telemetry.Setpoints, error) {
	battery, err := measurements.RequireBattery()
	if err != nil {
		return nil, err
	}
	if battery.PowerReference == nil {
		return nil, fmt.Errorf("battery power reference: %w", telemetry.ErrMissingMeasurement)
	}

	reference := c.socClipping(battery.StateOfCharge, *battery.PowerReference)
	e := reference - battery.Power

	u := c.c*c.x + c.d*e
	c.x = c.a*c.x + c.b*e

	setpoint := battery.Power + u
	c.debug(
		"Battery control",
		"time", measurements.Time,
		"soc", battery.StateOfCharge,
		"reference_power", *battery.PowerReference,
		"clipped_reference_power", reference,
		"power_setpoint", setpoint,
	)

	return telemetry.Setpoints{telemetry.KeyBatteryPowerSetpoint: telemetry.Scalar(setpoint)}, nil
}

// BatteryPassthroughController passes the battery power reference straight through as the setpoint.
type BatteryPassthroughController struct {
	base
}

func NewBatteryPassthroughController(iface Interface, opts Options) (*BatteryPassthroughController, error) {
	c := &BatteryPassthroughController{
		base: newBase(iface, "battery_passthrough", opts.Verbose),
	}
	if c.plant.Battery == nil {
		return nil, fmt.Errorf("battery passthrough controller: %w", errNoBattery)
	}
	return c, nil
}

func (c *BatteryPassthroughController) ComputeControls(measurements telemetry.Measurements) (telemetry.Setpoints, error) {
	battery, err := measurements.RequireBattery()
	if err != nil {
		return nil, err
	}
	if battery.PowerReference == nil {
		return nil, fmt.Errorf("battery power reference: %w", telemetry.ErrMissingMeasurement)
	}
	return telemetry.Setpoints{telemetry.KeyBatteryPowerSetpoint: telemetry.Scalar(*battery.PowerReference)}, nil
}
