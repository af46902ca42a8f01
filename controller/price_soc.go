package controller

import (
	"fmt"
	"sort"

	"github.com/cepro/hybridcontroller/telemetry"
)

// PriceSOCParameters tune the BatteryPriceSOCController.
//
// With day-ahead prices, HighSOC is the SOC below which the battery discharges when the real-time price is among the
// four highest day-ahead prices, and LowSOC is the SOC above which it charges when the price is among the four lowest.
//
// HighSOCPrice and LowSOCPrice are only used with the discrete charge/discharge price layout. Leaving them unset
// disables the corresponding rule.
type PriceSOCParameters struct {
	HighSOC      float64  `mapstructure:"high_soc"`
	LowSOC       float64  `mapstructure:"low_soc"`
	HighSOCPrice *float64 `mapstructure:"high_soc_price"`
	LowSOCPrice  *float64 `mapstructure:"low_soc_price"`
}

// DefaultPriceSOCParameters returns a high SOC of 0.8 and a low SOC of 0.2.
func DefaultPriceSOCParameters() PriceSOCParameters {
	return PriceSOCParameters{
		HighSOC: 0.8,
		LowSOC:  0.2,
	}
}

// DayAheadBounds holds the order statistics of a day's hourly prices that the dispatch rule compares against.
type DayAheadBounds struct {
	Bottom1 float64 // lowest price
	Bottom4 float64 // 4th lowest price
	Top4    float64 // 4th highest price
	Top1    float64 // highest price
}

// NewDayAheadBounds sorts a copy of `prices` and picks out the bounds. At least four prices are needed.
func NewDayAheadBounds(prices []float64) (DayAheadBounds, error) {
	if len(prices) < 4 {
		return DayAheadBounds{}, fmt.Errorf("need at least 4 day-ahead prices, got %d", len(prices))
	}
	sorted := append([]float64{}, prices...)
	sort.Float64s(sorted)

	n := len(sorted)
	return DayAheadBounds{
		Bottom1: sorted[0],
		Bottom4: sorted[3],
		Top4:    sorted[n-4],
		Top1:    sorted[n-1],
	}, nil
}

// BatteryPriceSOCController sets the battery to charge, discharge or idle at full rated power from the real-time price
// and the SOC. There is no smoothing. Charging is negative power.
//
// If the measurements carry a battery power reference, its magnitude caps the setpoint magnitude. The sign of the
// setpoint is always decided by the price rule.
type BatteryPriceSOCController struct {
	base
	params PriceSOCParameters

	ratedPowerCharging    float64
	ratedPowerDischarging float64
}

func NewBatteryPriceSOCController(iface Interface, opts Options) (*BatteryPriceSOCController, error) {
	c := &BatteryPriceSOCController{
		base: newBase(iface, "battery_price_soc", opts.Verbose),
	}
	if c.plant.Battery == nil {
		return nil, fmt.Errorf("battery price soc controller: %w", errNoBattery)
	}

	params := DefaultPriceSOCParameters()
	err := c.decodeParameters(iface, opts, &params)
	if err != nil {
		return nil, fmt.Errorf("battery price soc controller: %w", err)
	}
	c.params = params

	c.ratedPowerCharging = c.plant.Battery.ChargeRate
	c.ratedPowerDischarging = c.plant.Battery.DischargeRate

	c.logger.Info(
		"Created battery price soc controller",
		"high_soc", params.HighSOC,
		"low_soc", params.LowSOC,
		"rated_power_charging", c.ratedPowerCharging,
		"rated_power_discharging", c.ratedPowerDischarging,
	)
	return c, nil
}

func (c *BatteryPriceSOCController) ComputeControls(measurements telemetry.Measurements) (telemetry.Setpoints, error) {
	battery, err := measurements.RequireBattery()
	if err != nil {
		return nil, err
	}

	signal, err := measurements.PriceSignal()
	if err != nil {
		return nil, fmt.Errorf("battery price soc controller: %w", err)
	}

	soc := battery.StateOfCharge
	var powerSetpoint float64
	switch signal.Schema {
	case telemetry.PriceSchemaDiscrete:
		powerSetpoint = c.discretePriceSetpoint(signal, soc)
	default:
		bounds, err := NewDayAheadBounds(signal.DayAhead)
		if err != nil {
			return nil, fmt.Errorf("battery price soc controller: %w", err)
		}
		powerSetpoint = c.dayAheadSetpoint(signal.RealTime, bounds, soc)
	}

	if battery.PowerReference != nil {
		powerSetpoint = capMagnitude(powerSetpoint, *battery.PowerReference)
	}

	c.debug(
		"Battery price soc control",
		"time", measurements.Time,
		"price_schema", signal.Schema.String(),
		"real_time_price", signal.RealTime,
		"soc", soc,
		"power_setpoint", powerSetpoint,
	)

	return telemetry.Setpoints{telemetry.KeyBatteryPowerSetpoint: telemetry.Scalar(powerSetpoint)}, nil
}

// dayAheadSetpoint applies the rule against the day's order statistics, the first matching case wins.
func (c *BatteryPriceSOCController) dayAheadSetpoint(realTimePrice float64, bounds DayAheadBounds, soc float64) float64 {
	switch {
	case realTimePrice > bounds.Top1:
		return c.ratedPowerDischarging
	case realTimePrice > bounds.Top4 && soc < c.params.HighSOC:
		return c.ratedPowerDischarging
	case realTimePrice < bounds.Bottom1:
		return -c.ratedPowerCharging
	case realTimePrice < bounds.Bottom4 && soc > c.params.LowSOC:
		return -c.ratedPowerCharging
	default:
		return 0
	}
}

// discretePriceSetpoint applies the legacy rule for explicitly supplied charge and discharge prices.
func (c *BatteryPriceSOCController) discretePriceSetpoint(signal telemetry.PriceSignal, soc float64) float64 {
	rt := signal.RealTime
	switch {
	case c.params.HighSOCPrice != nil && rt > *c.params.HighSOCPrice:
		return c.ratedPowerDischarging
	case rt > signal.DischargePrice && soc > c.params.LowSOC:
		return c.ratedPowerDischarging
	case c.params.LowSOCPrice != nil && rt < *c.params.LowSOCPrice:
		return -c.ratedPowerCharging
	case rt < signal.ChargePrice && soc < c.params.HighSOC:
		return -c.ratedPowerCharging
	default:
		return 0
	}
}
