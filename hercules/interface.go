package hercules

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/cepro/hybridcontroller/config"
	"github.com/cepro/hybridcontroller/telemetry"
	"github.com/mitchellh/mapstructure"
)

// ErrInvalidControls is returned when setpoints cannot be applied to the configured plant.
var ErrInvalidControls = errors.New("invalid controls")

// UnsupportedControlError names a setpoint that no configured asset accepts.
type UnsupportedControlError struct {
	Key string
}

func (err UnsupportedControlError) Error() string {
	return fmt.Sprintf("setpoint %q is not available in this configuration", err.Key)
}

func (err UnsupportedControlError) Unwrap() error {
	return ErrInvalidControls
}

// SetpointLengthError is returned when a setpoint holds the wrong number of values, e.g. one wind setpoint per turbine.
type SetpointLengthError struct {
	Key  string
	Got  int
	Want int
}

func (err SetpointLengthError) Error() string {
	return fmt.Sprintf("setpoint %q has %d values, expected %d", err.Key, err.Got, err.Want)
}

func (err SetpointLengthError) Unwrap() error {
	return ErrInvalidControls
}

// Interface adapts the simulator's nested state map to the controllers. The assets are fixed when the interface is
// created, later steps only read and write state.
type Interface struct {
	config config.Config
	plant  config.PlantParameters
	logger *slog.Logger
}

// New reads the static configuration out of the simulator's input map.
func New(hDict map[string]any) (*Interface, error) {
	cfg, err := config.Decode(hDict)
	if err != nil {
		return nil, fmt.Errorf("hercules interface: %w", err)
	}
	if cfg.Controller == nil {
		cfg.Controller = map[string]any{}
	}

	i := &Interface{
		config: cfg,
		plant:  cfg.PlantParameters(),
		logger: slog.Default().With("interface", "hercules"),
	}
	i.logger.Info(
		"Created interface",
		"dt", cfg.Dt,
		"wind", i.plant.WindFarm != nil,
		"solar", i.plant.SolarFarm != nil,
		"battery", i.plant.Battery != nil,
		"electrolyzer", i.plant.Hydrogen != nil,
	)
	return i, nil
}

func (i *Interface) Dt() float64 {
	return i.config.Dt
}

func (i *Interface) PlantParameters() config.PlantParameters {
	return i.plant
}

func (i *Interface) ControllerParameters() map[string]any {
	return i.config.Controller
}

// Config returns the static configuration the interface was created from.
func (i *Interface) Config() config.Config {
	return i.config
}

// allowedControls returns the setpoint keys accepted by the configured assets, with the number of values each must hold.
func (i *Interface) allowedControls() map[string]int {
	allowed := map[string]int{}
	if i.plant.WindFarm != nil {
		allowed[telemetry.KeyWindPowerSetpoints] = i.plant.NTurbines()
	}
	if i.plant.SolarFarm != nil {
		allowed[telemetry.KeySolarPowerSetpoint] = 1
	}
	if i.plant.Battery != nil {
		allowed[telemetry.KeyBatteryPowerSetpoint] = 1
	}
	if i.plant.Hydrogen != nil {
		allowed[telemetry.KeyHydrogenPowerSetpoint] = 1
	}
	return allowed
}

// CheckControls returns an error if any setpoint is unknown to the plant or has the wrong number of values.
func (i *Interface) CheckControls(setpoints telemetry.Setpoints) error {
	allowed := i.allowedControls()
	for _, k := range setpoints.Keys() {
		want, ok := allowed[k]
		if !ok {
			return UnsupportedControlError{Key: k}
		}
		if got := setpoints[k].Len(); got != want {
			return SetpointLengthError{Key: k, Got: got, Want: want}
		}
	}
	return nil
}

type windFarmState struct {
	TurbinePowers     []float64 `mapstructure:"turbine_powers"`
	WindDirectionMean float64   `mapstructure:"wind_direction_mean"`
}

type solarFarmState struct {
	Power float64 `mapstructure:"power"`
	DNI   float64 `mapstructure:"dni"`
	AOI   float64 `mapstructure:"aoi"`
}

type batteryState struct {
	Power float64 `mapstructure:"power"`
	SOC   float64 `mapstructure:"soc"`
}

type electrolyzerState struct {
	ProductionRate float64 `mapstructure:"H2_mfr"`
}

// state is the per-step part of the simulator map
type state struct {
	Time            float64            `mapstructure:"time"`
	WindFarm        *windFarmState     `mapstructure:"wind_farm"`
	SolarFarm       *solarFarmState    `mapstructure:"solar_farm"`
	Battery         *batteryState      `mapstructure:"battery"`
	Electrolyzer    *electrolyzerState `mapstructure:"electrolyzer"`
	ExternalSignals map[string]float64 `mapstructure:"external_signals"`
}

func decodeState(hDict map[string]any) (state, error) {
	var s state
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &s,
	})
	if err != nil {
		return state{}, fmt.Errorf("create decoder: %w", err)
	}
	err = decoder.Decode(hDict)
	if err != nil {
		return state{}, fmt.Errorf("decode simulator state: %w", err)
	}
	return s, nil
}

// GetMeasurements builds the measurement snapshot for the current step. Only the configured assets are read.
func (i *Interface) GetMeasurements(hDict map[string]any) (telemetry.Measurements, error) {
	s, err := decodeState(hDict)
	if err != nil {
		return telemetry.Measurements{}, err
	}

	m := telemetry.Measurements{
		Time:     s.Time,
		Forecast: map[string]float64{},
	}

	if i.plant.WindFarm != nil {
		if s.WindFarm == nil {
			return telemetry.Measurements{}, fmt.Errorf("wind_farm state: %w", telemetry.ErrMissingMeasurement)
		}
		n := i.plant.NTurbines()
		directions := make([]float64, n)
		for t := range directions {
			directions[t] = s.WindFarm.WindDirectionMean
		}
		m.WindFarm = &telemetry.WindFarm{
			TurbinePowers:  s.WindFarm.TurbinePowers,
			WindDirections: directions,
		}
	}

	if i.plant.SolarFarm != nil {
		if s.SolarFarm == nil {
			return telemetry.Measurements{}, fmt.Errorf("solar_farm state: %w", telemetry.ErrMissingMeasurement)
		}
		m.SolarFarm = &telemetry.SolarFarm{
			Power:                  s.SolarFarm.Power,
			DirectNormalIrradiance: s.SolarFarm.DNI,
			AngleOfIncidence:       s.SolarFarm.AOI,
		}
	}

	if i.plant.Battery != nil {
		if s.Battery == nil {
			return telemetry.Measurements{}, fmt.Errorf("battery state: %w", telemetry.ErrMissingMeasurement)
		}
		m.Battery = &telemetry.Battery{
			Power:         s.Battery.Power,
			StateOfCharge: s.Battery.SOC,
		}
	}

	if i.plant.Hydrogen != nil {
		h := telemetry.Hydrogen{}
		if s.Electrolyzer != nil {
			h.ProductionRate = s.Electrolyzer.ProductionRate
		}
		m.Hydrogen = &h
	}

	err = applyExternalSignals(&m, s.ExternalSignals)
	if err != nil {
		return telemetry.Measurements{}, err
	}

	m.TotalPower = m.WindPower() + m.SolarPower()
	if m.Battery != nil {
		m.TotalPower += m.Battery.Power
	}
	return m, nil
}

// applyExternalSignals routes reference, price and forecast signals into the snapshot. References for assets that are
// not part of the plant are dropped.
func applyExternalSignals(m *telemetry.Measurements, signals map[string]float64) error {
	lookup := func(key string) *float64 {
		if v, ok := signals[key]; ok {
			return telemetry.Float(v)
		}
		return nil
	}

	m.PlantPowerReference = lookup("plant_power_reference")
	if m.WindFarm != nil {
		m.WindFarm.PowerReference = lookup("wind_power_reference")
	}
	if m.SolarFarm != nil {
		m.SolarFarm.PowerReference = lookup("solar_power_reference")
	}
	if m.Battery != nil {
		m.Battery.PowerReference = lookup("battery_power_reference")
	}
	if m.Hydrogen != nil {
		m.Hydrogen.PowerReference = lookup("hydrogen_reference")
	}

	if _, ok := signals[DayAheadKey(0)]; ok {
		m.DayAheadLMP = make([]float64, telemetry.HoursPerDay)
		for h := range m.DayAheadLMP {
			v, ok := signals[DayAheadKey(h)]
			if !ok {
				return fmt.Errorf("%s: %w", DayAheadKey(h), telemetry.ErrMissingMeasurement)
			}
			m.DayAheadLMP[h] = v
		}
	}
	m.RealTimeLMP = lookup("RT_LMP")
	m.ChargePrice = lookup("charge_price")
	m.DischargePrice = lookup("discharge_price")

	keys := make([]string, 0, len(signals))
	for k := range signals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(k, "forecast") {
			m.Forecast[k] = signals[k]
		}
	}
	return nil
}

// DayAheadKey returns the external signal name for the day-ahead price of the given hour, e.g. DA_LMP_07.
func DayAheadKey(hour int) string {
	return fmt.Sprintf("DA_LMP_%02d", hour)
}

// SendControls validates the setpoints and then writes them into the simulator map. Wind and solar setpoints that are
// not given leave the asset unconstrained, a missing battery setpoint idles the battery.
func (i *Interface) SendControls(hDict map[string]any, setpoints telemetry.Setpoints) error {
	err := i.CheckControls(setpoints)
	if err != nil {
		return err
	}

	if i.plant.WindFarm != nil {
		values := make([]float64, i.plant.NTurbines())
		for t := range values {
			values[t] = telemetry.PowerSetpointDefault
		}
		if sp, ok := setpoints[telemetry.KeyWindPowerSetpoints]; ok {
			values = sp.Values()
		}
		err = setState(hDict, "wind_farm", "turbine_power_setpoints", values)
		if err != nil {
			return err
		}
	}

	if i.plant.SolarFarm != nil {
		value := telemetry.PowerSetpointDefault
		if v, ok := setpoints.Float64(telemetry.KeySolarPowerSetpoint); ok {
			value = v
		}
		err = setState(hDict, "solar_farm", "power_setpoint", value)
		if err != nil {
			return err
		}
	}

	if i.plant.Battery != nil {
		value, _ := setpoints.Float64(telemetry.KeyBatteryPowerSetpoint)
		err = setState(hDict, "battery", "power_setpoint", value)
		if err != nil {
			return err
		}
	}

	if i.plant.Hydrogen != nil {
		if v, ok := setpoints.Float64(telemetry.KeyHydrogenPowerSetpoint); ok {
			err = setState(hDict, "electrolyzer", "power_setpoint", v)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// setState writes `value` under hDict[section][key], creating the section if needed.
func setState(hDict map[string]any, section, key string, value any) error {
	raw, ok := hDict[section]
	if !ok || raw == nil {
		raw = map[string]any{}
		hDict[section] = raw
	}
	s, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("simulator state %q is a %T, not a map", section, raw)
	}
	s[key] = value
	return nil
}
