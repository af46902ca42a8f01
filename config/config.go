package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

type PlantConfig struct {
	InterconnectLimit *float64 `mapstructure:"interconnect_limit"`
}

type WindFarmConfig struct {
	Capacity          float64 `mapstructure:"capacity"`
	NTurbines         int     `mapstructure:"n_turbines"`
	WindDirectionMean float64 `mapstructure:"wind_direction_mean"`
}

type SolarFarmConfig struct {
	Capacity float64 `mapstructure:"capacity"`
}

type BatteryInitialConditions struct {
	SOC float64 `mapstructure:"SOC"`
}

type BatteryConfig struct {
	Size              float64                  `mapstructure:"size"` // power capacity
	EnergyCapacity    float64                  `mapstructure:"energy_capacity"`
	ChargeRate        float64                  `mapstructure:"charge_rate"`
	DischargeRate     float64                  `mapstructure:"discharge_rate"`
	InitialConditions BatteryInitialConditions `mapstructure:"initial_conditions"`
}

type ElectrolyzerConfig struct {
	InitialProductionRate float64 `mapstructure:"H2_mfr"`
}

// Config is the static part of a simulation input file. The same file also carries simulator state, which is left to
// the interface adapter.
type Config struct {
	Dt        float64 `mapstructure:"dt"`
	StartTime float64 `mapstructure:"starttime"`
	EndTime   float64 `mapstructure:"endtime"`

	Plant      PlantConfig    `mapstructure:"plant"`
	Controller map[string]any `mapstructure:"controller"`

	WindFarm     *WindFarmConfig     `mapstructure:"wind_farm"`
	SolarFarm    *SolarFarmConfig    `mapstructure:"solar_farm"`
	Battery      *BatteryConfig      `mapstructure:"battery"`
	Electrolyzer *ElectrolyzerConfig `mapstructure:"electrolyzer"`

	ExternalDataFile string `mapstructure:"external_data_file"`
	OutputFile       string `mapstructure:"output_file"`
}

// ReadInput reads the YAML input file at `path` into a nested map, which is the native representation used by the simulator.
func ReadInput(path string) (map[string]any, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file: %w", err)
	}

	input := map[string]any{}
	err = yaml.Unmarshal(content, &input)
	if err != nil {
		return nil, fmt.Errorf("unmarshal input file: %w", err)
	}

	return input, nil
}

// Read reads and decodes the YAML input file at `path`.
func Read(path string) (Config, error) {
	input, err := ReadInput(path)
	if err != nil {
		return Config{}, err
	}
	return Decode(input)
}

// Decode extracts the static configuration from the native nested map. Keys that are not part of Config are ignored.
func Decode(input map[string]any) (Config, error) {
	var config Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &config,
	})
	if err != nil {
		return Config{}, fmt.Errorf("create decoder: %w", err)
	}
	err = decoder.Decode(input)
	if err != nil {
		return Config{}, fmt.Errorf("decode input: %w", err)
	}

	// an electrolyzer section may be present without any parameters
	if _, ok := input["electrolyzer"]; ok && config.Electrolyzer == nil {
		config.Electrolyzer = &ElectrolyzerConfig{}
	}

	if config.Dt <= 0 {
		return Config{}, fmt.Errorf("dt must be positive, got %v", config.Dt)
	}
	if config.WindFarm != nil && config.WindFarm.NTurbines < 0 {
		return Config{}, fmt.Errorf("wind_farm.n_turbines must not be negative, got %d", config.WindFarm.NTurbines)
	}

	return config, nil
}

// PlantParameters returns the static capabilities of the assets present in the configuration.
func (c Config) PlantParameters() PlantParameters {
	plant := PlantParameters{
		InterconnectLimit: c.Plant.InterconnectLimit,
	}
	if c.WindFarm != nil {
		plant.WindFarm = &WindFarmParameters{
			Capacity:  c.WindFarm.Capacity,
			NTurbines: c.WindFarm.NTurbines,
		}
	}
	if c.SolarFarm != nil {
		plant.SolarFarm = &SolarFarmParameters{
			Capacity: c.SolarFarm.Capacity,
		}
	}
	if c.Battery != nil {
		plant.Battery = &BatteryParameters{
			PowerCapacity:  c.Battery.Size,
			EnergyCapacity: c.Battery.EnergyCapacity,
			ChargeRate:     c.Battery.ChargeRate,
			DischargeRate:  c.Battery.DischargeRate,
		}
	}
	if c.Electrolyzer != nil {
		plant.Hydrogen = &HydrogenParameters{}
	}
	return plant
}
