package controller

import (
	"math"

	"github.com/cepro/hybridcontroller/config"
	"github.com/cepro/hybridcontroller/telemetry"
)

// This file contains utilities to help with testing

// standinInterface is a minimal Interface for exercising controllers without a simulator.
type standinInterface struct {
	dt                   float64
	plant                config.PlantParameters
	controllerParameters map[string]any
}

func (s *standinInterface) Dt() float64 {
	return s.dt
}

func (s *standinInterface) PlantParameters() config.PlantParameters {
	return s.plant
}

func (s *standinInterface) ControllerParameters() map[string]any {
	return s.controllerParameters
}

func (s *standinInterface) CheckControls(telemetry.Setpoints) error {
	return nil
}

// newStandinInterface returns a hybrid plant with two turbines, a solar farm, a battery and an electrolyzer.
func newStandinInterface() *standinInterface {
	return &standinInterface{
		dt: 1,
		plant: config.PlantParameters{
			WindFarm:  &config.WindFarmParameters{Capacity: 10000, NTurbines: 2},
			SolarFarm: &config.SolarFarmParameters{Capacity: 1000},
			Battery: &config.BatteryParameters{
				PowerCapacity:  20000,
				EnergyCapacity: 80000,
				ChargeRate:     20000,
				DischargeRate:  15000,
			},
			Hydrogen: &config.HydrogenParameters{},
		},
		controllerParameters: map[string]any{},
	}
}

// stubController returns fixed setpoints and records the measurements it was given.
type stubController struct {
	setpoints telemetry.Setpoints
	err       error
	calls     int
	last      telemetry.Measurements
}

func (s *stubController) ComputeControls(m telemetry.Measurements) (telemetry.Setpoints, error) {
	s.calls++
	s.last = m
	if s.err != nil {
		return nil, s.err
	}
	out := telemetry.Setpoints{}
	for k, v := range s.setpoints {
		out[k] = v
	}
	return out, nil
}

// batteryMeasurements returns a snapshot with only battery data.
func batteryMeasurements(power, soc float64, reference *float64) telemetry.Measurements {
	return telemetry.Measurements{
		Battery: &telemetry.Battery{
			Power:          power,
			StateOfCharge:  soc,
			PowerReference: reference,
		},
	}
}

// almostEqual compares two floats, allowing for the given tolerance
func almostEqual(a, b, tolerance float64) bool {
	if a == b {
		// This is to support infinite float values
		return true
	}

	diff := math.Abs(a - b)
	return diff < tolerance
}

func powerSetpoint(setpoints telemetry.Setpoints) float64 {
	v, _ := setpoints.Float64(telemetry.KeyBatteryPowerSetpoint)
	return v
}
