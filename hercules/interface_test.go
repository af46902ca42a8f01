package hercules

import (
	"testing"

	"github.com/cepro/hybridcontroller/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHerculesDict() map[string]any {
	return map[string]any{
		"dt":   1,
		"time": 0,
		"plant": map[string]any{
			"interconnect_limit": nil,
		},
		"controller": map[string]any{
			"test_controller_parameter": 1.0,
		},
		"wind_farm": map[string]any{
			"n_turbines":          2,
			"capacity":            10000.0,
			"wind_direction_mean": 271.0,
			"turbine_powers":      []any{4000.0, 4001.0},
			"wind_speed":          10.0,
		},
		"solar_farm": map[string]any{
			"capacity": 1000.0,
			"power":    1000.0,
			"dni":      1000.0,
			"aoi":      30.0,
		},
		"battery": map[string]any{
			"size":            10.0e3,
			"energy_capacity": 40.0e3,
			"power":           10.0e3,
			"soc":             0.3,
			"charge_rate":     20e3,
			"discharge_rate":  15e3,
		},
		"electrolyzer": map[string]any{
			"H2_mfr": 0.03,
		},
		"external_signals": map[string]any{
			"wind_power_reference":    1000.0,
			"solar_power_reference":   800.0,
			"battery_power_reference": 0.0,
			"plant_power_reference":   1000.0,
			"forecast_ws_mean_0":      8.0,
			"forecast_ws_mean_1":      8.1,
			"ws_median_0":             8.1,
			"hydrogen_reference":      0.02,
		},
	}
}

func windOnlyDict() map[string]any {
	hDict := testHerculesDict()
	delete(hDict, "solar_farm")
	delete(hDict, "battery")
	delete(hDict, "electrolyzer")
	return hDict
}

func TestNew(t *testing.T) {
	iface, err := New(testHerculesDict())
	require.NoError(t, err)

	assert.Equal(t, 1.0, iface.Dt())
	plant := iface.PlantParameters()
	require.NotNil(t, plant.WindFarm)
	assert.Equal(t, 10000.0, plant.WindFarm.Capacity)
	assert.Equal(t, 2, plant.WindFarm.NTurbines)
	require.NotNil(t, plant.SolarFarm)
	assert.Equal(t, 1000.0, plant.SolarFarm.Capacity)
	require.NotNil(t, plant.Battery)
	assert.Equal(t, 10.0e3, plant.Battery.PowerCapacity)
	assert.Equal(t, 40.0e3, plant.Battery.EnergyCapacity)
	assert.Equal(t, 20e3, plant.Battery.ChargeRate)
	assert.Equal(t, 15e3, plant.Battery.DischargeRate)
	assert.NotNil(t, plant.Hydrogen)
	assert.Nil(t, plant.InterconnectLimit)

	assert.Equal(t, map[string]any{"test_controller_parameter": 1.0}, iface.ControllerParameters())
}

func TestNewWithoutControllerSection(t *testing.T) {
	hDict := windOnlyDict()
	delete(hDict, "controller")

	iface, err := New(hDict)
	require.NoError(t, err)
	assert.NotNil(t, iface.ControllerParameters())
	assert.Empty(t, iface.ControllerParameters())
}

func TestNewBadDt(t *testing.T) {
	hDict := windOnlyDict()
	hDict["dt"] = 0
	_, err := New(hDict)
	assert.Error(t, err)
}

func TestGetMeasurementsWindOnly(t *testing.T) {
	hDict := windOnlyDict()
	iface, err := New(hDict)
	require.NoError(t, err)

	m, err := iface.GetMeasurements(hDict)
	require.NoError(t, err)

	assert.Equal(t, 0.0, m.Time)
	require.NotNil(t, m.WindFarm)
	assert.Equal(t, []float64{271, 271}, m.WindFarm.WindDirections)
	assert.Equal(t, []float64{4000, 4001}, m.WindFarm.TurbinePowers)
	assert.Equal(t, 1000.0, *m.WindFarm.PowerReference)
	assert.Equal(t, map[string]float64{"forecast_ws_mean_0": 8.0, "forecast_ws_mean_1": 8.1}, m.Forecast)
	assert.Nil(t, m.SolarFarm)
	assert.Nil(t, m.Battery)
	assert.Nil(t, m.Hydrogen)
	assert.Equal(t, 8001.0, m.TotalPower)
}

func TestGetMeasurementsHybrid(t *testing.T) {
	hDict := testHerculesDict()
	iface, err := New(hDict)
	require.NoError(t, err)

	m, err := iface.GetMeasurements(hDict)
	require.NoError(t, err)

	require.NotNil(t, m.SolarFarm)
	assert.Equal(t, 1000.0, m.SolarFarm.Power)
	assert.Equal(t, 1000.0, m.SolarFarm.DirectNormalIrradiance)
	assert.Equal(t, 30.0, m.SolarFarm.AngleOfIncidence)
	assert.Equal(t, 800.0, *m.SolarFarm.PowerReference)

	require.NotNil(t, m.Battery)
	assert.Equal(t, 10.0e3, m.Battery.Power)
	assert.Equal(t, 0.3, m.Battery.StateOfCharge)
	assert.Equal(t, 0.0, *m.Battery.PowerReference)

	require.NotNil(t, m.Hydrogen)
	assert.Equal(t, 0.03, m.Hydrogen.ProductionRate)
	assert.Equal(t, 0.02, *m.Hydrogen.PowerReference)

	assert.Equal(t, 1000.0, *m.PlantPowerReference)
	assert.Nil(t, m.RealTimeLMP)
	assert.Nil(t, m.DayAheadLMP)
	assert.Equal(t, 4000.0+4001.0+1000.0+10.0e3, m.TotalPower)
}

func TestGetMeasurementsPrices(t *testing.T) {
	hDict := testHerculesDict()
	signals := hDict["external_signals"].(map[string]any)
	for h := 0; h < 24; h++ {
		signals[DayAheadKey(h)] = float64(h)
	}
	signals["RT_LMP"] = 42.5
	signals["charge_price"] = 10
	signals["discharge_price"] = 20

	iface, err := New(hDict)
	require.NoError(t, err)
	m, err := iface.GetMeasurements(hDict)
	require.NoError(t, err)

	require.Len(t, m.DayAheadLMP, 24)
	assert.Equal(t, 0.0, m.DayAheadLMP[0])
	assert.Equal(t, 23.0, m.DayAheadLMP[23])
	assert.Equal(t, 42.5, *m.RealTimeLMP)
	assert.Equal(t, 10.0, *m.ChargePrice)
	assert.Equal(t, 20.0, *m.DischargePrice)

	delete(signals, DayAheadKey(12))
	_, err = iface.GetMeasurements(hDict)
	assert.ErrorIs(t, err, telemetry.ErrMissingMeasurement)
}

func TestGetMeasurementsMissingState(t *testing.T) {
	hDict := testHerculesDict()
	iface, err := New(hDict)
	require.NoError(t, err)

	delete(hDict, "battery")
	_, err = iface.GetMeasurements(hDict)
	assert.ErrorIs(t, err, telemetry.ErrMissingMeasurement)
}

func TestCheckControlsWindOnly(t *testing.T) {
	iface, err := New(windOnlyDict())
	require.NoError(t, err)

	good := telemetry.Setpoints{telemetry.KeyWindPowerSetpoints: telemetry.Vector([]float64{2000, 3000})}
	assert.NoError(t, iface.CheckControls(good))

	unavailable := telemetry.Setpoints{
		telemetry.KeyWindPowerSetpoints: telemetry.Vector([]float64{2000, 3000}),
		"unavailable_control":           telemetry.Vector([]float64{0, 0}),
	}
	err = iface.CheckControls(unavailable)
	assert.ErrorIs(t, err, ErrInvalidControls)
	assert.Equal(t, UnsupportedControlError{Key: "unavailable_control"}, err)

	battery := telemetry.Setpoints{telemetry.KeyBatteryPowerSetpoint: telemetry.Scalar(5)}
	assert.ErrorIs(t, iface.CheckControls(battery), ErrInvalidControls)

	wrongLength := telemetry.Setpoints{telemetry.KeyWindPowerSetpoints: telemetry.Vector([]float64{2000, 3000, 0})}
	err = iface.CheckControls(wrongLength)
	assert.ErrorIs(t, err, ErrInvalidControls)
	assert.Equal(t, SetpointLengthError{Key: telemetry.KeyWindPowerSetpoints, Got: 3, Want: 2}, err)
}

func TestCheckControlsHybrid(t *testing.T) {
	iface, err := New(testHerculesDict())
	require.NoError(t, err)

	good := telemetry.Setpoints{
		telemetry.KeyWindPowerSetpoints:    telemetry.Vector([]float64{2000, 3000}),
		telemetry.KeySolarPowerSetpoint:    telemetry.Scalar(500),
		telemetry.KeyBatteryPowerSetpoint:  telemetry.Scalar(-1000),
		telemetry.KeyHydrogenPowerSetpoint: telemetry.Scalar(300),
	}
	assert.NoError(t, iface.CheckControls(good))

	bad := telemetry.Setpoints{
		telemetry.KeyWindPowerSetpoints: telemetry.Vector([]float64{2000, 3000}),
		telemetry.KeySolarPowerSetpoint: telemetry.Scalar(500),
		"unavailable_control":           telemetry.Vector([]float64{0, 0}),
	}
	assert.Error(t, iface.CheckControls(bad))
}

func TestSendControls(t *testing.T) {
	hDict := testHerculesDict()
	iface, err := New(hDict)
	require.NoError(t, err)

	err = iface.SendControls(hDict, telemetry.Setpoints{
		telemetry.KeyWindPowerSetpoints:   telemetry.Vector([]float64{2000, 3000}),
		telemetry.KeySolarPowerSetpoint:   telemetry.Scalar(500),
		telemetry.KeyBatteryPowerSetpoint: telemetry.Scalar(-1000),
	})
	require.NoError(t, err)

	assert.Equal(t, []float64{2000, 3000}, hDict["wind_farm"].(map[string]any)["turbine_power_setpoints"])
	assert.Equal(t, 500.0, hDict["solar_farm"].(map[string]any)["power_setpoint"])
	assert.Equal(t, -1000.0, hDict["battery"].(map[string]any)["power_setpoint"])
	assert.NotContains(t, hDict["electrolyzer"].(map[string]any), "power_setpoint")
}

func TestSendControlsDefaults(t *testing.T) {
	hDict := testHerculesDict()
	iface, err := New(hDict)
	require.NoError(t, err)

	require.NoError(t, iface.SendControls(hDict, telemetry.Setpoints{}))

	assert.Equal(t, []float64{1e9, 1e9}, hDict["wind_farm"].(map[string]any)["turbine_power_setpoints"])
	assert.Equal(t, 1e9, hDict["solar_farm"].(map[string]any)["power_setpoint"])
	assert.Equal(t, 0.0, hDict["battery"].(map[string]any)["power_setpoint"])
}

func TestSendControlsRejectsBeforeWriting(t *testing.T) {
	hDict := windOnlyDict()
	iface, err := New(hDict)
	require.NoError(t, err)

	err = iface.SendControls(hDict, telemetry.Setpoints{
		telemetry.KeyWindPowerSetpoints: telemetry.Vector([]float64{2000, 3000}),
		"unavailable_control":           telemetry.Scalar(0),
	})
	assert.ErrorIs(t, err, ErrInvalidControls)
	assert.NotContains(t, hDict["wind_farm"].(map[string]any), "turbine_power_setpoints")
}
