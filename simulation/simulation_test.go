package simulation

import (
	"context"
	"strings"
	"testing"

	"github.com/cepro/hybridcontroller/controller"
	"github.com/cepro/hybridcontroller/hercules"
	"github.com/cepro/hybridcontroller/repository"
	"github.com/cepro/hybridcontroller/timeseries"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRecorder struct {
	steps []map[string]float64
}

func (m *memoryRecorder) AddStep(_ uuid.UUID, _ int, _ float64, values map[string]float64) error {
	m.steps = append(m.steps, values)
	return nil
}

func batteryInput() map[string]any {
	return map[string]any{
		"dt": 1,
		"battery": map[string]any{
			"size":               20000,
			"energy_capacity":    80000,
			"charge_rate":        20000,
			"discharge_rate":     20000,
			"initial_conditions": map[string]any{"SOC": 0.5},
		},
	}
}

func newBatteryRun(t *testing.T, csv string) (Config, *memoryRecorder) {
	state := batteryInput()
	PrepareState(state, 0)

	iface, err := hercules.New(state)
	require.NoError(t, err)
	ctrl, err := controller.NewBatteryPassthroughController(iface, controller.Options{})
	require.NoError(t, err)
	signals, err := timeseries.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)

	recorder := &memoryRecorder{}
	return Config{
		State:      state,
		Adapter:    iface,
		Controller: ctrl,
		Signals:    signals,
		Recorder:   recorder,
		StartTime:  0,
		EndTime:    4,
	}, recorder
}

func TestRunBatteryPassthrough(t *testing.T) {
	cfg, recorder := newBatteryRun(t, "time,battery_power_reference\n0,100\n2,-300\n")

	result, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Steps)
	assert.Equal(t, 4.0, result.EndTime)

	require.Len(t, recorder.steps, 4)
	powers := []float64{}
	for _, step := range recorder.steps {
		powers = append(powers, step["battery.power"])
		assert.Equal(t, 0.5, step["battery.soc"])
	}
	assert.Equal(t, []float64{100, 100, -300, -300}, powers)
	assert.Equal(t, 2.0, recorder.steps[2]["time"])
	assert.Equal(t, -300.0, recorder.steps[3]["external_signals.battery_power_reference"])

	battery := cfg.State["battery"].(map[string]any)
	assert.Equal(t, -300.0, battery["power"])
	assert.Equal(t, -300.0, battery["power_setpoint"])
}

func TestRunStopsOnControllerError(t *testing.T) {
	// no reference before time 2
	cfg, recorder := newBatteryRun(t, "time,battery_power_reference\n2,100\n")

	result, err := Run(context.Background(), cfg)
	assert.Error(t, err)
	assert.Equal(t, 0, result.Steps)
	assert.Empty(t, recorder.steps)
}

func TestRunCancelled(t *testing.T) {
	cfg, recorder := newBatteryRun(t, "time,battery_power_reference\n0,100\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, cfg)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, recorder.steps)
}

func TestRunRecordsToRepository(t *testing.T) {
	cfg, _ := newBatteryRun(t, "time,battery_power_reference\n0,100\n2,-300\n")

	repo, err := repository.New(t.TempDir() + "/outputs.db")
	require.NoError(t, err)
	runID, err := repo.StartRun("battery_passthrough", 1)
	require.NoError(t, err)
	cfg.Recorder = repo
	cfg.RunID = runID

	_, err = Run(context.Background(), cfg)
	require.NoError(t, err)

	samples, err := repo.Column(runID, "battery.power_setpoint")
	require.NoError(t, err)
	require.Len(t, samples, 4)
	assert.Equal(t, -300.0, samples[3].Value)
	assert.Equal(t, 3.0, samples[3].Time)
}

func TestPrepareState(t *testing.T) {
	state := map[string]any{
		"battery":    map[string]any{"initial_conditions": map[string]any{"SOC": 1}},
		"wind_farm":  map[string]any{},
		"solar_farm": map[string]any{"power": 5.0},
	}
	PrepareState(state, 3)

	battery := state["battery"].(map[string]any)
	assert.Equal(t, 0.0, battery["power"])
	assert.Equal(t, 1.0, battery["soc"])
	assert.Equal(t, []float64{0, 0, 0}, state["wind_farm"].(map[string]any)["turbine_powers"])
	assert.Equal(t, 5.0, state["solar_farm"].(map[string]any)["power"])
	assert.Equal(t, 0.0, state["solar_farm"].(map[string]any)["dni"])
	assert.NotNil(t, state["external_signals"])
}
