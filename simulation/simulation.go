package simulation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/cepro/hybridcontroller/controller"
	"github.com/cepro/hybridcontroller/telemetry"
	"github.com/cepro/hybridcontroller/timeseries"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// Adapter is the simulator interface that the harness drives each step.
type Adapter interface {
	controller.Interface
	GetMeasurements(hDict map[string]any) (telemetry.Measurements, error)
	SendControls(hDict map[string]any, setpoints telemetry.Setpoints) error
}

// Recorder stores the named values of each step.
type Recorder interface {
	AddStep(runID uuid.UUID, step int, t float64, values map[string]float64) error
}

type Config struct {
	State      map[string]any // the simulator map, updated in place every step
	Adapter    Adapter
	Controller controller.Controller

	Signals  *timeseries.Signals // optional, replaces the external signals every step
	Recorder Recorder            // optional
	RunID    uuid.UUID

	StartTime float64
	EndTime   float64 // exclusive
}

// Result summarises a finished run.
type Result struct {
	Steps   int
	EndTime float64
}

// Run steps the simulation from StartTime to EndTime by the adapter's dt. Each step the external signals are updated,
// the controller makes its decision from the measurements and the setpoints are written back into the state. The battery
// is treated as an ideal actuator: its power becomes its setpoint. The context is checked between steps.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.State == nil || cfg.Adapter == nil || cfg.Controller == nil {
		return Result{}, errors.New("simulation needs a state, an adapter and a controller")
	}
	dt := cfg.Adapter.Dt()
	if dt <= 0 {
		return Result{}, fmt.Errorf("dt must be positive, got %v", dt)
	}

	nSteps := int(math.Ceil((cfg.EndTime - cfg.StartTime) / dt))
	slog.Info("Starting simulation", "start_time", cfg.StartTime, "end_time", cfg.EndTime, "dt", dt, "steps", nSteps, "run_id", cfg.RunID)

	result := Result{EndTime: cfg.StartTime}
	for step := 0; step < nSteps; step++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		t := cfg.StartTime + float64(step)*dt
		values, err := runStep(cfg, t)
		if err != nil {
			return result, fmt.Errorf("step %d (time %v): %w", step, t, err)
		}

		if cfg.Recorder != nil {
			err = cfg.Recorder.AddStep(cfg.RunID, step, t, values)
			if err != nil {
				return result, fmt.Errorf("record step %d: %w", step, err)
			}
		}
		result.Steps = step + 1
		result.EndTime = t + dt
	}

	slog.Info("Simulation complete", "steps", result.Steps, "run_id", cfg.RunID)
	return result, nil
}

func runStep(cfg Config, t float64) (map[string]float64, error) {
	cfg.State["time"] = t
	if cfg.Signals != nil {
		signals := map[string]any{}
		for k, v := range cfg.Signals.At(t) {
			signals[k] = v
		}
		cfg.State["external_signals"] = signals
	}

	measurements, err := cfg.Adapter.GetMeasurements(cfg.State)
	if err != nil {
		return nil, fmt.Errorf("get measurements: %w", err)
	}
	setpoints, err := cfg.Controller.ComputeControls(measurements)
	if err != nil {
		return nil, fmt.Errorf("compute controls: %w", err)
	}
	err = cfg.Adapter.SendControls(cfg.State, setpoints)
	if err != nil {
		return nil, fmt.Errorf("send controls: %w", err)
	}

	values := map[string]float64{"time": t}
	if measurements.Battery != nil {
		setpoint, _ := setpoints.Float64(telemetry.KeyBatteryPowerSetpoint)
		echoBatteryPower(cfg.State, setpoint)
		values["battery.power"] = setpoint
		values["battery.power_setpoint"] = setpoint
		values["battery.soc"] = measurements.Battery.StateOfCharge
	}
	for _, key := range setpoints.Keys() {
		if key == telemetry.KeyBatteryPowerSetpoint {
			continue
		}
		sp := setpoints[key]
		if !sp.IsVector() {
			values["controls."+key] = sp.Value()
			continue
		}
		for i, v := range sp.Values() {
			values["controls."+key+"."+strconv.Itoa(i)] = v
		}
	}
	if signals, ok := cfg.State["external_signals"].(map[string]any); ok {
		for k, v := range signals {
			if f, ok := v.(float64); ok {
				values["external_signals."+k] = f
			}
		}
	}
	return values, nil
}

// echoBatteryPower makes the battery deliver exactly its setpoint on the next step.
func echoBatteryPower(state map[string]any, setpoint float64) {
	if battery, ok := state["battery"].(map[string]any); ok {
		battery["power"] = setpoint
	}
}

// PrepareState fills in the per-step state the adapter reads, using the initial conditions of the input file, so that
// an input file with only static configuration can be simulated.
func PrepareState(state map[string]any, nTurbines int) {
	if battery, ok := state["battery"].(map[string]any); ok {
		if _, ok := battery["power"]; !ok {
			battery["power"] = 0.0
		}
		if _, ok := battery["soc"]; !ok {
			soc := 0.5
			if ic, ok := battery["initial_conditions"].(map[string]any); ok {
				if err := mapstructure.WeakDecode(ic["SOC"], &soc); err != nil || ic["SOC"] == nil {
					soc = 0.5
				}
			}
			battery["soc"] = soc
		}
	}
	if wind, ok := state["wind_farm"].(map[string]any); ok {
		if _, ok := wind["turbine_powers"]; !ok {
			wind["turbine_powers"] = make([]float64, nTurbines)
		}
	}
	if solar, ok := state["solar_farm"].(map[string]any); ok {
		for _, k := range []string{"power", "dni", "aoi"} {
			if _, ok := solar[k]; !ok {
				solar[k] = 0.0
			}
		}
	}
	if _, ok := state["external_signals"]; !ok {
		state["external_signals"] = map[string]any{}
	}
}
