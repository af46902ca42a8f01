package controller

import (
	"log/slog"

	"github.com/cepro/hybridcontroller/config"
	"github.com/cepro/hybridcontroller/telemetry"
)

// Interface is the contract between the controllers and a simulator adapter. Controllers depend only on this and never on
// a concrete adapter.
type Interface interface {
	Dt() float64
	PlantParameters() config.PlantParameters
	ControllerParameters() map[string]any
	CheckControls(setpoints telemetry.Setpoints) error
}

// Controller makes one decision per simulation step. ComputeControls is called once per step, in order, and mutates no
// state other than the controller's own.
type Controller interface {
	ComputeControls(measurements telemetry.Measurements) (telemetry.Setpoints, error)
}

// Options are the construction options shared by every controller.
type Options struct {
	// Parameters are explicit tuning parameters. A key that also appears in the interface's controller parameters is
	// a construction error.
	Parameters map[string]any
	// Verbose enables per-step debug logging of decisions.
	Verbose bool
}

// base holds what every controller reads from the interface at construction.
type base struct {
	name    string
	dt      float64
	plant   config.PlantParameters
	verbose bool
	logger  *slog.Logger
}

func newBase(iface Interface, name string, verbose bool) base {
	return base{
		name:    name,
		dt:      iface.Dt(),
		plant:   iface.PlantParameters(),
		verbose: verbose,
		logger:  slog.Default().With("controller", name),
	}
}

// decodeParameters merges the explicit parameters with the interface's controller section and decodes the result into
// `out`, which should hold the defaults. Unrecognised keys are ignored and logged.
func (b base) decodeParameters(iface Interface, opts Options, out any) error {
	params, err := config.MergeParameters(opts.Parameters, iface.ControllerParameters())
	if err != nil {
		return err
	}

	unused, err := config.DecodeParameters(params, out)
	if err != nil {
		return err
	}
	if len(unused) > 0 {
		b.logger.Debug("Ignoring unrecognised controller parameters", "keys", unused)
	}
	return nil
}

// debug logs a decision if the controller was built as verbose
func (b base) debug(msg string, args ...any) {
	if b.verbose {
		b.logger.Debug(msg, args...)
	}
}
