package controller

import (
	"fmt"

	"github.com/cepro/hybridcontroller/telemetry"
)

// Asset identifies the plant asset that a sub-controller commands
type Asset string

const (
	AssetWind     Asset = "wind"
	AssetSolar    Asset = "solar"
	AssetBattery  Asset = "battery"
	AssetHydrogen Asset = "hydrogen"
)

// assets is the order that sub-controllers are queried in. Results do not depend on it.
var assets = []Asset{AssetWind, AssetSolar, AssetBattery, AssetHydrogen}

// SubControllers maps an asset to the controller that commands it. Absent or nil entries are not queried.
type SubControllers map[Asset]Controller

// supervisor queries the configured sub-controllers each step and merges their partial setpoints.
type supervisor struct {
	base
	controllers SubControllers

	// view returns the measurements that the asset's controller sees, with references routed to it
	view func(asset Asset, measurements telemetry.Measurements) telemetry.Measurements
	// active reports whether the asset's controller should be queried this step
	active func(asset Asset, measurements telemetry.Measurements) bool
}

func newSupervisor(iface Interface, name string, controllers SubControllers, opts Options) (supervisor, error) {
	s := supervisor{
		base:        newBase(iface, name, opts.Verbose),
		controllers: SubControllers{},
	}

	for asset, ctrl := range controllers {
		if ctrl == nil {
			continue
		}
		present, known := s.assetPresent(asset)
		if !known {
			return supervisor{}, fmt.Errorf("%s: unknown asset %q", name, asset)
		}
		if !present {
			return supervisor{}, fmt.Errorf("%s: %s controller given but the plant has no %s", name, asset, asset)
		}
		s.controllers[asset] = ctrl
	}
	return s, nil
}

// assetPresent reports whether the plant has the asset, and whether the asset is known at all.
func (s supervisor) assetPresent(asset Asset) (bool, bool) {
	switch asset {
	case AssetWind:
		return s.plant.WindFarm != nil, true
	case AssetSolar:
		return s.plant.SolarFarm != nil, true
	case AssetBattery:
		return s.plant.Battery != nil, true
	case AssetHydrogen:
		return s.plant.Hydrogen != nil, true
	default:
		return false, false
	}
}

func (s supervisor) ComputeControls(measurements telemetry.Measurements) (telemetry.Setpoints, error) {
	combined := telemetry.Setpoints{}

	for _, asset := range assets {
		ctrl, ok := s.controllers[asset]
		if !ok {
			continue
		}
		if s.active != nil && !s.active(asset, measurements) {
			s.debug("Sub-controller inactive", "time", measurements.Time, "asset", asset)
			continue
		}

		view := measurements
		if s.view != nil {
			view = s.view(asset, measurements)
		}

		partial, err := ctrl.ComputeControls(view)
		if err != nil {
			return nil, fmt.Errorf("%s controller: %w", asset, err)
		}
		err = combined.Merge(partial)
		if err != nil {
			return nil, fmt.Errorf("%s controller: %w", asset, err)
		}
	}

	s.debug("Supervisory control", "time", measurements.Time, "setpoints", combined.Keys())
	return combined, nil
}

// HybridSupervisoryControllerBaseline forwards the plant power reference to every configured sub-controller and lets each
// decide independently. An asset that has its own reference keeps it, and the hydrogen reference (a production rate) is
// never replaced.
type HybridSupervisoryControllerBaseline struct {
	supervisor
}

func NewHybridSupervisoryControllerBaseline(iface Interface, controllers SubControllers, opts Options) (*HybridSupervisoryControllerBaseline, error) {
	s, err := newSupervisor(iface, "hybrid_supervisory_baseline", controllers, opts)
	if err != nil {
		return nil, err
	}
	s.view = forwardPlantReference

	s.logger.Info("Created hybrid supervisory controller", "sub_controllers", len(s.controllers))
	return &HybridSupervisoryControllerBaseline{supervisor: s}, nil
}

func forwardPlantReference(asset Asset, measurements telemetry.Measurements) telemetry.Measurements {
	if measurements.PlantPowerReference == nil {
		return measurements
	}
	view := measurements.Clone()
	plantRef := *measurements.PlantPowerReference

	switch asset {
	case AssetWind:
		if view.WindFarm != nil && view.WindFarm.PowerReference == nil {
			view.WindFarm.PowerReference = telemetry.Float(plantRef)
		}
	case AssetSolar:
		if view.SolarFarm != nil && view.SolarFarm.PowerReference == nil {
			view.SolarFarm.PowerReference = telemetry.Float(plantRef)
		}
	case AssetBattery:
		if view.Battery != nil && view.Battery.PowerReference == nil {
			view.Battery.PowerReference = telemetry.Float(plantRef)
		}
	}
	return view
}

// MultiRefParameters are the price gates of the multi-reference supervisor. An asset with a threshold is only queried
// when the real-time price is at or above it, and is skipped when no real-time price is available. An asset without a
// threshold is always queried.
type MultiRefParameters struct {
	WindPriceThreshold     *float64 `mapstructure:"wind_price_threshold"`
	SolarPriceThreshold    *float64 `mapstructure:"solar_price_threshold"`
	BatteryPriceThreshold  *float64 `mapstructure:"battery_price_threshold"`
	HydrogenPriceThreshold *float64 `mapstructure:"hydrogen_price_threshold"`
}

func (p MultiRefParameters) threshold(asset Asset) *float64 {
	switch asset {
	case AssetWind:
		return p.WindPriceThreshold
	case AssetSolar:
		return p.SolarPriceThreshold
	case AssetBattery:
		return p.BatteryPriceThreshold
	case AssetHydrogen:
		return p.HydrogenPriceThreshold
	default:
		return nil
	}
}

// HybridSupervisoryControllerMultiRef gives each asset its own reference. Wind and solar use their own reference or,
// failing that, the plant reference. The battery uses its own reference or, failing that, makes up the difference
// between the plant reference and the measured wind and solar power. Assets can be gated on price.
type HybridSupervisoryControllerMultiRef struct {
	supervisor
	params MultiRefParameters
}

func NewHybridSupervisoryControllerMultiRef(iface Interface, controllers SubControllers, opts Options) (*HybridSupervisoryControllerMultiRef, error) {
	s, err := newSupervisor(iface, "hybrid_supervisory_multi_ref", controllers, opts)
	if err != nil {
		return nil, err
	}

	c := &HybridSupervisoryControllerMultiRef{supervisor: s}
	err = c.decodeParameters(iface, opts, &c.params)
	if err != nil {
		return nil, fmt.Errorf("hybrid supervisory multi ref controller: %w", err)
	}
	c.view = splitPlantReference
	c.active = c.priceGate

	c.logger.Info("Created hybrid supervisory controller", "sub_controllers", len(c.controllers))
	return c, nil
}

func (c *HybridSupervisoryControllerMultiRef) priceGate(asset Asset, measurements telemetry.Measurements) bool {
	threshold := c.params.threshold(asset)
	if threshold == nil {
		return true
	}
	if measurements.RealTimeLMP == nil {
		return false
	}
	return *measurements.RealTimeLMP >= *threshold
}

func splitPlantReference(asset Asset, measurements telemetry.Measurements) telemetry.Measurements {
	if asset != AssetBattery {
		return forwardPlantReference(asset, measurements)
	}
	if measurements.PlantPowerReference == nil || measurements.Battery == nil || measurements.Battery.PowerReference != nil {
		return measurements
	}

	view := measurements.Clone()
	remaining := *measurements.PlantPowerReference - (measurements.WindPower() + measurements.SolarPower())
	view.Battery.PowerReference = telemetry.Float(remaining)
	return view
}
