package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/cepro/hybridcontroller/config"
	"github.com/cepro/hybridcontroller/controller"
	"github.com/cepro/hybridcontroller/hercules"
	"github.com/cepro/hybridcontroller/plotting"
	"github.com/cepro/hybridcontroller/repository"
	"github.com/cepro/hybridcontroller/simulation"
	"github.com/cepro/hybridcontroller/timeseries"
	"github.com/google/uuid"
)

func main() {

	inputPath := flag.String("input", "hercules_input.yaml", "Path to the simulation input file")
	supervisorName := flag.String("controller", "baseline", "Supervisory controller: baseline or multiref")
	batteryName := flag.String("battery", "smoothing", "Battery controller: smoothing, passthrough or price_soc")
	dbPath := flag.String("db", "outputs.sqlite", "Path to the sqlite output database")
	plotPath := flag.String("plot", "", "If set, plot the battery outputs to this file")
	verbose := flag.Bool("verbose", false, "Log every control decision")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	err := run(ctx, *inputPath, *supervisorName, *batteryName, *dbPath, *plotPath, *verbose)
	if err != nil {
		slog.Error("Simulation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Exiting")
}

func run(ctx context.Context, inputPath, supervisorName, batteryName, dbPath, plotPath string, verbose bool) error {
	state, err := config.ReadInput(inputPath)
	if err != nil {
		return err
	}
	cfg, err := config.Decode(state)
	if err != nil {
		return err
	}
	simulation.PrepareState(state, cfg.PlantParameters().NTurbines())

	iface, err := hercules.New(state)
	if err != nil {
		return err
	}

	var signals *timeseries.Signals
	if cfg.ExternalDataFile != "" {
		signals, err = readSignals(cfg.ExternalDataFile)
		if err != nil {
			return err
		}
	}

	opts := controller.Options{Verbose: verbose}
	subControllers, err := newSubControllers(iface, batteryName, opts)
	if err != nil {
		return err
	}

	var ctrl controller.Controller
	switch supervisorName {
	case "baseline":
		ctrl, err = controller.NewHybridSupervisoryControllerBaseline(iface, subControllers, opts)
	case "multiref":
		ctrl, err = controller.NewHybridSupervisoryControllerMultiRef(iface, subControllers, opts)
	default:
		err = fmt.Errorf("unknown supervisory controller %q", supervisorName)
	}
	if err != nil {
		return err
	}

	repo, err := repository.New(dbPath)
	if err != nil {
		return fmt.Errorf("create repository: %w", err)
	}
	runID, err := repo.StartRun(supervisorName+"/"+batteryName, iface.Dt())
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}

	_, err = simulation.Run(ctx, simulation.Config{
		State:      state,
		Adapter:    iface,
		Controller: ctrl,
		Signals:    signals,
		Recorder:   repo,
		RunID:      runID,
		StartTime:  cfg.StartTime,
		EndTime:    cfg.EndTime,
	})
	if err != nil {
		return err
	}

	if plotPath != "" {
		err = plotBattery(repo, runID, plotPath)
		if err != nil {
			return err
		}
	}
	return nil
}

// newSubControllers creates a sub-controller for every asset in the plant.
func newSubControllers(iface controller.Interface, batteryName string, opts controller.Options) (controller.SubControllers, error) {
	plant := iface.PlantParameters()
	controllers := controller.SubControllers{}

	if plant.WindFarm != nil {
		c, err := controller.NewWindFarmPowerDistributingController(iface, opts)
		if err != nil {
			return nil, err
		}
		controllers[controller.AssetWind] = c
	}
	if plant.SolarFarm != nil {
		c, err := controller.NewSolarPassthroughController(iface, opts)
		if err != nil {
			return nil, err
		}
		controllers[controller.AssetSolar] = c
	}
	if plant.Battery != nil {
		var c controller.Controller
		var err error
		switch batteryName {
		case "smoothing":
			c, err = controller.NewBatteryController(iface, opts)
		case "passthrough":
			c, err = controller.NewBatteryPassthroughController(iface, opts)
		case "price_soc":
			c, err = controller.NewBatteryPriceSOCController(iface, opts)
		default:
			err = fmt.Errorf("unknown battery controller %q", batteryName)
		}
		if err != nil {
			return nil, err
		}
		controllers[controller.AssetBattery] = c
	}
	if plant.Hydrogen != nil {
		c, err := controller.NewHydrogenPlantController(iface, opts)
		if err != nil {
			return nil, err
		}
		controllers[controller.AssetHydrogen] = c
	}
	return controllers, nil
}

func readSignals(path string) (*timeseries.Signals, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open external data file: %w", err)
	}
	defer f.Close()
	return timeseries.ReadCSV(f)
}

// plotBattery plots every recorded battery column of the run.
func plotBattery(repo *repository.Repository, runID uuid.UUID, path string) error {
	names, err := repo.Columns(runID)
	if err != nil {
		return fmt.Errorf("list columns: %w", err)
	}

	var series []plotting.Series
	for _, name := range names {
		if !strings.HasPrefix(name, "battery.") {
			continue
		}
		samples, err := repo.Column(runID, name)
		if err != nil {
			return fmt.Errorf("read column %s: %w", name, err)
		}
		series = append(series, plotting.FromSamples(name, samples))
	}
	if len(series) == 0 {
		slog.Warn("No battery outputs to plot")
		return nil
	}
	return plotting.Columns(path, "Battery", series...)
}
