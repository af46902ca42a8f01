package config

// PlantParameters holds the static capability data of each asset. Assets that are not part of the plant are nil.
type PlantParameters struct {
	InterconnectLimit *float64

	WindFarm  *WindFarmParameters
	SolarFarm *SolarFarmParameters
	Battery   *BatteryParameters
	Hydrogen  *HydrogenParameters
}

type WindFarmParameters struct {
	Capacity  float64
	NTurbines int
}

type SolarFarmParameters struct {
	Capacity float64
}

// BatteryParameters are the battery ratings, charge and discharge rates are both given as positive powers.
type BatteryParameters struct {
	PowerCapacity  float64
	EnergyCapacity float64
	ChargeRate     float64
	DischargeRate  float64
}

// HydrogenParameters is a placeholder, the electrolyzer has no static parameters the controllers need yet.
type HydrogenParameters struct{}

// NTurbines returns the number of wind turbines, zero if there is no wind farm.
func (p PlantParameters) NTurbines() int {
	if p.WindFarm == nil {
		return 0
	}
	return p.WindFarm.NTurbines
}
