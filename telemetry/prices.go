package telemetry

import "fmt"

// HoursPerDay is the number of day-ahead prices carried in the 24-hour layout.
const HoursPerDay = 24

// PriceSchema identifies which layout the price information of a snapshot was given in.
type PriceSchema int

const (
	PriceSchemaNone     PriceSchema = iota // PriceSchemaNone indicates that no usable price information was found
	PriceSchemaDayAhead                    // PriceSchemaDayAhead is a real-time price plus 24 hourly day-ahead prices
	PriceSchemaDiscrete                    // PriceSchemaDiscrete is a real-time price plus explicit charge/discharge prices
)

func (s PriceSchema) String() string {
	switch s {
	case PriceSchemaDayAhead:
		return "day_ahead"
	case PriceSchemaDiscrete:
		return "discrete"
	default:
		return "none"
	}
}

// PriceSignal is the resolved price information for one step.
type PriceSignal struct {
	Schema         PriceSchema
	RealTime       float64
	DayAhead       []float64 // set for PriceSchemaDayAhead
	ChargePrice    float64   // set for PriceSchemaDiscrete
	DischargePrice float64   // set for PriceSchemaDiscrete
}

// PriceSignal resolves the price layout of the snapshot. When both charge and discharge prices are present the discrete
// layout is used, even if day-ahead prices are also present. A real-time price is required by either layout.
func (m Measurements) PriceSignal() (PriceSignal, error) {
	if m.RealTimeLMP == nil {
		return PriceSignal{}, fmt.Errorf("real-time price: %w", ErrMissingMeasurement)
	}
	rt := *m.RealTimeLMP

	if m.ChargePrice != nil && m.DischargePrice != nil {
		return PriceSignal{
			Schema:         PriceSchemaDiscrete,
			RealTime:       rt,
			ChargePrice:    *m.ChargePrice,
			DischargePrice: *m.DischargePrice,
		}, nil
	}

	if m.DayAheadLMP == nil {
		return PriceSignal{}, fmt.Errorf("day-ahead or charge/discharge prices: %w", ErrMissingMeasurement)
	}
	if len(m.DayAheadLMP) != HoursPerDay {
		return PriceSignal{}, fmt.Errorf("expected %d day-ahead prices, got %d", HoursPerDay, len(m.DayAheadLMP))
	}

	return PriceSignal{
		Schema:   PriceSchemaDayAhead,
		RealTime: rt,
		DayAhead: append([]float64(nil), m.DayAheadLMP...),
	}, nil
}
