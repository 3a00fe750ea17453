// Package cost turns per-request call telemetry into a USD estimate.
package cost

import "github.com/sells-group/platform-resolver/internal/model"

// Rates holds per-provider pricing configuration.
type Rates struct {
	SerpAPI SerpAPIRate `yaml:"serpapi" mapstructure:"serpapi"`
	Places  PlacesRate  `yaml:"places" mapstructure:"places"`
	AI      AIRate      `yaml:"ai" mapstructure:"ai"`
}

// SerpAPIRate holds search pricing.
type SerpAPIRate struct {
	PerSearch float64 `yaml:"per_search" mapstructure:"per_search"`
}

// PlacesRate holds Google Places pricing.
type PlacesRate struct {
	PerDetails float64 `yaml:"per_details" mapstructure:"per_details"`
}

// AIRate is a blended flat price per inference call. Prompts and answers
// are short and near-constant in size, so per-token accounting adds
// nothing here.
type AIRate struct {
	PerCall float64 `yaml:"per_call" mapstructure:"per_call"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Search returns the cost of n search calls.
func (c *Calculator) Search(n int) float64 {
	return float64(n) * c.rates.SerpAPI.PerSearch
}

// Details returns the cost of n place-details calls.
func (c *Calculator) Details(n int) float64 {
	return float64(n) * c.rates.Places.PerDetails
}

// AI returns the cost of n inference calls.
func (c *Calculator) AI(n int) float64 {
	return float64(n) * c.rates.AI.PerCall
}

// Estimate prices one resolution's external calls.
func (c *Calculator) Estimate(t model.CallTelemetry) float64 {
	return c.Search(t.SearchCalls) + c.Details(t.DetailCalls) + c.AI(t.AICalls)
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		SerpAPI: SerpAPIRate{PerSearch: 0.015},
		Places:  PlacesRate{PerDetails: 0.017},
		AI:      AIRate{PerCall: 0.0004},
	}
}
