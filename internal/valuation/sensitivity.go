package valuation

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/fairvalue-cli/internal/model"
)

// baseCaseGrowthRate is the scenario promoted to base case when it
// appears in the requested growth rates. Matching is by exact equality.
const baseCaseGrowthRate = 0.05

// DefaultGrowthRates are the scenarios tested when the caller supplies
// none: 3%, 5%, 7%, 10%, 15%.
func DefaultGrowthRates() []float64 {
	return []float64{0.03, 0.05, 0.07, 0.10, 0.15}
}

// Sensitivity re-runs the full valuation once per growth rate and
// collects the resulting fair values. Each scenario is an independent
// calculation with that rate passed as an explicit override. The
// scenario whose rate equals exactly 5% is retained in full as the base
// case; when no requested rate equals 5%, BaseCase stays nil.
func (m *Model) Sensitivity(data model.FinancialData, rates RateInputs, growthRates []float64) *model.SensitivityResult {
	if growthRates == nil {
		growthRates = DefaultGrowthRates()
	}

	result := &model.SensitivityResult{
		Scenarios: make([]model.Scenario, 0, len(growthRates)),
	}

	for _, gr := range growthRates {
		scenarioRates := rates
		scenarioRates.GrowthOverride = model.Ptr(gr)

		valuation := m.FairValue(data, scenarioRates)
		result.Scenarios = append(result.Scenarios, model.Scenario{
			GrowthRatePct: gr * 100,
			FairValue:     valuation.FairValue,
		})

		if gr == baseCaseGrowthRate {
			result.BaseCase = valuation
		}
	}

	m.log.Debug("sensitivity run complete",
		zap.String("ticker", data.Ticker),
		zap.Int("scenarios", len(result.Scenarios)),
		zap.Bool("base_case", result.BaseCase != nil),
	)

	return result
}

// ScenarioFile is the on-disk shape of a scenario configuration.
type ScenarioFile struct {
	// GrowthRates lists scenario rates in percentage units, the way
	// an analyst writes them (5 means 5%).
	GrowthRates []float64 `yaml:"growth_rates"`
}

// LoadScenarios reads growth-rate scenarios from a YAML file and
// returns them as decimals ready for Sensitivity.
func LoadScenarios(path string) ([]float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scenarios: read %s", path)
	}

	var file ScenarioFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, eris.Wrap(err, "scenarios: parse")
	}
	if len(file.GrowthRates) == 0 {
		return nil, eris.Errorf("scenarios: %s lists no growth rates", path)
	}

	rates := make([]float64, len(file.GrowthRates))
	for i, pct := range file.GrowthRates {
		rates[i] = pct / 100
	}
	return rates, nil
}
