package stats

import (
	"encoding/json"
	"math"

	"banditlab/internal/model"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

type Correlation struct {
	Label string  `json:"label"`
	N     int     `json:"n"`
	R     float64 `json:"r"`
	P     float64 `json:"p"`
}

type correlationJSON struct {
	Label string   `json:"label"`
	N     int      `json:"n"`
	R     *float64 `json:"r"`
	P     *float64 `json:"p"`
}

// MarshalJSON writes an undefined r or p as null.
func (c Correlation) MarshalJSON() ([]byte, error) {
	return json.Marshal(correlationJSON{Label: c.Label, N: c.N, R: finite(c.R), P: finite(c.P)})
}

func (c *Correlation) UnmarshalJSON(data []byte) error {
	var raw correlationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Correlation{Label: raw.Label, N: raw.N, R: orNaN(raw.R), P: orNaN(raw.P)}
	return nil
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// CorrelationRecovery computes Pearson's r between simulated and recovered
// values for every parameter, with a two-sided p-value from Student's t.
func CorrelationRecovery(data model.RecoveryData) []Correlation {
	out := make([]Correlation, 0, len(data.Labels))
	for i, label := range data.Labels {
		x, y := data.Simulated[i], data.Recovered[i]
		c := Correlation{Label: label, N: len(x), R: math.NaN(), P: math.NaN()}
		if len(x) >= 3 {
			c.R = stat.Correlation(x, y, nil)
			c.P = pearsonPValue(c.R, len(x))
		}
		out = append(out, c)
	}
	return out
}

func pearsonPValue(r float64, n int) float64 {
	if math.IsNaN(r) {
		return math.NaN()
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.Survival(math.Abs(t))
}

// MeanStd summarizes a sample with its mean and unbiased standard deviation.
func MeanStd(x []float64) (float64, float64) {
	if len(x) == 0 {
		return math.NaN(), math.NaN()
	}
	if len(x) == 1 {
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}
