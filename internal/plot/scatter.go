package plot

import (
	"fmt"

	"banditlab/internal/model"
	"banditlab/internal/stats"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Recovery returns one simulated-vs-recovered scatter per parameter, each
// overlaid with the identity line across the parameter's bounds.
func Recovery(data model.RecoveryData) []*charts.Scatter {
	corr := stats.CorrelationRecovery(data)
	out := make([]*charts.Scatter, 0, len(data.Labels))
	for i, label := range data.Labels {
		points := make([]opts.ScatterData, 0, len(data.Simulated[i]))
		for k, sim := range data.Simulated[i] {
			points = append(points, opts.ScatterData{Value: []float64{sim, data.Recovered[i][k]}, SymbolSize: 6})
		}

		sc := charts.NewScatter()
		sc.SetGlobalOptions(globalOptions(
			fmt.Sprintf("%s %s recovery", data.Model, label),
			fmt.Sprintf("r=%.3f p=%.3g n=%d", corr[i].R, corr[i].P, corr[i].N),
		)...)
		sc.SetGlobalOptions(
			charts.WithXAxisOpts(opts.XAxis{Name: "simulated", Type: "value"}),
			charts.WithYAxisOpts(opts.YAxis{Name: "recovered", Type: "value"}),
		)
		sc.AddSeries(label, points)

		if i < len(data.Bounds) {
			b := data.Bounds[i]
			identity := charts.NewLine()
			identity.AddSeries("identity", []opts.LineData{
				{Value: []float64{b.Low, b.Low}},
				{Value: []float64{b.High, b.High}},
			})
			sc.Overlap(identity)
		}
		out = append(out, sc)
	}
	return out
}

// Comparison draws per-model selection frequency with its interval bounds.
func Comparison(title string, summary stats.SelectionSummary) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOptions(title, fmt.Sprintf("%.0f%% interval", stats.DefaultConfidence*100))...)
	bar.SetGlobalOptions(charts.WithYAxisOpts(opts.YAxis{Name: "frequency", Min: 0, Max: 1}))
	bar.SetXAxis(summary.Models)

	freq := make([]opts.BarData, 0, len(summary.Frequency))
	for _, f := range summary.Frequency {
		freq = append(freq, opts.BarData{Value: f})
	}
	bar.AddSeries("best model", freq)

	bounds := charts.NewLine()
	bounds.SetXAxis(summary.Models)
	bounds.AddSeries("lower", lineData(summary.Lower))
	bounds.AddSeries("upper", lineData(summary.Upper))
	bar.Overlap(bounds)
	return bar
}
