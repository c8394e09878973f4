package plot

import (
	"fmt"
	"math"

	"banditlab/internal/model"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ParameterSpace renders a 2-parameter log-likelihood surface and marks
// the grid maximum in the subtitle.
func ParameterSpace(grid model.GridExploration) (*charts.HeatMap, error) {
	if len(grid.Axes) != 2 || len(grid.Labels) != 2 {
		return nil, fmt.Errorf("parameter space needs 2 axes, got %d", len(grid.Axes))
	}
	nx, ny := len(grid.Axes[0]), len(grid.Axes[1])
	if len(grid.LogLikelihoods) != nx*ny {
		return nil, fmt.Errorf("grid has %d values for %dx%d axes", len(grid.LogLikelihoods), nx, ny)
	}

	data := make([]opts.HeatMapData, 0, nx*ny)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			v := grid.LogLikelihoods[i*ny+j]
			lo, hi = math.Min(lo, v), math.Max(hi, v)
			data = append(data, opts.HeatMapData{Value: [3]interface{}{i, j, v}})
		}
	}

	subtitle := ""
	if best := grid.ArgMax(); best != nil {
		subtitle = fmt.Sprintf("max at %s=%.3g %s=%.3g", grid.Labels[0], best[0], grid.Labels[1], best[1])
	}
	hm := heatMap(fmt.Sprintf("%s log-likelihood", grid.Model), subtitle, grid.Labels[0], grid.Labels[1],
		formatAxis(grid.Axes[0]), formatAxis(grid.Axes[1]), lo, hi)
	hm.AddSeries("log-likelihood", data)
	return hm, nil
}

// Confusion renders row-normalized selection frequencies, true model on the
// y axis and selected model on the x axis.
func Confusion(m model.ConfusionMatrix) *charts.HeatMap {
	freq := m.Frequencies()
	data := make([]opts.HeatMapData, 0, len(freq)*len(freq))
	for i, row := range freq {
		for j, v := range row {
			data = append(data, opts.HeatMapData{Value: [3]interface{}{j, i, v}})
		}
	}
	hm := heatMap("confusion matrix", fmt.Sprintf("%d sets per model", m.Sets), "fit model", "simulated model",
		m.Models, m.Models, 0, 1)
	hm.AddSeries("frequency", data, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{@[2]}"}))
	return hm
}

func heatMap(title, subtitle, xName, yName string, xAxis, yAxis []string, lo, hi float64) *charts.HeatMap {
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		lo, hi = 0, 1
	}
	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(globalOptions(title, subtitle)...)
	hm.SetGlobalOptions(
		charts.WithXAxisOpts(opts.XAxis{Name: xName, Type: "category", Data: xAxis}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName, Type: "category", Data: yAxis}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			InRange:    &opts.VisualMapInRange{Color: []string{"#313695", "#74add1", "#fee090", "#d73027"}},
		}),
	)
	hm.SetXAxis(xAxis)
	return hm
}
