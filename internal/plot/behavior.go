package plot

import (
	"fmt"

	"banditlab/internal/model"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// DefaultWindow is the rolling success window of the behavior chart.
const DefaultWindow = 10

// Behavior plots the choice of every trial against the rolling success rate.
func Behavior(title string, seq model.TrialSequence, window int) *charts.Line {
	if window < 1 {
		window = DefaultWindow
	}
	choices := make([]float64, seq.Len())
	for t, c := range seq.Choices {
		choices[t] = float64(c)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(globalOptions(title, fmt.Sprintf("success rate %.3f", seq.SuccessRate()))...)
	line.SetGlobalOptions(
		charts.WithXAxisOpts(opts.XAxis{Name: "trial"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "choice / success"}),
	)
	line.SetXAxis(indexAxis(seq.Len())).
		AddSeries("choice", lineData(choices), charts.WithLineChartOpts(opts.LineChart{Step: "end"})).
		AddSeries(fmt.Sprintf("success (rolling %d)", window), lineData(RollingSuccess(seq, window)))
	return line
}

// RollingSuccess is the mean success over the trailing window, shorter at
// the start of the sequence.
func RollingSuccess(seq model.TrialSequence, window int) []float64 {
	out := make([]float64, len(seq.Successes))
	var sum int
	for t, ok := range seq.Successes {
		if ok {
			sum++
		}
		if t >= window && seq.Successes[t-window] {
			sum--
		}
		n := window
		if t+1 < window {
			n = t + 1
		}
		out[t] = float64(sum) / float64(n)
	}
	return out
}

// Latent plots per-step option values (when present) and choice
// probabilities.
func Latent(title string, traj model.LatentTrajectory) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(globalOptions(title, "")...)
	line.SetGlobalOptions(charts.WithXAxisOpts(opts.XAxis{Name: "trial"}))
	line.SetXAxis(indexAxis(len(traj.Probabilities)))

	for option, series := range transpose(traj.Values) {
		line.AddSeries(fmt.Sprintf("Q[%d]", option), lineData(series))
	}
	for option, series := range transpose(traj.Probabilities) {
		line.AddSeries(fmt.Sprintf("P[%d]", option), lineData(series))
	}
	return line
}

// Effect plots one curve per parameter value, e.g. the learning-rate and
// inverse-temperature effect studies. rows[j][i] is curve i at x[j].
func Effect(title, xName string, x []float64, labels []string, rows [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(globalOptions(title, "")...)
	line.SetGlobalOptions(charts.WithXAxisOpts(opts.XAxis{Name: xName}))
	line.SetXAxis(formatAxis(x))
	for i, curve := range transpose(rows) {
		line.AddSeries(labels[i], lineData(curve), charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	}
	return line
}

func transpose(rows [][]float64) [][]float64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([][]float64, len(rows[0]))
	for j := range out {
		out[j] = make([]float64, len(rows))
		for i := range rows {
			out[j][i] = rows[i][j]
		}
	}
	return out
}
