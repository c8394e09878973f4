package stats

import (
	"math"
	"testing"

	"banditlab/internal/model"
)

func TestFreqAndErrCountsAndSplitsTies(t *testing.T) {
	scores := [][]float64{
		{-10, -5},
		{-3, -8},
		{-4, -4},
		{-9, -1},
	}
	s := FreqAndErr([]string{"wsls", "rw"}, scores)
	if s.Counts[0] != 1.5 || s.Counts[1] != 2.5 {
		t.Fatalf("unexpected counts: %v", s.Counts)
	}
	if math.Abs(s.Frequency[1]-0.625) > 1e-12 {
		t.Fatalf("unexpected frequency: %v", s.Frequency)
	}
	for j := range s.Models {
		if s.Lower[j] > s.Frequency[j] || s.Upper[j] < s.Frequency[j] {
			t.Fatalf("interval [%f,%f] does not contain %f", s.Lower[j], s.Upper[j], s.Frequency[j])
		}
		if s.Lower[j] < 0 || s.Upper[j] > 1 {
			t.Fatalf("interval out of [0,1]: [%f,%f]", s.Lower[j], s.Upper[j])
		}
	}
	if s.Best() != 1 {
		t.Fatalf("expected rw best, got %d", s.Best())
	}
}

func TestFreqAndErrWilsonKnownValue(t *testing.T) {
	scores := make([][]float64, 10)
	for i := range scores {
		if i < 5 {
			scores[i] = []float64{1, 0}
		} else {
			scores[i] = []float64{0, 1}
		}
	}
	s := FreqAndErr([]string{"a", "b"}, scores)
	// Wilson interval for 5/10 at 95%.
	if math.Abs(s.Lower[0]-0.2366) > 1e-3 || math.Abs(s.Upper[0]-0.7634) > 1e-3 {
		t.Fatalf("unexpected wilson interval [%f,%f]", s.Lower[0], s.Upper[0])
	}
}

func TestFreqAndErrOnNegatedBIC(t *testing.T) {
	bic := [][]float64{{100, 90}, {80, 95}}
	s := FreqAndErr([]string{"a", "b"}, Negate(bic))
	if s.Counts[0] != 1 || s.Counts[1] != 1 {
		t.Fatalf("expected lowest BIC to be counted, got %v", s.Counts)
	}
}

func TestCorrelationRecoveryPerfectAndShort(t *testing.T) {
	data := model.RecoveryData{
		Labels:    []string{"alpha", "beta"},
		Simulated: [][]float64{{0.1, 0.2, 0.3, 0.4}, {1, 2}},
		Recovered: [][]float64{{0.2, 0.4, 0.6, 0.8}, {1, 2}},
	}
	got := CorrelationRecovery(data)
	if len(got) != 2 {
		t.Fatalf("expected 2 correlations, got %d", len(got))
	}
	if math.Abs(got[0].R-1) > 1e-12 || got[0].P != 0 {
		t.Fatalf("expected perfect correlation, got %+v", got[0])
	}
	if !math.IsNaN(got[1].R) {
		t.Fatalf("expected NaN correlation for two points, got %+v", got[1])
	}
}

func TestCorrelationRecoveryPValueRange(t *testing.T) {
	data := model.RecoveryData{
		Labels:    []string{"alpha"},
		Simulated: [][]float64{{1, 2, 3, 4, 5, 6}},
		Recovered: [][]float64{{2, 1, 4, 3, 6, 5}},
	}
	c := CorrelationRecovery(data)[0]
	if c.R <= 0 || c.R >= 1 {
		t.Fatalf("expected positive imperfect r, got %f", c.R)
	}
	if c.P <= 0 || c.P >= 0.1 {
		t.Fatalf("expected small p for r=%f, got %f", c.R, c.P)
	}
}

func TestClassificationFromConfusion(t *testing.T) {
	m := model.NewConfusionMatrix([]string{"random", "rw"}, 10)
	m.Counts[0] = []float64{8, 2}
	m.Counts[1] = []float64{0, 10}

	scores, accuracy := Classification(m)
	if math.Abs(accuracy-0.9) > 1e-12 {
		t.Fatalf("expected accuracy 0.9, got %f", accuracy)
	}
	if scores[0].Precision != 1 || math.Abs(scores[0].Recall-0.8) > 1e-12 {
		t.Fatalf("unexpected random scores: %+v", scores[0])
	}
	if math.Abs(scores[1].Precision-10.0/12) > 1e-12 || scores[1].Recall != 1 {
		t.Fatalf("unexpected rw scores: %+v", scores[1])
	}
}

func TestMeanStd(t *testing.T) {
	mean, std := MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if mean != 5 {
		t.Fatalf("expected mean 5, got %f", mean)
	}
	if math.Abs(std-2.138089935299395) > 1e-9 {
		t.Fatalf("unexpected std %f", std)
	}
}

func TestMeanLatent(t *testing.T) {
	a := model.LatentTrajectory{
		Values:        [][]float64{{0.5, 0.5}, {0.7, 0.5}},
		Probabilities: [][]float64{{0.5, 0.5}, {0.8, 0.2}},
	}
	b := model.LatentTrajectory{
		Values:        [][]float64{{0.5, 0.5}, {0.5, 0.3}},
		Probabilities: [][]float64{{0.5, 0.5}, {0.6, 0.4}},
	}
	mean := MeanLatent([]model.LatentTrajectory{a, b})
	if math.Abs(mean.Values[1][0]-0.6) > 1e-12 || math.Abs(mean.Values[1][1]-0.4) > 1e-12 {
		t.Fatalf("unexpected mean values %v", mean.Values[1])
	}
	if math.Abs(mean.Probabilities[1][0]-0.7) > 1e-12 {
		t.Fatalf("unexpected mean probabilities %v", mean.Probabilities[1])
	}

	noValues := MeanLatent([]model.LatentTrajectory{a, {Probabilities: b.Probabilities}})
	if noValues.Values != nil {
		t.Fatal("expected values to be dropped when a trajectory lacks them")
	}
}
