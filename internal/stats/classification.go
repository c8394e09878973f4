package stats

import "banditlab/internal/model"

type ClassScore struct {
	Model     string  `json:"model"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// Classification reads a confusion matrix as a classifier of the generating
// model and reports per-model scores plus overall accuracy.
func Classification(m model.ConfusionMatrix) ([]ClassScore, float64) {
	k := len(m.Models)
	scores := make([]ClassScore, k)
	var diag, total float64
	for i := 0; i < k; i++ {
		var row, col float64
		for j := 0; j < k; j++ {
			row += m.Counts[i][j]
			col += m.Counts[j][i]
			total += m.Counts[i][j]
		}
		tp := m.Counts[i][i]
		diag += tp

		s := ClassScore{Model: m.Models[i]}
		if col > 0 {
			s.Precision = tp / col
		}
		if row > 0 {
			s.Recall = tp / row
		}
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		scores[i] = s
	}
	if total == 0 {
		return scores, 0
	}
	return scores, diag / total
}
