package main

import (
	"fmt"
	"io"
	"strings"

	"banditlab/internal/model"
	"banditlab/internal/stats"

	"github.com/dustin/go-humanize"
	"github.com/logrusorgru/aurora"
)

type printer struct {
	w  io.Writer
	au aurora.Aurora
}

func newPrinter(w io.Writer, color bool) *printer {
	return &printer{w: w, au: aurora.NewAurora(color)}
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) header(title string) {
	p.printf("%s\n", p.au.Bold(p.au.Cyan(title)))
}

func (p *printer) progress(stage string, done, total int) {
	if done != total && done%10 != 0 {
		return
	}
	p.printf("%s %s/%s\n", p.au.Faint(stage), humanize.Comma(int64(done)), humanize.Comma(int64(total)))
}

func (p *printer) trials(seq model.TrialSequence, nOptions int) {
	counts := make([]int, nOptions)
	for _, c := range seq.Choices {
		if c >= 0 && c < nOptions {
			counts[c]++
		}
	}
	p.printf("trials=%s success_rate=%.3f choices=%v\n", humanize.Comma(int64(seq.Len())), seq.SuccessRate(), counts)
}

func (p *printer) fit(labels []string, fit model.FitResult) {
	parts := make([]string, 0, len(fit.Params))
	for i, v := range fit.Params {
		label := fmt.Sprintf("p%d", i)
		if i < len(labels) {
			label = labels[i]
		}
		parts = append(parts, fmt.Sprintf("%s=%.4f", label, v))
	}
	p.printf("fit model=%s %s nll=%.4f evaluations=%s\n",
		p.au.Green(fit.Model), strings.Join(parts, " "), fit.NegLogLikelihood, humanize.Comma(int64(fit.Evaluations)))
}

func (p *printer) comparison(record model.ComparisonRecord) {
	best := record.Best()
	for i, name := range record.Models {
		line := fmt.Sprintf("%-8s ll=%10.3f bic=%10.3f params=%v", name, record.LogLikelihoods[i], record.BIC[i], formatParams(record.Params[i]))
		if i == best {
			p.printf("%s\n", p.au.Green(line+" *"))
			continue
		}
		p.printf("%s\n", line)
	}
}

func (p *printer) selection(title string, s stats.SelectionSummary) {
	p.header(title)
	best := s.Best()
	for j, name := range s.Models {
		line := fmt.Sprintf("%-8s freq=%.3f ci=[%.3f, %.3f] count=%.1f", name, s.Frequency[j], s.Lower[j], s.Upper[j], s.Counts[j])
		if j == best {
			p.printf("%s\n", p.au.Green(line))
			continue
		}
		p.printf("%s\n", line)
	}
}

func (p *printer) confusion(m model.ConfusionMatrix) {
	p.printf("%-8s", "")
	for _, name := range m.Models {
		p.printf(" %8s", name)
	}
	p.printf("\n")
	for i, row := range m.Frequencies() {
		p.printf("%-8s", m.Models[i])
		for j, v := range row {
			cell := fmt.Sprintf(" %8.3f", v)
			if i == j {
				p.printf("%s", p.au.Bold(cell))
				continue
			}
			p.printf("%s", cell)
		}
		p.printf("\n")
	}
	scores, accuracy := stats.Classification(m)
	for _, s := range scores {
		p.printf("%-8s precision=%.3f recall=%.3f f1=%.3f\n", s.Model, s.Precision, s.Recall, s.F1)
	}
	p.printf("accuracy=%s\n", p.au.Yellow(fmt.Sprintf("%.3f", accuracy)))
}

func (p *printer) correlations(cs []stats.Correlation) {
	for _, c := range cs {
		line := fmt.Sprintf("%-8s r=%.3f p=%.3g n=%d", c.Label, c.R, c.P, c.N)
		if c.P < 0.05 {
			p.printf("%s\n", p.au.Green(line))
			continue
		}
		p.printf("%s\n", p.au.Red(line))
	}
}

func formatParams(params []float64) string {
	parts := make([]string, len(params))
	for i, v := range params {
		parts[i] = fmt.Sprintf("%.3f", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
