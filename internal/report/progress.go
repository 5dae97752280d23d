package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

var (
	epochStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	lossStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	evalStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// Progress renders a single-line epoch bar that is redrawn in place.
type Progress struct {
	w     io.Writer
	bar   progress.Model
	total int
}

// NewProgress returns a bar for a run of total epochs.
func NewProgress(w io.Writer, total int) *Progress {
	return &Progress{
		w:     w,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		total: total,
	}
}

// Update redraws the bar after an epoch; epoch is 1-based.
func (p *Progress) Update(epoch int, trainLoss, evalLoss float64) {
	pct := 0.0
	if p.total > 0 {
		pct = float64(epoch) / float64(p.total)
	}
	fmt.Fprintf(p.w, "\r%s %s %s %s",
		epochStyle.Render(fmt.Sprintf("epoch %d/%d", epoch, p.total)),
		p.bar.ViewAs(pct),
		lossStyle.Render(fmt.Sprintf("train %.5f", trainLoss)),
		evalStyle.Render(fmt.Sprintf("eval %.5f", evalLoss)),
	)
}

// Done ends the line.
func (p *Progress) Done() {
	fmt.Fprintln(p.w)
}
