// Package progress is the optional live view for a run, driven by the
// driver's non-blocking Progress channel (mirrors the non-blocking
// channel-write pattern zboralski-galago/cmd/galago/main.go uses for its
// own output stream).
package progress

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Fraunhofer-AISEC/archie/internal/driver"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

type tickMsg time.Time

type model struct {
	ch       <-chan driver.Progress
	maxInsns uint64

	bar     progress.Model
	spin    spinner.Model
	latest  driver.Progress
	done    bool
	endNote string
}

// New builds a bubbletea program model that renders instruction_count and
// tbcounter as they arrive on ch, against maxInsns as the completion bound.
func New(ch <-chan driver.Progress, maxInsns uint64) tea.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return model{
		ch:       ch,
		maxInsns: maxInsns,
		bar:      progress.New(progress.WithDefaultGradient()),
		spin:     s,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, waitForProgress(m.ch), tick())
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitForProgress(ch <-chan driver.Progress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return doneMsg{}
		}
		return p
	}
}

type doneMsg struct{}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case driver.Progress:
		m.latest = msg
		return m, waitForProgress(m.ch)
	case doneMsg:
		m.done = true
		m.endNote = "run complete"
		return m, tea.Quit
	case tickMsg:
		return m, tick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	frac := 0.0
	if m.maxInsns > 0 {
		frac = float64(m.latest.InstructionCount) / float64(m.maxInsns)
		if frac > 1 {
			frac = 1
		}
	}
	if m.done {
		return doneStyle.Render(fmt.Sprintf("%s  instructions=%d blocks=%d\n", m.endNote, m.latest.InstructionCount, m.latest.TbCounter))
	}
	return fmt.Sprintf(
		"%s %s %s\n%s instructions=%d blocks=%d\n",
		m.spin.View(),
		labelStyle.Render("running"),
		m.bar.ViewAs(frac),
		labelStyle.Render("progress:"),
		m.latest.InstructionCount,
		m.latest.TbCounter,
	)
}
