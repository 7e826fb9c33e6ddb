// =============================================================================
// FILE: internal/downloader/progress_view.go
// PURPOSE: Foreground progress display for the download/download-recent CLI
//          commands. Subscribes to the downloader's progress.Tracker and
//          renders a Bubble Tea program showing lifetime counters plus the
//          byte progress of whichever transfer is currently in flight.
// =============================================================================

package downloader

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	dlprogress "gbmm/internal/download/progress"
)

var (
	progressTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	progressMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	progressErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626"))
)

// progressMsg carries one dlprogress.Update into the Bubble Tea event loop.
type progressMsg dlprogress.Update

// doneMsg signals that the run this view is watching has finished.
type doneMsg struct{}

// progressModel is the Bubble Tea model backing RunProgressView.
type progressModel struct {
	bar      progress.Model
	updates  <-chan progressMsg
	done     <-chan struct{}
	last     dlprogress.Update
	finished bool
}

// RunProgressView drives a terminal progress display until the tracker
// reports every queued item accounted for (completed+failed+skipped >=
// total), until two 500ms waits pass with no update, or until the user
// presses q or ctrl+c. It registers its own Tracker callback and unregisters
// nothing on return since Tracker has no Unsubscribe — callers create one
// Tracker per invocation of the foreground command.
func RunProgressView(tracker *dlprogress.Tracker, total int64) error {
	updates := make(chan progressMsg, 64)
	done := make(chan struct{})

	tracker.OnUpdate(func(u dlprogress.Update) {
		select {
		case updates <- progressMsg(u):
		default:
		}
		if u.Completed+u.Failed+u.Skipped >= total && total > 0 {
			select {
			case <-done:
			default:
				close(done)
			}
		}
	})

	m := progressModel{
		bar:     progress.New(progress.WithDefaultGradient()),
		updates: updates,
		done:    done,
	}

	p := tea.NewProgram(m)
	_, err := p.Run()
	return err
}

func (m progressModel) Init() tea.Cmd {
	return m.waitForUpdate()
}

func (m progressModel) waitForUpdate() tea.Cmd {
	return func() tea.Msg {
		select {
		case u := <-m.updates:
			return u
		case <-m.done:
			return doneMsg{}
		case <-time.After(500 * time.Millisecond):
			return doneMsg{}
		}
	}
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case progressMsg:
		m.last = dlprogress.Update(msg)
		return m, m.waitForUpdate()
	case doneMsg:
		if m.finished {
			return m, tea.Quit
		}
		m.finished = true
		return m, m.waitForUpdate()
	}
	return m, nil
}

func (m progressModel) View() string {
	u := m.last
	pct := 0.0
	if u.BytesTotal > 0 {
		pct = float64(u.BytesDone) / float64(u.BytesTotal)
	}

	header := progressTitleStyle.Render(fmt.Sprintf("downloading %s (%d failed, %d skipped)",
		dlprogress.FormatProgress(u.Completed, u.Total), u.Failed, u.Skipped))

	bar := m.bar.ViewAs(pct)

	eta := dlprogress.FormatETA(u.BytesTotal-u.BytesDone, u.Speed)
	byteLine := progressMutedStyle.Render(fmt.Sprintf("%s / %s  %s  eta %s",
		dlprogress.FormatBytes(u.BytesDone), dlprogress.FormatBytes(u.BytesTotal), dlprogress.FormatSpeed(u.Speed), eta))

	status := ""
	if m.finished {
		if u.Failed > 0 {
			status = progressErrorStyle.Render(fmt.Sprintf("\ndone, %d failed", u.Failed))
		} else {
			status = progressMutedStyle.Render("\ndone")
		}
	}

	return fmt.Sprintf("%s\n%s\n%s%s\n", header, bar, byteLine, status)
}
