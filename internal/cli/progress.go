package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/beethoven-go/internal/client"
)

const pollInterval = time.Second

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// stageProgress maps a status to a fraction of the pipeline.
func stageProgress(status string) float64 {
	switch status {
	case "transcribing":
		return 1.0 / 3
	case "analyzing":
		return 2.0 / 3
	case "done", "error":
		return 1
	default:
		return 0
	}
}

// stageLabel is the human description of a status.
func stageLabel(status string) string {
	switch status {
	case "pending":
		return "queued"
	case "transcribing":
		return "normalizing and transcribing audio"
	case "analyzing":
		return "analyzing transcript"
	case "done":
		return "done"
	case "error":
		return "failed"
	default:
		return status
	}
}

// tickMsg triggers polling the recording status
type tickMsg time.Time

// statusUpdateMsg carries the updated status
type statusUpdateMsg struct {
	view *client.StatusView
	err  error
}

// progressModel is the bubbletea model for recording progress.
type progressModel struct {
	client   *client.Client
	id       string
	view     *client.StatusView
	progress progress.Model
	theme    Theme
	started  time.Time
	done     bool
	quitting bool
	err      error
}

func newProgressModel(c *client.Client, id string) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		client:   c,
		id:       id,
		progress: prog,
		theme:    defaultTheme,
		started:  time.Now(),
	}
}

// Init returns the initial command (fetch immediately).
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		m.fetchStatus(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		return m, m.fetchStatus()

	case statusUpdateMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("failed to fetch status: %w", msg.err)
			m.done = true
			return m, tea.Quit
		}

		m.view = msg.view
		switch m.view.Status {
		case "done":
			m.done = true
			return m, tea.Quit
		case "error":
			m.done = true
			m.err = fmt.Errorf("processing failed, see server logs for recording %s", m.id)
			return m, tea.Quit
		}
		return m, tickCmd()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m progressModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	if m.view == nil {
		return "Loading recording status...\n"
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.view.Status))
	bar := m.progress.ViewAs(stageProgress(m.view.Status))
	elapsed := time.Since(m.started).Round(time.Second)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to stop watching (processing continues on the server)")

	return fmt.Sprintf("%s %s %s (%s)\n%s\n", status, bar, stageLabel(m.view.Status), elapsed, hint)
}

func (m progressModel) finalView() string {
	if m.quitting {
		msg := fmt.Sprintf("\nRecording %s continues processing on the server.\nUse 'beethoven status %s' to check it.\n",
			m.id, m.id)
		return m.theme.hintStyle().Render(msg)
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ %s\n", m.err))
	}

	return m.theme.completedStyle().Render(fmt.Sprintf("✓ Recording %s processed in %s\n",
		m.id, time.Since(m.started).Round(time.Second)))
}

// fetchStatus runs in a command to avoid blocking Update().
func (m progressModel) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		view, err := m.client.GetStatus(ctx, m.id)
		return statusUpdateMsg{view: view, err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// RunRecordingProgress runs the interactive progress UI for a recording.
// Returns nil on success or Ctrl+C, error when processing failed.
func RunRecordingProgress(c *client.Client, id string) error {
	p := tea.NewProgram(newProgressModel(c, id))

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(progressModel); ok {
		if m.quitting {
			return nil
		}
		if m.err != nil {
			return m.err
		}
	}
	return nil
}

// waitPlain polls without a TTY, printing each status change.
func waitPlain(ctx context.Context, c *client.Client, id string) (*client.StatusView, error) {
	var last string
	return c.WaitForTerminal(ctx, id, client.WaitOptions{
		OnPoll: func(v client.StatusView) {
			if v.Status != last {
				fmt.Printf("%s  %-13s %s\n", time.Now().Format("15:04:05"), v.Status, stageLabel(v.Status))
				last = v.Status
			}
		},
	})
}

// waitForRecording follows a recording until it finishes, using the
// progress UI on a terminal.
func waitForRecording(ctx context.Context, id string) error {
	if isInteractive() {
		return RunRecordingProgress(apiClient, id)
	}
	view, err := waitPlain(ctx, apiClient, id)
	if err != nil {
		return err
	}
	if view.Status == "error" {
		return fmt.Errorf("recording %s failed", id)
	}
	return nil
}
