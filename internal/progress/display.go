package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const defaultBarWidth = 34

var (
	rowDescStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("51"))
	rowPctStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

type rowsMsg []Row

// Display renders visible task rows as a live terminal region. It runs a
// bubbletea program on its own goroutine and receives row snapshots from a
// Tracker via Update.
type Display struct {
	prog *tea.Program
	done chan struct{}
	stop sync.Once
}

func NewDisplay(out io.Writer) *Display {
	d := &Display{done: make(chan struct{})}
	d.prog = tea.NewProgram(
		newDisplayModel(),
		tea.WithOutput(out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)
	return d
}

// Start launches the render loop. Must be called before any Tracker built
// on this display registers a task.
func (d *Display) Start() {
	go func() {
		_, _ = d.prog.Run()
		close(d.done)
	}()
}

// Update implements Surface.
func (d *Display) Update(rows []Row) {
	d.prog.Send(rowsMsg(rows))
}

// Println prints a line above the live region without garbling it.
func (d *Display) Println(args ...any) {
	d.prog.Println(args...)
}

// Stop tears the live region down and waits for the render loop to exit.
// Safe to call more than once.
func (d *Display) Stop() {
	d.stop.Do(func() {
		d.prog.Quit()
		<-d.done
	})
}

type displayModel struct {
	rows []Row
	bar  progress.Model
}

func newDisplayModel() displayModel {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = defaultBarWidth
	return displayModel{bar: bar}
}

func (m displayModel) Init() tea.Cmd {
	return nil
}

func (m displayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case rowsMsg:
		m.rows = msg
	case tea.WindowSizeMsg:
		width := msg.Width / 2
		if width < 10 {
			width = 10
		}
		if width > 60 {
			width = 60
		}
		m.bar.Width = width
	}
	return m, nil
}

func (m displayModel) View() string {
	if len(m.rows) == 0 {
		return ""
	}
	var b strings.Builder
	for _, r := range m.rows {
		b.WriteString(m.bar.ViewAs(r.Percent / 100))
		b.WriteString(" ")
		b.WriteString(rowPctStyle.Render(fmt.Sprintf("%3.0f%%", r.Percent)))
		b.WriteString(" ")
		b.WriteString(rowDescStyle.Render(r.Description))
		b.WriteString("\n")
	}
	return b.String()
}
