package prompt

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/haldane/guided/internal/workflow"
)

var chooserHelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999")).PaddingLeft(2)

// optionItem wraps a workflow option for list display.
type optionItem struct {
	opt workflow.Option
}

func (i optionItem) Title() string       { return i.opt.Key }
func (i optionItem) Description() string { return i.opt.Description }
func (i optionItem) FilterValue() string { return i.opt.Key }

// chooserModel is the bubbletea model behind the interactive choice
// selector: enter picks, esc goes back, s skips an optional step, ctrl+c
// cancels the run.
type chooserModel struct {
	step    workflow.Step
	options list.Model
	outcome Outcome
	decided bool
}

func newChooserModel(step workflow.Step) chooserModel {
	items := make([]list.Item, len(step.Options))
	for i, opt := range step.Options {
		items[i] = optionItem{opt: opt}
	}
	delegate := list.NewDefaultDelegate()
	delegate.SetHeight(2)
	delegate.SetSpacing(0)
	options := list.New(items, delegate, 0, 0)
	options.Title = step.Prompt
	options.SetShowStatusBar(false)
	options.SetFilteringEnabled(false)
	options.SetShowHelp(false)
	options.SetSize(60, len(items)*2+6)

	model := chooserModel{step: step, options: options}
	// Preselect the default so enter-on-open accepts it.
	if step.HasDefault() {
		for i, opt := range step.Options {
			if key, ok := step.MatchOption(step.Default); ok && opt.Key == key {
				model.options.Select(i)
				break
			}
		}
	}
	return model
}

func (m chooserModel) Init() tea.Cmd { return nil }

func (m chooserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.options.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if item, ok := m.options.SelectedItem().(optionItem); ok {
				m.outcome = Value(item.opt.Key)
				m.decided = true
				return m, tea.Quit
			}
		case "esc":
			m.outcome = Back()
			m.decided = true
			return m, tea.Quit
		case "s":
			if !m.step.Required {
				m.outcome = Skip()
				m.decided = true
				return m, tea.Quit
			}
		case "ctrl+c", "q":
			m.outcome = Cancel()
			m.decided = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.options, cmd = m.options.Update(msg)
	return m, cmd
}

func (m chooserModel) View() string {
	help := "enter select · esc back · q cancel"
	if !m.step.Required {
		help = "enter select · esc back · s skip · q cancel"
	}
	return m.options.View() + "\n" + chooserHelpStyle.Render(help)
}

// runChooser drives the selector on the given streams and returns the
// decided outcome. Quitting without a decision counts as cancellation.
func runChooser(step workflow.Step, in io.Reader, out io.Writer) (Outcome, error) {
	program := tea.NewProgram(newChooserModel(step), tea.WithInput(in), tea.WithOutput(out))
	final, err := program.Run()
	if err != nil {
		return Outcome{}, fmt.Errorf("prompt: choice selector for %s: %w", step.ID, err)
	}
	model, ok := final.(chooserModel)
	if !ok || !model.decided {
		return Cancel(), nil
	}
	return model.outcome, nil
}
