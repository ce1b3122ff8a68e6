package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"lynkd/connection"
)

const pickerVisibleRows = 8

// pickerModel is a filterable model list: type to narrow, j/k or arrows
// to move, enter handled by the parent.
type pickerModel struct {
	all      []connection.ModelDescriptor
	filtered []connection.ModelDescriptor
	cursor   int
	filter   textinput.Model
	loading  bool
	loadErr  string
}

func newPickerModel() pickerModel {
	filter := textinput.New()
	filter.Placeholder = "Type to filter models"
	filter.Width = 40
	filter.CharLimit = 100
	return pickerModel{filter: filter}
}

// SetModels installs the candidate list and resets filtering.
func (p *pickerModel) SetModels(models []connection.ModelDescriptor) {
	p.all = models
	p.filtered = models
	p.cursor = 0
	p.loading = false
	p.loadErr = ""
	p.filter.SetValue("")
	p.filter.Focus()
}

// Selected returns the model under the cursor, or nil when the filtered
// list is empty.
func (p *pickerModel) Selected() *connection.ModelDescriptor {
	if len(p.filtered) == 0 || p.cursor >= len(p.filtered) {
		return nil
	}
	return &p.filtered[p.cursor]
}

func (p *pickerModel) Update(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "ctrl+k":
		if p.cursor > 0 {
			p.cursor--
		}
		return nil
	case "down", "ctrl+j":
		if p.cursor < len(p.filtered)-1 {
			p.cursor++
		}
		return nil
	}

	var cmd tea.Cmd
	p.filter, cmd = p.filter.Update(msg)
	p.applyFilter()
	return cmd
}

func (p *pickerModel) applyFilter() {
	query := strings.TrimSpace(p.filter.Value())
	if query == "" {
		p.filtered = p.all
	} else {
		names := make([]string, len(p.all))
		for i, m := range p.all {
			names[i] = m.ID
		}
		matches := fuzzy.Find(query, names)
		filtered := make([]connection.ModelDescriptor, 0, len(matches))
		for _, match := range matches {
			filtered = append(filtered, p.all[match.Index])
		}
		p.filtered = filtered
	}
	if p.cursor >= len(p.filtered) {
		p.cursor = 0
	}
}

func (p *pickerModel) View() string {
	var b strings.Builder

	b.WriteString(InputStyle.Render(p.filter.View()))
	b.WriteString("\n\n")

	switch {
	case p.loading:
		b.WriteString(ValidatingStyle.Render("Loading models..."))
		return b.String()
	case p.loadErr != "":
		b.WriteString(ErrorStyle.Render(p.loadErr))
		return b.String()
	case len(p.filtered) == 0:
		b.WriteString(DimStyle.Render("No models match"))
		return b.String()
	}

	start := 0
	if p.cursor >= pickerVisibleRows {
		start = p.cursor - pickerVisibleRows + 1
	}
	end := start + pickerVisibleRows
	if end > len(p.filtered) {
		end = len(p.filtered)
	}

	for i := start; i < end; i++ {
		m := p.filtered[i]
		line := runewidth.Truncate(m.ID, 48, "…")
		if i == p.cursor {
			b.WriteString(SelectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	if end < len(p.filtered) {
		b.WriteString(DimStyle.Render("  ..."))
	}

	return b.String()
}
