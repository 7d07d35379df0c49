package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/itsbohara/anchor/internal/models"
	"github.com/itsbohara/anchor/internal/pathcheck"
)

const (
	fieldName = iota
	fieldPath
	fieldType
	fieldStatus
	fieldTags
	fieldDescription
	fieldPinned
	fieldCount
)

var fieldLabels = [fieldCount]string{"Name", "Path", "Type", "Status", "Tags", "Notes", "Pinned"}

// fieldKeys are the validation error keys per field.
var fieldKeys = [fieldCount]string{"referenceName", "absolutePath", "type", "status", "", "", ""}

// choice is a field that cycles through a fixed set of values.
type choice struct {
	options []string
	index   int
}

func (c *choice) step(delta int) {
	c.index = (c.index + delta + len(c.options)) % len(c.options)
}

func (c *choice) value() string { return c.options[c.index] }

// form is the inline "add reference" editor. Its path field feeds the
// path assistant on every change.
type form struct {
	inputs  [fieldCount]textinput.Model
	choices map[int]*choice
	focus   int

	errors  map[string]string
	err     string
	path    pathcheck.State
	saving  bool
	checker *pathcheck.Assistant
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = ""
	ti.CharLimit = 1024
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

func newForm(checker *pathcheck.Assistant) *form {
	statuses := make([]string, len(models.StatusOrder))
	for i, s := range models.StatusOrder {
		statuses[i] = string(s)
	}
	f := &form{
		checker: checker,
		errors:  map[string]string{},
		choices: map[int]*choice{
			fieldType:   {options: []string{string(models.TypeFolder), string(models.TypeFile)}},
			fieldStatus: {options: statuses},
			fieldPinned: {options: []string{"no", "yes"}},
		},
	}
	f.inputs[fieldName] = newInput("My project")
	f.inputs[fieldPath] = newInput("/absolute/path")
	f.inputs[fieldTags] = newInput("go, cli")
	f.inputs[fieldDescription] = newInput("Optional notes")
	f.inputs[fieldName].Focus()
	return f
}

// draft builds the draft the form currently describes.
func (f *form) draft() models.Draft {
	desc := f.inputs[fieldDescription].Value()
	return models.Draft{
		ReferenceName: f.inputs[fieldName].Value(),
		AbsolutePath:  f.inputs[fieldPath].Value(),
		Type:          models.Type(f.choices[fieldType].value()),
		Status:        models.Status(f.choices[fieldStatus].value()),
		Tags:          models.NormalizeTags(f.inputs[fieldTags].Value()),
		Description:   &desc,
		Pinned:        f.choices[fieldPinned].value() == "yes",
	}.Normalize()
}

func (f *form) last() bool { return f.focus == fieldCount-1 }

func (f *form) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + fieldCount) % fieldCount
	if _, ok := f.choices[f.focus]; !ok {
		f.inputs[f.focus].Focus()
	}
}

func (f *form) update(msg tea.Msg) tea.Cmd {
	if c, ok := f.choices[f.focus]; ok {
		if k, is := msg.(tea.KeyMsg); is {
			switch {
			case key.Matches(k, keys.Left):
				c.step(-1)
			case key.Matches(k, keys.Right):
				c.step(1)
			}
		}
		return nil
	}

	before := f.inputs[fieldPath].Value()
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	if after := f.inputs[fieldPath].Value(); after != before && f.checker != nil {
		f.checker.Edit(after)
	}
	return cmd
}

func (f *form) close() {
	if f.checker != nil {
		f.checker.Close()
	}
}

func (f *form) viewChoice(i int) string {
	v := "‹ " + f.choices[i].value() + " ›"
	if i == f.focus {
		return selectedStyle.Render(v)
	}
	return itemStyle.Render(v)
}

func (f *form) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("New reference"))
	b.WriteString("\n\n")
	for i := range fieldCount {
		b.WriteString(labelStyle.Render(fieldLabels[i]))
		if _, ok := f.choices[i]; ok {
			b.WriteString(f.viewChoice(i))
		} else {
			b.WriteString(f.inputs[i].View())
		}
		b.WriteString("\n")
		if msg, ok := f.errors[fieldKeys[i]]; ok && fieldKeys[i] != "" {
			b.WriteString(errorStyle.Render("        " + msg))
			b.WriteString("\n")
		}
		if i == fieldPath {
			switch {
			case f.path.Checking:
				b.WriteString(pathStyle.Render("        checking…"))
				b.WriteString("\n")
			case f.path.Warning != "":
				b.WriteString(warningStyle.Render("        " + f.path.Warning))
				b.WriteString("\n")
			}
		}
	}
	if f.err != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(f.err))
		b.WriteString("\n")
	}
	if f.saving {
		b.WriteString("\n")
		b.WriteString(pathStyle.Render("saving…"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(footerStyle.Render(helpLine(keys.Save, keys.Next, keys.Right, keys.Dismiss)))
	return b.String()
}
