// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// filePickerModel wraps the bubbles file picker for ask_file. The selection
// is empty when the user quits.
type filePickerModel struct {
	picker   filepicker.Model
	title    string
	selected string
	quitting bool
}

func newFilePickerModel(title, dir string) filePickerModel {
	fp := filepicker.New()
	fp.CurrentDirectory = dir
	fp.FileAllowed = true
	fp.DirAllowed = false
	return filePickerModel{picker: fp, title: title}
}

func (m filePickerModel) Init() tea.Cmd {
	return m.picker.Init()
}

func (m filePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	if ok, path := m.picker.DidSelectFile(msg); ok {
		m.selected = path
		return m, tea.Quit
	}
	return m, cmd
}

func (m filePickerModel) View() string {
	if m.quitting || m.selected != "" {
		return ""
	}
	return fmt.Sprintf("%s\n\n%s\n%s\n",
		TitleStyle.Render(m.title),
		m.picker.View(),
		SubtitleStyle.Render("enter select • q cancel"))
}

// runFilePicker shows the picker on the terminal and returns the chosen path.
func runFilePicker(in io.Reader, out io.Writer, title string) (string, bool, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("resolve working directory: %w", err)
	}
	program := tea.NewProgram(newFilePickerModel(title, dir), tea.WithInput(in), tea.WithOutput(out))
	final, err := program.Run()
	if err != nil {
		return "", false, err
	}
	m, ok := final.(filePickerModel)
	if !ok || m.selected == "" {
		return "", false, nil
	}
	return m.selected, true, nil
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
