// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// terminalShell is the host UI mod scripts talk to from the CLI. Windows and
// alerts become printed lines. On a terminal ask_file opens a file picker;
// otherwise file prompts read one line from stdin, where a blank line or end
// of input cancels.
type terminalShell struct {
	raw         io.Reader
	in          *bufio.Reader
	out         io.Writer
	interactive bool
	mu          sync.Mutex
}

func newTerminalShell(in io.Reader, out io.Writer) *terminalShell {
	return &terminalShell{raw: in, in: bufio.NewReader(in), out: out, interactive: isTerminal(in)}
}

func (s *terminalShell) OpenWindow(title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "%s %s\n", infoIcon, TitleStyle.Render("["+title+"]"))
}

func (s *terminalShell) Alert(title, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body := WarningStyle.Render(title)
	if message != "" {
		body += "\n" + message
	}
	fmt.Fprintln(s.out, alertStyle.Render(body))
}

func (s *terminalShell) AskFile() (string, bool) {
	if s.interactive {
		s.mu.Lock()
		path, ok, err := runFilePicker(s.raw, s.out, "Select a file")
		s.mu.Unlock()
		if err == nil {
			return path, ok
		}
		fmt.Fprintf(s.out, "%s file picker unavailable: %v\n", warnIcon, err)
	}
	return s.prompt("Select a file")
}

func (s *terminalShell) AskSavePath() (string, bool) {
	return s.prompt("Save as")
}

func (s *terminalShell) prompt(label string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(s.out, "%s %s %s: ", infoIcon, label, SubtitleStyle.Render("(empty to cancel)"))
	line, err := s.in.ReadString('\n')
	path := strings.TrimSpace(line)
	if path == "" || (err != nil && line == "") {
		fmt.Fprintln(s.out)
		return "", false
	}
	return path, true
}
