// Package tui is an interactive directive builder for the interface the
// caller supplies: toggle acquisition sources, fill in static fields,
// preview the resulting directive string, then run it and see the
// applied-sections bitmask. It is built on a bubbletea/lipgloss
// menu-and-value-input idiom.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/virtualsquare/iothconf-go/pkg/orchestrator"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("170")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)

	previewStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("246"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2)
)

// toggle is one boolean directive tag the menu can flip.
type toggle struct {
	label string
	tag   string
}

var toggles = []toggle{
	{"Ethernet bring-up (eth)", "eth"},
	{"DHCPv4 (dhcp4)", "dhcp4"},
	{"DHCPv6 (dhcp6)", "dhcp6"},
	{"Router Discovery (rd)", "rd"},
	{"SLAAC address (slaac)", "slaac"},
}

// field is one free-text directive tag the menu can fill in.
type field struct {
	label string
	tag   string
}

var fields = []field{
	{"Static IP (ip=addr/prefix)", "ip"},
	{"Static gateway (gw=addr)", "gw"},
	{"Static DNS server (dns=addr)", "dns"},
	{"Search domain (domain=name)", "domain"},
	{"FQDN (fqdn=name)", "fqdn"},
}

// Runner applies a parsed directive; callers supply the orchestrator
// entry point so this package never depends on ifstack/confdata.
type Runner func(d *orchestrator.Directive) (orchestrator.Flags, error)

type model struct {
	iface string
	run   Runner

	toggled map[string]bool
	values  map[string]string

	cursor      int
	editing     bool
	editBuffer  string
	editingTag  string
	status      string
	statusError bool
	done        bool
}

func initialModel(iface string, run Runner) model {
	return model{
		iface:   iface,
		run:     run,
		toggled: make(map[string]bool),
		values:  make(map[string]string),
		status:  "↑/↓ select, space/enter toggle or edit, r run, q quit",
	}
}

func (m model) Init() tea.Cmd { return tea.EnterAltScreen }

// itemCount returns the combined toggle+field row count.
func (m model) itemCount() int { return len(toggles) + len(fields) }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.editing {
		switch keyMsg.String() {
		case "enter":
			m.values[m.editingTag] = m.editBuffer
			m.editing = false
			m.status = fmt.Sprintf("set %s=%s", m.editingTag, m.editBuffer)
			m.statusError = false
		case "esc":
			m.editing = false
			m.status = "edit cancelled"
		case "backspace":
			if len(m.editBuffer) > 0 {
				m.editBuffer = m.editBuffer[:len(m.editBuffer)-1]
			}
		default:
			if len(keyMsg.String()) == 1 {
				m.editBuffer += keyMsg.String()
			}
		}
		return m, nil
	}

	switch keyMsg.String() {
	case "q", "ctrl+c":
		m.done = true
		return m, tea.Quit
	case "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down":
		if m.cursor < m.itemCount()-1 {
			m.cursor++
		}
	case " ":
		if m.cursor < len(toggles) {
			tag := toggles[m.cursor].tag
			m.toggled[tag] = !m.toggled[tag]
		}
	case "enter":
		if m.cursor < len(toggles) {
			tag := toggles[m.cursor].tag
			m.toggled[tag] = !m.toggled[tag]
		} else {
			f := fields[m.cursor-len(toggles)]
			m.editing = true
			m.editingTag = f.tag
			m.editBuffer = m.values[f.tag]
		}
	case "r":
		m.applyDirective()
	}
	return m, nil
}

func (m *model) applyDirective() {
	directive := m.buildDirective()
	d, err := orchestrator.ParseDirective(directive)
	if err != nil {
		m.status = errorStyle.Render("parse error: " + err.Error())
		m.statusError = true
		return
	}
	if d.Iface == "" {
		d.Iface = m.iface
	}
	if m.run == nil {
		m.status = "no runner configured"
		m.statusError = true
		return
	}
	applied, err := m.run(d)
	if err != nil {
		m.status = errorStyle.Render("run failed: " + err.Error())
		m.statusError = true
		return
	}
	m.status = successStyle.Render(fmt.Sprintf("applied: %08b", uint8(applied)))
	m.statusError = false
}

// buildDirective renders the current toggle/field selections into a
// directive string in the same tag[=value] grammar orchestrator.ParseDirective
// accepts.
func (m model) buildDirective() string {
	var parts []string
	for _, t := range toggles {
		if m.toggled[t.tag] {
			parts = append(parts, t.tag)
		}
	}
	for _, f := range fields {
		if v, ok := m.values[f.tag]; ok && v != "" {
			parts = append(parts, f.tag+"="+v)
		}
	}
	if m.iface != "" {
		parts = append(parts, "iface="+m.iface)
	}
	return strings.Join(parts, ",")
}

func (m model) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(fmt.Sprintf(" iothconfd interactive — %s ", m.iface)))
	s.WriteString("\n\n")

	for i, t := range toggles {
		s.WriteString(m.renderRow(i, t.label, checkbox(m.toggled[t.tag])))
	}
	for i, f := range fields {
		idx := len(toggles) + i
		val := m.values[f.tag]
		if val == "" {
			val = "(unset)"
		}
		s.WriteString(m.renderRow(idx, f.label, val))
	}
	s.WriteString("\n")

	s.WriteString(previewStyle.Render("directive: " + m.buildDirective()))
	s.WriteString("\n\n")

	if m.editing {
		s.WriteString(boxStyle.Render(fmt.Sprintf("%s = %s_", m.editingTag, m.editBuffer)))
		s.WriteString("\n\n")
	}

	if m.status != "" {
		if m.statusError {
			s.WriteString(errorStyle.Render(m.status))
		} else {
			s.WriteString(m.status)
		}
		s.WriteString("\n")
	}
	return s.String()
}

func (m model) renderRow(idx int, label, value string) string {
	prefix := "  "
	if idx == m.cursor {
		prefix = selectedStyle.Render("> ")
	}
	return fmt.Sprintf("%s%-32s %s\n", prefix, label, value)
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

// Run launches the interactive directive builder for iface, applying the
// assembled directive through run whenever the user presses 'r'.
func Run(iface string, run Runner) error {
	p := tea.NewProgram(initialModel(iface, run), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
