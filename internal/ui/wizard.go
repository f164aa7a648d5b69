package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mohsinsiddi/w3wizard/internal/gas"
	"github.com/Mohsinsiddi/w3wizard/internal/wizard"
)

// ErrAborted is returned by RunWizard when the user quits before submitting.
var ErrAborted = errors.New("wizard aborted")

type estimateMsg struct {
	state gas.State
	err   error
}

type submitMsg struct {
	result string
	err    error
}

// WizardModel is the Bubble Tea front end for any wizard.Wizard. Field edits
// go through Set; estimates and submission run as commands so the UI never
// blocks on the node.
type WizardModel struct {
	ctx context.Context
	w   wizard.Wizard

	focus      int
	status     string
	submitting bool
	result     string
	aborted    bool
}

// NewWizardModel wraps w. ctx bounds every estimate and the submission.
func NewWizardModel(ctx context.Context, w wizard.Wizard) WizardModel {
	return WizardModel{ctx: ctx, w: w}
}

// Result is the value returned by a successful Submit.
func (m WizardModel) Result() string { return m.result }

// Aborted reports whether the user quit without submitting.
func (m WizardModel) Aborted() bool { return m.aborted }

// Init requests the first estimate.
func (m WizardModel) Init() tea.Cmd { return m.estimate() }

func (m WizardModel) estimate() tea.Cmd {
	req := m.w.EstimateRequest()
	if !req.Ready() {
		// still call through so an in-flight estimate is retired
		_, _ = m.w.Estimate(m.ctx, req)
		return nil
	}
	ctx, w := m.ctx, m.w
	return func() tea.Msg {
		st, err := w.Estimate(ctx, req)
		return estimateMsg{state: st, err: err}
	}
}

func (m WizardModel) submit() tea.Cmd {
	ctx, w := m.ctx, m.w
	return func() tea.Msg {
		res, err := w.Submit(ctx)
		return submitMsg{result: res, err: err}
	}
}

// Update implements tea.Model.
func (m WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case estimateMsg:
		// the wizard already holds the result; stale replies are dropped there
		return m, nil

	case submitMsg:
		m.submitting = false
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.result = msg.result
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.aborted = true
			return m, tea.Quit
		}
		if m.submitting {
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m WizardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v := m.w.View()
	m.focus = clamp(m.focus, len(v.Fields))

	switch msg.Type {
	case tea.KeyEsc:
		m.aborted = true
		return m, tea.Quit
	case tea.KeyTab, tea.KeyDown:
		m.focus = clamp(m.focus+1, len(v.Fields))
		return m, nil
	case tea.KeyShiftTab, tea.KeyUp:
		m.focus = clamp(m.focus-1, len(v.Fields))
		return m, nil
	case tea.KeyCtrlP:
		m.w.Prev()
		m.focus, m.status = 0, ""
		return m, nil
	case tea.KeyCtrlN:
		return m.next()
	case tea.KeyCtrlS:
		return m.trySubmit(v)
	case tea.KeyEnter:
		if v.Step == len(v.Steps)-1 {
			return m.trySubmit(v)
		}
		return m.next()
	}

	if len(v.Fields) == 0 {
		return m, nil
	}
	f := v.Fields[m.focus]
	if f.ReadOnly {
		return m, nil
	}

	value, ok := editedValue(f, msg)
	if !ok {
		return m, nil
	}
	reestimate, err := m.w.Set(f.Key, value)
	m.status = ""
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	if reestimate {
		return m, m.estimate()
	}
	return m, nil
}

// editedValue applies one key press to the field value. Select fields cycle
// with left and right; everything else is free text.
func editedValue(f wizard.FieldView, msg tea.KeyMsg) (string, bool) {
	if f.Kind == wizard.FieldSelect {
		if len(f.Options) == 0 {
			return "", false
		}
		i := indexOf(f.Options, f.Value)
		switch msg.Type {
		case tea.KeyRight:
			i = (i + 1) % len(f.Options)
		case tea.KeyLeft:
			if i < 0 {
				i = 0
			}
			i = (i - 1 + len(f.Options)) % len(f.Options)
		default:
			return "", false
		}
		return f.Options[i], true
	}

	switch msg.Type {
	case tea.KeyRunes, tea.KeySpace:
		return f.Value + string(msg.Runes), true
	case tea.KeyBackspace:
		r := []rune(f.Value)
		if len(r) == 0 {
			return "", false
		}
		return string(r[:len(r)-1]), true
	case tea.KeyCtrlU:
		return "", f.Value != ""
	}
	return "", false
}

func (m WizardModel) next() (tea.Model, tea.Cmd) {
	before := m.w.View().Step
	if err := m.w.Next(); err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.status = ""
	if m.w.View().Step != before {
		m.focus = 0
		return m, m.estimate()
	}
	return m, nil
}

func (m WizardModel) trySubmit(v wizard.View) (tea.Model, tea.Cmd) {
	if !v.CanSubmit {
		m.status = wizard.ErrNotReady.Error()
		return m, nil
	}
	m.submitting = true
	m.status = ""
	return m, m.submit()
}

// View implements tea.Model.
func (m WizardModel) View() string {
	if m.submitting {
		return StyleBorder.Render(Info("Submitting…")) + "\n"
	}
	if m.result != "" {
		return StyleBorder.Render(Success("Submitted "+Addr(m.result))) + "\n"
	}
	return StyleBorder.Render(Render(m.w.View(), m.focus, m.status)) + "\n"
}

// Render draws one wizard view. focus is the highlighted field index and
// status an optional message from the last key press.
func Render(v wizard.View, focus int, status string) string {
	var sb strings.Builder
	sb.WriteString(StyleTitle.Render(v.Title) + "\n")
	sb.WriteString(renderSteps(v.Steps, v.Step) + "\n\n")

	focus = clamp(focus, len(v.Fields))
	for i, f := range v.Fields {
		sb.WriteString(renderField(f, i == focus))
	}
	if len(v.Summary) > 0 {
		sb.WriteString("\n")
		for _, line := range v.Summary {
			sb.WriteString("  " + Val(line) + "\n")
		}
	}
	if v.ShowGas {
		sb.WriteString("\n" + renderGas(v.Gas) + "\n")
	}
	if v.Warning != "" {
		sb.WriteString(Warn(v.Warning) + "\n")
	}
	if v.Err != nil {
		sb.WriteString(Err(v.Err.Error()) + "\n")
	}
	if status != "" {
		sb.WriteString(Err(status) + "\n")
	}
	sb.WriteString("\n" + Hint(helpLine(v)))
	return sb.String()
}

func renderSteps(titles []string, step int) string {
	parts := make([]string, len(titles))
	for i, t := range titles {
		label := fmt.Sprintf("%d. %s", i+1, t)
		if i == step {
			parts[i] = StyleFocus.Render(label)
		} else {
			parts[i] = Meta(label)
		}
	}
	return strings.Join(parts, Meta(" › "))
}

func renderField(f wizard.FieldView, focused bool) string {
	marker := "  "
	label := fmt.Sprintf("%-14s", Truncate(f.Label, 14))
	if focused {
		marker = StyleFocus.Render("▸ ")
		label = StyleFocus.Render(label)
	} else {
		label = Meta(label)
	}

	value := f.Value
	if f.Kind == wizard.FieldMultiline {
		value = Truncate(strings.Join(strings.Fields(value), " "), 60)
	}
	switch {
	case f.Kind == wizard.FieldSelect:
		value = "‹ " + Val(value) + " ›"
	case value == "" && f.Hint != "":
		value = Hint("<" + f.Hint + ">")
	default:
		value = Val(value)
	}
	if focused && f.Kind != wizard.FieldSelect && !f.ReadOnly {
		value += "█"
	}

	line := marker + label + " " + value
	if f.ReadOnly {
		line += " " + Hint("(read-only)")
	} else if f.Hint != "" && f.Value != "" {
		line += " " + Hint(f.Hint)
	}
	line += "\n"
	if f.Err != nil {
		line += "    " + Err(f.Err.Error()) + "\n"
	}
	return line
}

func renderGas(st gas.State) string {
	switch {
	case st.Pending:
		return Meta("Gas:           estimating…")
	case st.HasEstimate():
		return Meta("Gas:           ") + Val(fmt.Sprintf("%d", st.Adjusted)) +
			Meta(fmt.Sprintf(" (estimated %d)", st.Estimated))
	default:
		return Meta("Gas:           -")
	}
}

func helpLine(v wizard.View) string {
	keys := []string{"tab/↑↓ move", "←→ choose"}
	if v.Step > 0 {
		keys = append(keys, "ctrl+p back")
	}
	if v.Step < len(v.Steps)-1 {
		keys = append(keys, "enter next")
	} else {
		keys = append(keys, "enter submit")
	}
	return strings.Join(append(keys, "esc quit"), " · ")
}

func clamp(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func indexOf(xs []string, s string) int {
	for i, x := range xs {
		if x == s {
			return i
		}
	}
	return -1
}

// RunWizard runs w full screen until it is submitted or abandoned and
// returns the submit result.
func RunWizard(ctx context.Context, w wizard.Wizard) (string, error) {
	p := tea.NewProgram(NewWizardModel(ctx, w), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("wizard error: %w", err)
	}
	m := final.(WizardModel)
	if m.aborted || m.result == "" {
		return "", ErrAborted
	}
	return m.result, nil
}
