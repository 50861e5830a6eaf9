// Package tui draws the approval waiting screen.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"ledgerdesk/internal/client/approval"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle   = lipgloss.NewStyle().Faint(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
)

type statusMsg approval.Status

type countdownMsg time.Duration

type doneMsg struct {
	result approval.Result
	err    error
}

// WaitInfo is what the screen shows about the waiting login.
type WaitInfo struct {
	Email      string
	DeviceName string
	SessionID  string
	Role       string
}

// WaitModel is the bubbletea model of the waiting screen. The gate does the
// polling; the model only renders what it reports.
type WaitModel struct {
	info    WaitInfo
	gate    *approval.Gate
	ctx     context.Context
	cancel  context.CancelFunc
	status  approval.Status
	next    time.Duration
	polls   int
	started time.Time
	done    *doneMsg
}

func NewWaitModel(ctx context.Context, gate *approval.Gate, info WaitInfo) *WaitModel {
	ctx, cancel := context.WithCancel(ctx)
	return &WaitModel{
		info:    info,
		gate:    gate,
		ctx:     ctx,
		cancel:  cancel,
		status:  approval.StatusPending,
		started: time.Now(),
	}
}

func (m *WaitModel) Init() tea.Cmd {
	return func() tea.Msg {
		res, err := m.gate.Wait(m.ctx, m.info.SessionID, m.info.Role)
		return doneMsg{result: res, err: err}
	}
}

func (m *WaitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "s":
			m.gate.SignOut()
		case "q", "ctrl+c", "esc":
			m.cancel()
		}
	case statusMsg:
		m.status = approval.Status(msg)
		m.polls++
	case countdownMsg:
		m.next = time.Duration(msg)
	case doneMsg:
		m.done = &msg
		m.cancel()
		return m, tea.Quit
	}
	return m, nil
}

func (m *WaitModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Waiting for approval"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Account:"), m.info.Email)
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Device: "), m.info.DeviceName)
	fmt.Fprintf(&b, "%s %s\n\n", labelStyle.Render("Status: "), m.statusText())

	if m.done == nil {
		b.WriteString("Approve this device from your main device.\n")
		fmt.Fprintf(&b, "Next check in %ds", int(m.next.Seconds()))
		fmt.Fprintf(&b, "  %s\n\n", labelStyle.Render(fmt.Sprintf("(%d checks, %s)", m.polls, time.Since(m.started).Round(time.Second))))
		b.WriteString(labelStyle.Render("s sign out • q stop waiting"))
	}
	return boxStyle.Render(b.String()) + "\n"
}

func (m *WaitModel) statusText() string {
	if m.done != nil {
		switch m.done.result.Outcome {
		case approval.Approved:
			return okStyle.Render("approved")
		case approval.Rejected:
			return badStyle.Render("rejected")
		case approval.SignedOut:
			return labelStyle.Render("signed out")
		case approval.TimedOut:
			return pendingStyle.Render("still waiting")
		}
	}
	switch m.status {
	case approval.StatusApproved:
		return okStyle.Render("approved")
	case approval.StatusRejected:
		return badStyle.Render("rejected")
	}
	return pendingStyle.Render("pending")
}

// Result is the gate's outcome once the program has exited.
func (m *WaitModel) Result() (approval.Result, error) {
	if m.done == nil {
		return approval.Result{Status: m.status}, context.Canceled
	}
	return m.done.result, m.done.err
}

// RunWait shows the waiting screen while a gate built from lister, signer and
// opts polls. The gate's callbacks are routed into the program.
func RunWait(ctx context.Context, lister approval.Lister, signer approval.SignOuter, opts approval.Options, info WaitInfo, in io.Reader, out io.Writer) (approval.Result, error) {
	var p *tea.Program
	userStatus, userCountdown := opts.OnStatus, opts.OnCountdown
	opts.OnStatus = func(s approval.Status) {
		if userStatus != nil {
			userStatus(s)
		}
		p.Send(statusMsg(s))
	}
	opts.OnCountdown = func(d time.Duration) {
		if userCountdown != nil {
			userCountdown(d)
		}
		p.Send(countdownMsg(d))
	}

	model := NewWaitModel(ctx, approval.NewGate(lister, signer, opts), info)
	model.next = opts.Interval
	if model.next <= 0 {
		model.next = approval.DefaultInterval
	}
	p = tea.NewProgram(model, tea.WithInput(in), tea.WithOutput(out))
	if _, err := p.Run(); err != nil {
		return approval.Result{}, err
	}
	return model.Result()
}
