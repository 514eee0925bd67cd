package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/meikuraledutech/architex"
	"github.com/meikuraledutech/architex/jobs"
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Follow a generation job in an interactive view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			poller := jobs.NewPoller(a.client(), a.cfg.Polling.Interval, a.cfg.Polling.MaxAttempts, a.log)
			m := newWatchModel(args[0], a.cfg.Polling.MaxAttempts)
			p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithOutput(cmd.OutOrStdout()))

			go func() {
				job, err := poller.Wait(ctx, args[0], func(j architex.Job) { p.Send(jobMsg(j)) })
				p.Send(doneMsg{job: job, err: err})
			}()

			final, err := p.Run()
			if err != nil {
				return err
			}
			if wm, ok := final.(watchModel); ok && wm.err != nil {
				return wm.err
			}
			return nil
		},
	}
}

type jobMsg architex.Job

type doneMsg struct {
	job *architex.Job
	err error
}

type watchModel struct {
	jobID       string
	maxAttempts int
	spinner     spinner.Model
	started     time.Time

	status architex.JobStatus
	polls  int
	job    *architex.Job
	err    error
	done   bool
}

func newWatchModel(jobID string, maxAttempts int) watchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return watchModel{
		jobID:       jobID,
		maxAttempts: maxAttempts,
		spinner:     s,
		started:     time.Now(),
		status:      architex.JobPending,
	}
}

func (m watchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.err = fmt.Errorf("stopped watching job %s", m.jobID)
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case jobMsg:
		m.polls++
		m.status = msg.Status

	case doneMsg:
		m.done = true
		m.job = msg.job
		m.err = msg.err
		if msg.job != nil {
			m.status = msg.job.Status
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("architex") + "  job " + m.jobID + "\n\n")

	if !m.done {
		fmt.Fprintf(&b, "%s %s  %s\n",
			m.spinner.View(),
			statusStyle(m.status).Render(string(m.status)),
			labelStyle.Render(fmt.Sprintf("poll %d/%d", m.polls, m.maxAttempts)),
		)
		b.WriteString(labelStyle.Render("elapsed") + time.Since(m.started).Round(time.Second).String() + "\n")
		b.WriteString("\n" + labelStyle.Render("q to quit") + "\n")
		return b.String()
	}

	if m.job != nil {
		b.WriteString(resultLines(m.job))
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	}
	return b.String()
}
