package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/meikuraledutech/architex"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(12)
)

func statusStyle(s architex.JobStatus) lipgloss.Style {
	switch s {
	case architex.JobCompleted:
		return okStyle
	case architex.JobCompletedWithWarnings:
		return warnStyle
	case architex.JobFailed:
		return errorStyle
	}
	return lipgloss.NewStyle()
}

// resultLines renders a finished job for the terminal.
func resultLines(job *architex.Job) string {
	s := titleStyle.Render("Job "+job.ID) + "  " + statusStyle(job.Status).Render(string(job.Status)) + "\n"
	if job.Result == nil {
		return s
	}
	if job.Result.RepoURL != "" {
		s += labelStyle.Render("repository") + job.Result.RepoURL + "\n"
	}
	if job.Result.DeploymentURL != "" {
		s += labelStyle.Render("deployment") + job.Result.DeploymentURL + "\n"
	}
	if job.Result.FilesCount > 0 {
		s += labelStyle.Render("files") + fmt.Sprint(job.Result.FilesCount) + "\n"
	}
	for _, w := range job.Result.Warnings {
		s += warnStyle.Render("warning: ") + w + "\n"
	}
	return s
}

func printResult(w io.Writer, job *architex.Job) {
	fmt.Fprint(w, resultLines(job))
}
