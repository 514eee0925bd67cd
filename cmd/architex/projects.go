package main

import (
	"fmt"
	"io"

	"github.com/meikuraledutech/architex"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newProjectsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage backend projects",
	}
	cmd.AddCommand(newProjectsListCmd(a), newProjectsCreateCmd(a), newProjectsDeleteCmd(a))
	return cmd
}

func newProjectsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your projects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			projects, err := a.client().ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(projects) == 0 {
				fmt.Fprintln(out, "No projects found.")
				return nil
			}
			return renderProjects(out, projects)
		},
	}
}

func newProjectsCreateCmd(a *app) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := architex.ProjectInput{Name: &args[0]}
			if description != "" {
				in.Description = &description
			}
			p, err := a.client().CreateProject(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", p.Name, p.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "project description")
	return cmd
}

func newProjectsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client().DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", args[0])
			return nil
		},
	}
}

func renderProjects(w io.Writer, projects []architex.Project) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Name", "Status", "Nodes", "Repository")
	for _, p := range projects {
		if err := table.Append(p.ID, p.Name, p.Status, fmt.Sprint(p.NodesCount), p.GitHubRepoURL); err != nil {
			return err
		}
	}
	return table.Render()
}
