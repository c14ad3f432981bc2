package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/planline/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create a new project",
	Args:  cobra.ExactArgs(1),
	RunE:  runInit,
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

func runInit(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	svc, err := project.Create(cmd.Context(), st, args[0], cfg, log)
	if err != nil {
		return err
	}
	p := svc.Project()
	fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", p.Name, p.ID)
	return nil
}

func runProjects(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	projects, err := st.ListProjects(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tID\tUPDATED")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.ID, p.UpdatedAt.Local().Format(time.DateTime))
	}
	return w.Flush()
}
