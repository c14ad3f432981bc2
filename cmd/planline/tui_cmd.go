package main

import (
	"github.com/spf13/cobra"

	"github.com/fentz26/planline/internal/project"
	"github.com/fentz26/planline/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal UI for a project.

Changes are saved with the "save" command or the s key; unsaved changes are
discarded on quit.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	return withProject(cmd.Context(), false, func(svc *project.Service) error {
		return tui.New(svc).Run()
	})
}
