package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fentz26/planline/internal/config"
	"github.com/fentz26/planline/internal/logger"
	"github.com/fentz26/planline/internal/project"
	"github.com/fentz26/planline/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "planline",
	Short: "planline - task scheduling with dependencies and critical paths",
	Long: `planline keeps a project schedule consistent: dependencies push dates,
supertasks span their nested tasks, and the critical path is recomputed on every change.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadEnv()
	},
	// No RunE - defaults to showing help when no subcommand is provided
}

var (
	configPath string
	dbPath     string
	projectRef string
	logLevel   string

	cfg *config.Config
	log *zap.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to planline.yaml (default ./planline.yaml or ~/.planline/planline.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides store.path)")
	rootCmd.PersistentFlags().StringVarP(&projectRef, "project", "p", "", "Project name or ID")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides logger.level)")

	// Add subcommands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(depCmd)
	rootCmd.AddCommand(criticalCmd)
	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

func loadEnv() error {
	c, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		c.Store.Path = dbPath
	}
	if logLevel != "" {
		c.Logger.Level = logLevel
	}
	l, err := logger.New(logger.Config{
		Level:       c.Logger.Level,
		Encoding:    c.Logger.Encoding,
		Development: c.Logger.Development,
	})
	if err != nil {
		return err
	}
	cfg, log = c, l
	return nil
}

func openStore() (*store.Store, error) {
	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Store.Path, err)
	}
	return st, nil
}

// withProject opens the selected project, runs fn and, when save is set,
// persists the result.
func withProject(ctx context.Context, save bool, fn func(*project.Service) error) error {
	if projectRef == "" {
		return fmt.Errorf("no project selected: pass --project or set PLANLINE_PROJECT")
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	svc, err := project.Open(ctx, st, projectRef, cfg, log)
	if err != nil {
		return err
	}
	if err := fn(svc); err != nil {
		return err
	}
	if save {
		return svc.Save(ctx)
	}
	return nil
}

func main() {
	if projectRef == "" {
		projectRef = os.Getenv("PLANLINE_PROJECT")
	}
	err := rootCmd.Execute()
	if log != nil {
		_ = log.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
