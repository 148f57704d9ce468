package main

import (
	"github.com/spf13/cobra"

	"github.com/tjpilant/idse-spine/internal/types"
)

var projectCmd = &cobra.Command{
	Use:     "project",
	GroupID: "setup",
	Short:   "Manage projects",
}

var projectStack string

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project and its blueprint session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		project, err := store.SaveProject(ctx, args[0], projectStack)
		if err != nil {
			return err
		}
		if _, err := store.SaveSession(ctx, project.ID, types.BlueprintSessionID, types.SessionBlueprint, ""); err != nil {
			return err
		}
		return printOrJSON(project, "created project %q (stack=%s)", project.Name, project.Stack)
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		project, err := store.GetProject(ctx, args[0])
		if err != nil {
			return err
		}
		return printOrJSON(project, "project %q (stack=%s, created=%s)", project.Name, project.Stack, project.CreatedAt)
	},
}

func init() {
	projectCreateCmd.Flags().StringVar(&projectStack, "stack", "", "technology stack label")
	projectCmd.AddCommand(projectCreateCmd, projectShowCmd)
}
