package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tjpilant/idse-spine/internal/projection"
)

var projectionCmd = &cobra.Command{
	Use:     "projection",
	GroupID: "views",
	Short:   "Regenerate blueprint.md and meta.md for a project",
}

var projectionOutDir string

var projectionRenderCmd = &cobra.Command{
	Use:   "render <project>",
	Short: "Render blueprint.md (append-only) and meta.md (fully regenerated)",
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
			return fmt.Errorf("projection render: %w", err)
		}
		view := projection.New(store)

		blueprintPath := filepath.Join(projectionOutDir, "blueprint.md")
		var existing string
		if _, err := os.Stat(blueprintPath); err == nil {
			existing, err = readFile(blueprintPath)
			if err != nil {
				return err
			}
		}

		blueprint, err := view.RenderBlueprint(ctx, project.ID, existing)
		if err != nil {
			return err
		}
		if err := os.WriteFile(blueprintPath, []byte(blueprint), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", blueprintPath, err)
		}

		meta, err := view.RenderMeta(ctx, project.ID)
		if err != nil {
			return err
		}
		metaPath := filepath.Join(projectionOutDir, "meta.md")
		if err := os.WriteFile(metaPath, []byte(meta), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", metaPath, err)
		}

		printResult("rendered %s and %s", blueprintPath, metaPath)
		return nil
	},
}

var projectionLineageCmd = &cobra.Command{
	Use:   "lineage <artifact-id>",
	Short: "Show an artifact's upstream dependency chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		artifactID, err := parseID(args[0])
		if err != nil {
			return err
		}

		view := projection.New(store)
		chain, err := view.LineageGraph(ctx, artifactID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(chain)
		}
		for _, a := range chain {
			printResult("%s (%s)", a.IDSEID, a.Stage)
		}
		return nil
	},
}

func init() {
	projectionRenderCmd.Flags().StringVar(&projectionOutDir, "out", ".", "directory to write blueprint.md and meta.md into")
	projectionCmd.AddCommand(projectionRenderCmd, projectionLineageCmd)
}
