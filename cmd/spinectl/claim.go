package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tjpilant/idse-spine/internal/claims"
	"github.com/tjpilant/idse-spine/internal/types"
)

var claimCmd = &cobra.Command{
	Use:     "claim",
	GroupID: "core",
	Short:   "Manage constitutional blueprint claims",
}

var claimActor string
var claimClassification string

var claimDeclareCmd = &cobra.Command{
	Use:   "declare <project> <claim-text>",
	Short: "Declare a claim directly (origin=declared)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		project, err := store.GetProject(ctx, args[0])
		if err != nil {
			return fmt.Errorf("claim declare: %w", err)
		}

		lifecycle := claims.New(store)
		claim, err := lifecycle.Declare(ctx, project.ID, types.ClaimClassification(claimClassification), args[1], claimActor)
		if err != nil {
			return err
		}
		return printOrJSON(claim, "declared claim %d (%s)", claim.ID, claim.Classification)
	},
}

var claimSupersedeCmd = &cobra.Command{
	Use:   "supersede <old-claim-id> <replacement-claim-id> <reason>",
	Short: "Mark a claim superseded by another",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		oldID, err := parseID(args[0])
		if err != nil {
			return err
		}
		replacementID, err := parseID(args[1])
		if err != nil {
			return err
		}

		lifecycle := claims.New(store)
		if err := lifecycle.Supersede(ctx, oldID, replacementID, args[2], claimActor); err != nil {
			return err
		}
		printResult("claim %d superseded by %d", oldID, replacementID)
		return nil
	},
}

var claimInvalidateCmd = &cobra.Command{
	Use:   "invalidate <claim-id> <reason>",
	Short: "Invalidate an active claim",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		claimID, err := parseID(args[0])
		if err != nil {
			return err
		}

		lifecycle := claims.New(store)
		if err := lifecycle.Invalidate(ctx, claimID, args[1], claimActor); err != nil {
			return err
		}
		printResult("claim %d invalidated", claimID)
		return nil
	},
}

var claimEvidenceFile string

var claimPromoteCmd = &cobra.Command{
	Use:   "promote <project> <claim-text>",
	Short: "Evaluate a converged candidate claim against the promotion gate",
	Long: `Evaluate a converged candidate claim against every gate in order
(NOT_CONSTITUTIONAL, INSUFFICIENT_SESSION_DIVERSITY,
INSUFFICIENT_STAGE_DIVERSITY, INSUFFICIENT_TEMPORAL_STABILITY,
NO_FEEDBACK_EVIDENCE, CONTRADICTED_BY_FEEDBACK, DUPLICATE_STATEMENT) and,
on success, inserts the claim with origin=converged. Every evaluation is
recorded as a PromotionRecord whether it passes or fails.

--evidence points at a JSON file containing an array of evidence artifacts,
e.g.:
  [{"IDSEID": "demo::s1::spec","SessionID": "s1", "Stage": "spec", "Fingerprint": "...", "CreatedAt": "2026-01-01T00:00:00Z"}]`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		project, err := store.GetProject(ctx, args[0])
		if err != nil {
			return fmt.Errorf("claim promote: %w", err)
		}

		var evidence []types.EvidenceArtifact
		if claimEvidenceFile != "" {
			data, err := os.ReadFile(claimEvidenceFile)
			if err != nil {
				return fmt.Errorf("claim promote: read evidence: %w", err)
			}
			if err := json.Unmarshal(data, &evidence); err != nil {
				return fmt.Errorf("claim promote: parse evidence: %w", err)
			}
		}

		lifecycle := claims.New(store)
		cand := claims.ConvergeCandidate{
			ClaimText:      args[1],
			Classification: types.ClaimClassification(claimClassification),
			Evidence:       evidence,
		}
		claim, err := lifecycle.Promote(ctx, project.ID, cand, claimActor)
		if err != nil {
			var denied *types.GateDeniedError
			if errors.As(err, &denied) && jsonOutput {
				_ = printJSON(denied)
			}
			return err
		}
		return printOrJSON(claim, "promoted claim %d (%s)", claim.ID, claim.Classification)
	},
}

var claimListCmd = &cobra.Command{
	Use:   "list <project>",
	Short: "List a project's active claims",
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
			return fmt.Errorf("claim list: %w", err)
		}
		list, err := store.ListActiveClaims(ctx, project.ID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(list)
		}
		for _, c := range list {
			printResult("#%d [%s] %s", c.ID, c.Classification, c.ClaimText)
		}
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{claimDeclareCmd, claimSupersedeCmd, claimInvalidateCmd, claimPromoteCmd} {
		cmd.Flags().StringVar(&claimActor, "actor", "", "actor performing this lifecycle transition")
	}
	claimDeclareCmd.Flags().StringVar(&claimClassification, "classification", string(types.ClassInvariant), "claim classification")
	claimPromoteCmd.Flags().StringVar(&claimClassification, "classification", string(types.ClassInvariant), "claim classification")
	claimPromoteCmd.Flags().StringVar(&claimEvidenceFile, "evidence", "", "path to a JSON array of evidence artifacts")

	claimCmd.AddCommand(claimDeclareCmd, claimSupersedeCmd, claimInvalidateCmd, claimPromoteCmd, claimListCmd)
}
