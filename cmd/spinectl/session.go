package main

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/tjpilant/idse-spine/internal/types"
	"github.com/tjpilant/idse-spine/internal/validation"
)

var sessionCmd = &cobra.Command{
	Use:     "session",
	GroupID: "core",
	Short:   "Manage sessions and their artifacts",
}

var sessionType string
var sessionOwner string

var sessionStartCmd = &cobra.Command{
	Use:   "start <project> <session-id>",
	Short: "Start a new session under a project",
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
			return fmt.Errorf("session start: %w", err)
		}
		sess, err := store.SaveSession(ctx, project.ID, args[1], types.SessionType(sessionType), sessionOwner)
		if err != nil {
			return err
		}
		return printOrJSON(sess, "started session %q (type=%s, owner=%s)", sess.SessionID, sess.Type, sess.Owner)
	},
}

var sessionPutCmd = &cobra.Command{
	Use:   "put <project> <session-id> <stage> <content-file>",
	Short: "Save an artifact for a session stage",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		project, err := store.GetProject(ctx, args[0])
		if err != nil {
			return fmt.Errorf("session put: %w", err)
		}
		sess, err := store.GetSession(ctx, project.ID, args[1])
		if err != nil {
			return fmt.Errorf("session put: %w", err)
		}
		content, err := readFile(args[3])
		if err != nil {
			return err
		}

		artifact, err := store.SaveArtifact(ctx, sess.ID, project.Name, sess.SessionID, types.Stage(args[2]), content)
		if err != nil {
			return err
		}
		return printOrJSON(artifact, "saved artifact %s (stage=%s, hash=%s)", artifact.IDSEID, artifact.Stage, artifact.ContentHash)
	},
}

var sessionValidateCmd = &cobra.Command{
	Use:   "validate <project> <session-id>",
	Short: "Run ValidationEngine over a session's artifacts",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		engine := validation.New(store)
		report, err := engine.Validate(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(report)
		}
		printResult("session %s: %s", args[1], report.Summary())
		return nil
	},
}

var sessionCompleteCmd = &cobra.Command{
	Use:   "complete <project> <session-id>",
	Short: "Attempt to mark a session complete, gated on ValidationEngine",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		engine := validation.New(store)
		if _, err := engine.CheckCompletion(ctx, args[0], args[1]); err != nil {
			return err
		}

		project, err := store.GetProject(ctx, args[0])
		if err != nil {
			return err
		}
		sess, err := store.GetSession(ctx, project.ID, args[1])
		if err != nil {
			return err
		}
		if err := store.SetSessionStatus(ctx, sess.ID, types.StatusComplete); err != nil {
			return err
		}
		sess.Status = types.StatusComplete
		return printOrJSON(sess, "session %s marked complete", args[1])
	},
}

var sessionSince string

var sessionListCmd = &cobra.Command{
	Use:   "list <project>",
	Short: "List a project's sessions",
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
			return fmt.Errorf("session list: %w", err)
		}
		sessions, err := store.ListSessions(ctx, project.ID)
		if err != nil {
			return err
		}

		if sessionSince != "" {
			cutoff, err := parseSince(sessionSince)
			if err != nil {
				return fmt.Errorf("session list: %w", err)
			}
			filtered := sessions[:0]
			for _, s := range sessions {
				if !s.CreatedAt.Before(cutoff) {
					filtered = append(filtered, s)
				}
			}
			sessions = filtered
		}

		if jsonOutput {
			return printJSON(sessions)
		}
		for _, s := range sessions {
			printResult("%s (type=%s, status=%s, owner=%s)", s.SessionID, s.Type, s.Status, s.Owner)
		}
		return nil
	},
}

// parseSince resolves a natural-language cutoff expression ("3 days ago",
// "last monday") into an absolute time, the same relative-phrase vocabulary
// the teacher's CLI accepts for --since filters elsewhere in cmd/bd.
func parseSince(phrase string) (time.Time, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(phrase, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse --since %q: %w", phrase, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not understand --since %q", phrase)
	}
	return r.Time, nil
}

func init() {
	sessionStartCmd.Flags().StringVar(&sessionType, "type", string(types.SessionFeature), "session type (feature|blueprint)")
	sessionStartCmd.Flags().StringVar(&sessionOwner, "owner", "", "session owner")
	sessionListCmd.Flags().StringVar(&sessionSince, "since", "", `only show sessions created after this time, e.g. "3 days ago"`)
	sessionCmd.AddCommand(sessionStartCmd, sessionPutCmd, sessionValidateCmd, sessionCompleteCmd, sessionListCmd)
}
