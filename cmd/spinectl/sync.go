package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tjpilant/idse-spine/internal/config"
	"github.com/tjpilant/idse-spine/internal/remote"
	"github.com/tjpilant/idse-spine/internal/remote/blockstore"
	"github.com/tjpilant/idse-spine/internal/storage"
	"github.com/tjpilant/idse-spine/internal/types"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "views",
	Short:   "Push and pull artifacts against the configured remote backend",
}

var syncConcurrency int64

// newProjector builds a remote.Projector from the loaded config, the same
// tool-call-keyed adapter regardless of which sync_backend string is set,
// since blockstore.Client is the spine's one built-in Capability.
func newProjector(store storage.Storage) (*remote.Projector, error) {
	backend := config.SyncBackend()
	if backend == "" {
		return nil, fmt.Errorf("sync: no sync_backend configured")
	}
	endpoint := config.RemoteEndpoint()
	if endpoint == "" {
		return nil, fmt.Errorf("sync: remote.endpoint not configured")
	}
	apiKey, err := readAPIKey()
	if err != nil {
		return nil, err
	}

	client := blockstore.New(endpoint, config.RemoteAnchor(), apiKey)
	opts := []remote.Option{}
	if syncConcurrency > 0 {
		opts = append(opts, remote.WithConcurrency(syncConcurrency))
	}
	return remote.New(store, backend, client, remote.DefaultSchemaMap(), opts...), nil
}

// readAPIKey loads the credential file from remote.credentials_dir, a
// directory the spine only ever reads from (spec.md §6: "read-only path for
// remote auth material").
func readAPIKey() (string, error) {
	dir := config.RemoteCredentialsDir()
	if dir == "" {
		return "", nil
	}
	data, err := os.ReadFile(filepath.Join(dir, "api_key"))
	if err != nil {
		return "", fmt.Errorf("read remote credentials: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

var syncPushCmd = &cobra.Command{
	Use:   "push <artifact-id>...",
	Short: "Push one or more artifacts to the remote backend",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		projector, err := newProjector(store)
		if err != nil {
			return err
		}

		ids := make([]int64, len(args))
		for i, a := range args {
			id, err := parseID(a)
			if err != nil {
				return err
			}
			ids[i] = id
		}

		results := projector.Push(ctx, ids)
		if jsonOutput {
			return printJSON(results)
		}
		for _, r := range results {
			switch {
			case r.Err != nil:
				printResult("artifact %d: error: %v", r.ArtifactID, r.Err)
			case r.Skipped:
				printResult("artifact %d: skipped (unchanged)", r.ArtifactID)
			default:
				printResult("artifact %d: pushed", r.ArtifactID)
			}
		}
		return nil
	},
}

var syncPullCmd = &cobra.Command{
	Use:   "pull <project> <session-id> <stage> <remote-id>...",
	Short: "Pull one or more remote records into a session stage",
	Args:  cobra.MinimumNArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		project, err := store.GetProject(ctx, args[0])
		if err != nil {
			return fmt.Errorf("sync pull: %w", err)
		}
		sess, err := store.GetSession(ctx, project.ID, args[1])
		if err != nil {
			return fmt.Errorf("sync pull: %w", err)
		}

		projector, err := newProjector(store)
		if err != nil {
			return err
		}

		results := projector.Pull(ctx, sess.ID, project.Name, sess.SessionID, types.Stage(args[2]), args[3:])
		if jsonOutput {
			return printJSON(results)
		}
		for _, r := range results {
			switch {
			case r.Err != nil:
				printResult("remote %s: error: %v", r.RemoteID, r.Err)
			case r.Created:
				printResult("remote %s: created", r.RemoteID)
			case r.Updated:
				printResult("remote %s: updated", r.RemoteID)
			default:
				printResult("remote %s: unchanged", r.RemoteID)
			}
		}
		return nil
	},
}

func init() {
	syncCmd.PersistentFlags().Int64Var(&syncConcurrency, "concurrency", 0, "override bounded push/pull concurrency (default 4)")
	syncCmd.AddCommand(syncPushCmd, syncPullCmd)
}
