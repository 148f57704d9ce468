package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/tjpilant/idse-spine/internal/storage"
	"github.com/tjpilant/idse-spine/internal/storage/sqlite"
)

// parseID parses a decimal row ID CLI argument.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

// readFile reads path, or stdin when path is "-".
func readFile(path string) (string, error) {
	if path == "-" {
		data, err := os.ReadFile("/dev/stdin")
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func openStore(ctx context.Context) (*sqlite.Store, error) {
	store, err := sqlite.Open(ctx, storage.Config{Path: dbPath})
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", dbPath, err)
	}
	return store, nil
}

// printResult writes a human-readable line, used by commands with no
// structured payload of their own (e.g. "session created").
func printResult(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

// printJSON marshals v as indented JSON to stdout, mirroring the teacher's
// outputJSONAndExit (cmd/bd/repair.go) minus the process exit, since cobra
// RunE here reports failures through its own error return.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// printOrJSON renders v as JSON when --json was passed, otherwise falls back
// to the given human-readable line.
func printOrJSON(v any, format string, args ...any) error {
	if jsonOutput {
		return printJSON(v)
	}
	printResult(format, args...)
	return nil
}
