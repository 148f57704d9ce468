// Package validation implements ValidationEngine (C4): a declarative,
// rule-based checker that produces a non-failing ValidationReport per
// session, and gates the one transition (session completion) that does
// fail. Required-section detection walks the goldmark markdown AST rather
// than scanning raw text, so headings inside code fences are ignored.
package validation

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/tjpilant/idse-spine/internal/config"
	"github.com/tjpilant/idse-spine/internal/debug"
	"github.com/tjpilant/idse-spine/internal/storage"
	"github.com/tjpilant/idse-spine/internal/types"
)

// Engine is the ValidationEngine component.
type Engine struct {
	store storage.Storage
}

// New builds an Engine over the given storage backend.
func New(store storage.Storage) *Engine {
	return &Engine{store: store}
}

// rule validates one stage's artifact and appends findings to report.
type rule func(artifact *types.Artifact, report *types.StageReport)

// headings returns the text of every level-2 ("## ...") heading in content,
// in document order, using goldmark's AST rather than a line-prefix scan so
// a "## " inside a fenced code block is not mistaken for a section.
func headings(content string) []string {
	src := []byte(content)
	root := goldmark.DefaultParser().Parse(text.NewReader(src))

	var out []string
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 2 {
			return ast.WalkContinue, nil
		}
		var buf bytes.Buffer
		for c := h.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Segment.Value(src))
			}
		}
		out = append(out, strings.TrimSpace(buf.String()))
		return ast.WalkContinue, nil
	})
	return out
}

func hasSection(content string, want string) bool {
	for _, h := range headings(content) {
		if strings.EqualFold(h, want) {
			return true
		}
	}
	return false
}

var placeholderMarkers = []string{"TODO", "TBD", "FIXME", "[placeholder]"}

func hasPlaceholder(content string) (string, bool) {
	upper := strings.ToUpper(content)
	for _, marker := range placeholderMarkers {
		if strings.Contains(upper, strings.ToUpper(marker)) {
			return marker, true
		}
	}
	return "", false
}

func requiredSectionsRule(stage types.Stage) rule {
	return func(artifact *types.Artifact, report *types.StageReport) {
		for _, section := range config.RequiredSections(string(stage)) {
			if !hasSection(artifact.Content, section) {
				report.OK = false
				report.Errors = append(report.Errors, fmt.Sprintf("missing required section %q", section))
			}
		}
	}
}

func noPlaceholdersRule() rule {
	return func(artifact *types.Artifact, report *types.StageReport) {
		if marker, found := hasPlaceholder(artifact.Content); found {
			report.OK = false
			report.Errors = append(report.Errors, fmt.Sprintf("contains unresolved placeholder marker %q", marker))
		}
	}
}

func notEmptyRule() rule {
	return func(artifact *types.Artifact, report *types.StageReport) {
		if strings.TrimSpace(artifact.Content) == "" {
			report.OK = false
			report.Errors = append(report.Errors, "artifact content is empty")
		}
	}
}

// implementationQualityRule flags an implementation artifact that names no
// components, a lightweight proxy for "no concrete work was captured"
// (spec.md §4.4's artifact -> component -> primitive chain): it warns when
// the "Component Impact Report" section contains no list entry.
func implementationQualityRule() rule {
	return func(artifact *types.Artifact, report *types.StageReport) {
		if !hasSection(artifact.Content, "Component Impact Report") {
			return // requiredSectionsRule already flags this; avoid double-counting
		}
		src := []byte(artifact.Content)
		root := goldmark.DefaultParser().Parse(text.NewReader(src))
		inSection := false
		for n := root.FirstChild(); n != nil; n = n.NextSibling() {
			if h, ok := n.(*ast.Heading); ok {
				inSection = h.Level == 2 && strings.EqualFold(strings.TrimSpace(string(h.Text(src))), "Component Impact Report")
				continue
			}
			if _, ok := n.(*ast.List); ok && inSection {
				return
			}
		}
		report.Warnings = append(report.Warnings, "implementation artifact has no detectable component references")
	}
}

func rulesFor(stage types.Stage) []rule {
	rules := []rule{notEmptyRule(), requiredSectionsRule(stage), noPlaceholdersRule()}
	if stage == types.StageImplementation {
		rules = append(rules, implementationQualityRule())
	}
	return rules
}

// Validate runs every applicable rule against a session's artifacts and
// returns a ValidationReport. It never itself returns an error for a failing
// report. A stage artifact that cannot be loaded is recorded as an error in
// that stage's report; an error is returned only when persisting the report
// fails (loading the project or session, or writing the session state).
func (e *Engine) Validate(ctx context.Context, projectName, sessionID string) (*types.ValidationReport, error) {
	report := &types.ValidationReport{OK: true, PerStage: map[types.Stage]*types.StageReport{}}

	var seenStages []types.Stage
	for i, stage := range types.RequiredStages {
		artifact, err := e.store.LoadArtifact(ctx, projectName, sessionID, stage)
		stageReport := &types.StageReport{OK: true}

		switch {
		case err == nil:
			seenStages = append(seenStages, stage)
			for _, r := range rulesFor(stage) {
				r(artifact, stageReport)
			}
		default:
			stageReport.OK = false
			stageReport.Errors = append(stageReport.Errors, fmt.Sprintf("stage %s not found: %v", stage, err))
		}

		if i > 0 && stageReport.OK {
			if prevOK, ok := report.PerStage[types.RequiredStages[i-1]]; ok && !prevOK.OK {
				stageReport.Warnings = append(stageReport.Warnings, fmt.Sprintf("stage %s passed out of order: upstream stage %s has errors", stage, types.RequiredStages[i-1]))
			}
		}

		report.PerStage[stage] = stageReport
		if !stageReport.OK {
			report.OK = false
		}
	}

	if err := e.persist(ctx, projectName, sessionID, report); err != nil {
		return report, fmt.Errorf("validate: persist session state: %w", err)
	}
	return report, nil
}

// persist writes report into SessionState.validation_status, per spec.md
// §4.4's Output contract ("the report is persisted into
// SessionState.validation_status"). SessionState is keyed per-stage, so
// each StageReport becomes that stage's StageState entry.
func (e *Engine) persist(ctx context.Context, projectName, sessionID string, report *types.ValidationReport) error {
	project, err := e.store.GetProject(ctx, projectName)
	if err != nil {
		return fmt.Errorf("load project %s: %w", projectName, err)
	}
	sess, err := e.store.GetSession(ctx, project.ID, sessionID)
	if err != nil {
		return fmt.Errorf("load session %s: %w", sessionID, err)
	}

	state := types.SessionState{}
	now := time.Now()
	for stage, sr := range report.PerStage {
		status := "ok"
		if !sr.OK {
			status = "failed"
		}
		state[stage] = types.StageState{Status: status, ValidatedAt: now, Errors: sr.Errors}
	}

	if err := e.store.SaveSessionState(ctx, sess.ID, state); err != nil {
		return fmt.Errorf("save session state: %w", err)
	}
	debug.LogEvent(debug.Event{Entity: "session", ID: sess.ID, Op: "validate"})
	return nil
}

// CheckCompletion runs Validate and, if the report is not OK, returns a
// *types.CompletionBlockedError wrapping it — the one place a non-failing
// engine participates in a gated transition (spec.md §4.3: "session
// completion is the sole transition ValidationEngine can block").
func (e *Engine) CheckCompletion(ctx context.Context, projectName, sessionID string) (*types.ValidationReport, error) {
	report, err := e.Validate(ctx, projectName, sessionID)
	if err != nil {
		return nil, err
	}
	if !report.OK {
		return report, &types.CompletionBlockedError{Report: report}
	}
	return report, nil
}
