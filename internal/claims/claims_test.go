package claims

import (
	"testing"
	"time"

	"github.com/tjpilant/idse-spine/internal/types"
)

func TestEvaluateGateNotConstitutional(t *testing.T) {
	tests := []struct {
		name   string
		class  types.ClaimClassification
		wantOK bool
	}{
		{"invariant passes", types.ClassInvariant, true},
		{"boundary passes", types.ClassBoundary, true},
		{"arbitrary classification fails", types.ClaimClassification("opinion"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand := ConvergeCandidate{Classification: tt.class}
			if got := evaluateGate(types.GateNotConstitutional, cand, nil); got != tt.wantOK {
				t.Errorf("evaluateGate() = %v, want %v", got, tt.wantOK)
			}
		})
	}
}

func TestEvaluateGateSessionAndStageDiversity(t *testing.T) {
	oneSession := []types.EvidenceArtifact{
		{SessionID: "s1", Stage: types.StageIntent},
		{SessionID: "s1", Stage: types.StageSpec},
	}
	twoSessions := []types.EvidenceArtifact{
		{SessionID: "s1", Stage: types.StageIntent},
		{SessionID: "s2", Stage: types.StageIntent},
	}

	cand := ConvergeCandidate{Evidence: oneSession}
	if evaluateGate(types.GateInsufficientSessionDiversity, cand, nil) {
		t.Error("expected single-session evidence to fail session diversity gate")
	}
	if !evaluateGate(types.GateInsufficientStageDiversity, cand, nil) {
		t.Error("expected single-stage-at-a-time evidence within one session to still pass stage diversity")
	}

	cand = ConvergeCandidate{Evidence: twoSessions}
	if !evaluateGate(types.GateInsufficientSessionDiversity, cand, nil) {
		t.Error("expected two-session evidence to pass session diversity gate")
	}
}

func TestEvaluateGateTemporalStability(t *testing.T) {
	now := time.Now()
	cand := ConvergeCandidate{Evidence: []types.EvidenceArtifact{
		{CreatedAt: now},
		{CreatedAt: now.Add(24 * time.Hour)},
	}}
	if evaluateGate(types.GateInsufficientTemporalStability, cand, nil) {
		t.Error("expected 1-day evidence span to fail the default 7-day stability window")
	}

	cand = ConvergeCandidate{Evidence: []types.EvidenceArtifact{
		{CreatedAt: now},
		{CreatedAt: now.Add(10 * 24 * time.Hour)},
	}}
	if !evaluateGate(types.GateInsufficientTemporalStability, cand, nil) {
		t.Error("expected 10-day evidence span to pass the default 7-day stability window")
	}
}

func TestEvaluateGateContradictedByFeedback(t *testing.T) {
	cand := ConvergeCandidate{Evidence: []types.EvidenceArtifact{
		{FeedbackKind: "contradiction"},
	}}
	if evaluateGate(types.GateContradictedByFeedback, cand, nil) {
		t.Error("expected contradicting feedback evidence to deny the gate")
	}

	cand = ConvergeCandidate{Evidence: []types.EvidenceArtifact{
		{FeedbackKind: "confirmation"},
	}}
	if !evaluateGate(types.GateContradictedByFeedback, cand, nil) {
		t.Error("expected non-contradicting feedback evidence to pass the gate")
	}
}

func TestEvaluateGateDuplicateStatement(t *testing.T) {
	active := []*types.BlueprintClaim{
		{ClaimText: "All API responses must include a request ID"},
	}
	cand := ConvergeCandidate{ClaimText: "All API responses must include a request ID"}
	if evaluateGate(types.GateDuplicateStatement, cand, active) {
		t.Error("expected near-identical claim text to be flagged as a duplicate")
	}

	cand = ConvergeCandidate{ClaimText: "Database migrations must be backward compatible"}
	if !evaluateGate(types.GateDuplicateStatement, cand, active) {
		t.Error("expected unrelated claim text to pass the duplicate gate")
	}
}
