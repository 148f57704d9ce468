package remote

import (
	"testing"
	"time"

	"github.com/tjpilant/idse-spine/internal/config"
	"github.com/tjpilant/idse-spine/internal/types"
)

func TestSchemaMapToRemotePropertiesRespectsWriteMode(t *testing.T) {
	schema := DefaultSchemaMap()
	artifact := &types.Artifact{
		Content:     "hello",
		Stage:       types.StageIntent,
		ContentHash: "abc123",
		IDSEID:      "art_demo",
		CreatedAt:   time.Now(),
	}
	sess := &types.Session{SessionID: "s1", Status: types.StatusInProgress}

	onCreate := schema.ToRemoteProperties(artifact, sess, true)
	if onCreate["external_ref"] != "art_demo" {
		t.Errorf("expected create_only external_ref present on create, got %v", onCreate["external_ref"])
	}
	if onCreate["session"] != "s1" {
		t.Errorf("expected create_only session present on create, got %v", onCreate["session"])
	}
	if onCreate["stage"] != "intent" {
		t.Errorf("expected always_sync stage field present on create, got %v", onCreate["stage"])
	}

	onUpdate := schema.ToRemoteProperties(artifact, sess, false)
	if _, present := onUpdate["external_ref"]; present {
		t.Errorf("expected create_only external_ref absent on update, got %v", onUpdate["external_ref"])
	}
	if _, present := onUpdate["session"]; present {
		t.Errorf("expected create_only session absent on update, got %v", onUpdate["session"])
	}
	if onUpdate["stage"] != "intent" {
		t.Errorf("expected always_sync stage field present on update, got %v", onUpdate["stage"])
	}
	if onUpdate["body"] != "hello" {
		t.Errorf("expected always_sync content field present on update as body, got %v", onUpdate["body"])
	}
	if _, present := onUpdate["upstream"]; present {
		t.Errorf("relations are pull-only and must never be pushed, got %v", onUpdate["upstream"])
	}
}

func TestSchemaMapFromRemoteProperties(t *testing.T) {
	schema := DefaultSchemaMap()
	content := schema.FromRemoteProperties(map[string]any{"body": "world"})
	if content != "world" {
		t.Errorf("FromRemoteProperties() = %q, want %q", content, "world")
	}
}

func TestSchemaMapRelationRemoteIDs(t *testing.T) {
	schema := DefaultSchemaMap()
	ids := schema.RelationRemoteIDs(map[string]any{"upstream": []any{"rem_1", "rem_2"}})
	if len(ids) != 2 || ids[0] != "rem_1" || ids[1] != "rem_2" {
		t.Errorf("RelationRemoteIDs() = %v, want [rem_1 rem_2]", ids)
	}
	if got := schema.RelationRemoteIDs(map[string]any{}); got != nil {
		t.Errorf("RelationRemoteIDs() with no upstream key = %v, want nil", got)
	}
}

func TestNewSchemaMapCustomMapping(t *testing.T) {
	schema := NewSchemaMap([]config.PropertyMapping{
		{SpineField: "content", RemoteName: "text", Mode: config.ModeAlwaysSync},
	})
	artifact := &types.Artifact{Content: "payload"}
	props := schema.ToRemoteProperties(artifact, nil, true)
	if props["text"] != "payload" {
		t.Errorf("expected custom mapping to route content -> text, got %v", props["text"])
	}
}
