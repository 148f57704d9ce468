package remote

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/tjpilant/idse-spine/internal/config"
	"github.com/tjpilant/idse-spine/internal/types"
)

// SchemaMap (C7) is the declarative field mapping between a local artifact
// and a remote record's property bag. Write mode (config.PropertyMode)
// controls whether a field is sent on create only, every sync, or only when
// the source has data — mirroring the teacher's mapping.MappingConfig
// (internal/linear/mapping.go), generalized from Linear's fixed priority/
// state maps to an arbitrary ordered list of property mappings.
type SchemaMap struct {
	mappings []config.PropertyMapping
}

// NewSchemaMap builds a SchemaMap from configured property mappings.
func NewSchemaMap(mappings []config.PropertyMapping) *SchemaMap {
	return &SchemaMap{mappings: mappings}
}

// DefaultSchemaMap is the spine's built-in mapping for a generic
// document-artifact remote, covering the minimum required remote
// properties spec.md §4.7 names (`Title`/`Session` create_only, `Stage`/
// `Status` always_sync, body content always_sync) plus the optional
// upstream/downstream relation properties pull reconciliation needs.
func DefaultSchemaMap() *SchemaMap {
	return NewSchemaMap([]config.PropertyMapping{
		{SpineField: "content", RemoteName: "body", RemoteType: "string", Mode: config.ModeAlwaysSync},
		{SpineField: "title", RemoteName: "title", RemoteType: "string", Mode: config.ModeCreateOnly},
		{SpineField: "session", RemoteName: "session", RemoteType: "string", Mode: config.ModeCreateOnly},
		{SpineField: "stage", RemoteName: "stage", RemoteType: "string", Mode: config.ModeAlwaysSync},
		{SpineField: "status", RemoteName: "status", RemoteType: "string", Mode: config.ModeAlwaysSync},
		{SpineField: "content_hash", RemoteName: "content_hash", RemoteType: "string", Mode: config.ModeAlwaysSync},
		{SpineField: "idse_id", RemoteName: "external_ref", RemoteType: "string", Mode: config.ModeCreateOnly},
		{SpineField: "upstream", RemoteName: "upstream", RemoteType: "array", Mode: config.ModeOptional},
		{SpineField: "downstream", RemoteName: "downstream", RemoteType: "array", Mode: config.ModeOptional},
	})
}

// AnchorFilter builds the (session, stage) identity filter used to resolve
// an already-created remote row when no remote_id is cached yet (spec.md
// §4.6 push step 3's "fallback (first sync only): one query by (session,
// stage) anchor").
func (m *SchemaMap) AnchorFilter(artifact *types.Artifact) map[string]any {
	return map[string]any{
		"external_ref": artifact.IDSEID,
		"stage":        string(artifact.Stage),
	}
}

// ToRemoteProperties builds the property bag for a push, honoring each
// mapping's write mode. isCreate selects whether create_only fields are
// included. sess supplies the session-derived fields (title, session,
// status) a bare artifact row doesn't carry.
func (m *SchemaMap) ToRemoteProperties(artifact *types.Artifact, sess *types.Session, isCreate bool) map[string]any {
	source, _ := sjson.Set("{}", "content", artifact.Content)
	source, _ = sjson.Set(source, "stage", string(artifact.Stage))
	source, _ = sjson.Set(source, "content_hash", artifact.ContentHash)
	source, _ = sjson.Set(source, "idse_id", artifact.IDSEID)
	if sess != nil {
		source, _ = sjson.Set(source, "title", fmt.Sprintf("%s/%s", sess.SessionID, artifact.Stage))
		source, _ = sjson.Set(source, "session", sess.SessionID)
		source, _ = sjson.Set(source, "status", string(sess.Status))
	}

	out := map[string]any{}
	for _, mapping := range m.mappings {
		if mapping.SpineField == "upstream" || mapping.SpineField == "downstream" {
			// Relations are pull-only (reconciled via reverse remote_id
			// lookup); the spine never pushes a relation property.
			continue
		}
		if mapping.Mode == config.ModeCreateOnly && !isCreate {
			continue
		}
		val := gjson.Get(source, mapping.SpineField)
		if mapping.Mode == config.ModeOptional && !val.Exists() {
			continue
		}
		out[mapping.RemoteName] = val.Value()
	}
	return out
}

// FromRemoteProperties extracts the content field from a pulled remote
// record's property bag, reversing the always_sync "content" mapping.
func (m *SchemaMap) FromRemoteProperties(properties map[string]any) string {
	for _, mapping := range m.mappings {
		if mapping.SpineField != "content" {
			continue
		}
		if v, ok := properties[mapping.RemoteName]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// RelationRemoteIDs extracts the upstream relation property's remote-id
// list from a pulled record's property bag, for reverse lookup into local
// artifact IDs (spec.md §4.6 pull step 3).
func (m *SchemaMap) RelationRemoteIDs(properties map[string]any) []string {
	v, ok := properties["upstream"]
	if !ok {
		return nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
