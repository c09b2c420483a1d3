package onboarding

import (
	"fmt"
	"strings"
)

// DraftSchema pins the draft limits and required fields for one revision of the flow.
type DraftSchema struct {
	Version            string
	MaxDrafts          int
	RequireDescription bool
}

var (
	// SchemaV1 allows five drafts and treats the description as optional.
	SchemaV1 = DraftSchema{Version: "v1", MaxDrafts: 5, RequireDescription: false}
	// SchemaV2 allows ten drafts, each with a short description.
	SchemaV2 = DraftSchema{Version: "v2", MaxDrafts: 10, RequireDescription: true}
)

// SchemaByVersion resolves a configured schema name. Empty selects SchemaV2.
func SchemaByVersion(v string) (DraftSchema, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", SchemaV2.Version:
		return SchemaV2, nil
	case SchemaV1.Version:
		return SchemaV1, nil
	default:
		return DraftSchema{}, fmt.Errorf("unknown draft schema %q", v)
	}
}
