package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Op is a bulk operation kind.
type Op string

// Bulk operation kinds understood by the bulk endpoint.
const (
	OpIndex  Op = "index"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Valid reports whether op is one of the known bulk operations.
func (op Op) Valid() bool {
	return op == OpIndex || op == OpUpdate || op == OpDelete
}

// Action is one bulk instruction for a search cluster.
// Source is nil iff Op is OpDelete.
type Action struct {
	Op     Op
	Index  string
	ID     string
	Source map[string]any
}

// bulkMeta is the bulk API metadata line for one action.
type bulkMeta struct {
	Index  *bulkTarget `json:"index,omitempty"`
	Update *bulkTarget `json:"update,omitempty"`
	Delete *bulkTarget `json:"delete,omitempty"`
}

type bulkTarget struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

// updateBody wraps a partial document for update actions.
type updateBody struct {
	Doc map[string]any `json:"doc"`
}

// EncodeNDJSON appends the action's wire lines (metadata line, then source
// line unless deleting) to buf and returns the number of bytes written.
func (a *Action) EncodeNDJSON(buf *bytes.Buffer) (int, error) {
	start := buf.Len()

	meta := bulkMeta{}
	target := &bulkTarget{Index: a.Index, ID: a.ID}
	switch a.Op {
	case OpIndex:
		meta.Index = target
	case OpUpdate:
		meta.Update = target
	case OpDelete:
		meta.Delete = target
	default:
		return 0, fmt.Errorf("encode action: unknown op %q", a.Op)
	}

	enc := json.NewEncoder(buf)
	if err := enc.Encode(meta); err != nil {
		return 0, fmt.Errorf("encode action meta: %w", err)
	}

	if a.Op != OpDelete {
		var body any = a.Source
		if a.Op == OpUpdate {
			body = updateBody{Doc: a.Source}
		}
		if err := enc.Encode(body); err != nil {
			return 0, fmt.Errorf("encode action source: %w", err)
		}
	}

	return buf.Len() - start, nil
}
