package tableapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Filter is a query document in the service's Mongo-style syntax.
type Filter map[string]any

// Eq matches field equal to value.
func Eq(field string, value any) Filter {
	return Filter{field: map[string]any{"$eq": value}}
}

// And matches rows satisfying every filter.
func And(filters ...Filter) Filter {
	items := make([]any, 0, len(filters))
	for _, f := range filters {
		items = append(items, f)
	}
	return Filter{"$and": items}
}

// Row is a stored table row. The original JSON is kept so backups
// reproduce exactly what the service returned.
type Row struct {
	ID   string
	User string
	Data map[string]any
	raw  json.RawMessage
}

type rowWire struct {
	ID   string          `json:"_id"`
	User json.RawMessage `json:"user"`
	Data map[string]any  `json:"data"`
}

// UnmarshalJSON accepts the owner as either an id string or an object with _id.
func (r *Row) UnmarshalJSON(data []byte) error {
	var wire rowWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	user, err := decodeUser(wire.User)
	if err != nil {
		return fmt.Errorf("row %s: %w", wire.ID, err)
	}
	*r = Row{ID: wire.ID, User: user, Data: wire.Data, raw: append(json.RawMessage(nil), data...)}
	return nil
}

// MarshalJSON returns the row as received, or a minimal document for rows
// built in code.
func (r Row) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	wire := map[string]any{"_id": r.ID, "data": r.Data}
	if r.User != "" {
		wire["user"] = map[string]any{"_id": r.User}
	}
	return json.Marshal(wire)
}

// Status returns data.status when it is a string.
func (r Row) Status() string {
	if s, ok := r.Data["status"].(string); ok {
		return s
	}
	return ""
}

// Name returns data.name when it is a string.
func (r Row) Name() string {
	if s, ok := r.Data["name"].(string); ok {
		return s
	}
	return ""
}

func decodeUser(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", err
		}
		return id, nil
	}
	var obj struct {
		ID string `json:"_id"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("decode user: %w", err)
	}
	return obj.ID, nil
}
