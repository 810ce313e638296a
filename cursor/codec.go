// Package cursor implements the opaque keyset-pagination cursor codec (C1)
// and the keyset paginator (C5) built on top of it.
//
// The cursor is a self-describing, URL-safe base64 blob encoding the
// ordering it was minted against, the last-seen values for that ordering,
// and a navigation direction. Embedding the ordering in the cursor lets the
// server reject a cursor replayed against a different sort (§4.1).
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/nrfta/seekpage"
)

// Direction is the navigation direction encoded in a cursor's "d" field.
type Direction string

const (
	Next Direction = "next"
	Prev Direction = "prev"
)

// wireCursor is the on-the-wire JSON shape (§6.3): "o" is the ordering as
// direction-prefixed field tokens, "v" maps field name to JSON-scalar
// value, "d" is "next" or "prev".
type wireCursor struct {
	O []string       `json:"o"`
	V map[string]any `json:"v"`
	D string         `json:"d,omitempty"`
}

// Encode builds an opaque, URL-safe base64 cursor from an ordering, the
// values of every field in that ordering, and a navigation direction.
// ordering must be non-empty and values must contain every field in
// ordering; direction must be Next or Prev.
func Encode(ordering paging.OrderingSpec, values map[string]any, direction Direction) (string, error) {
	if len(ordering) == 0 {
		return "", &paging.CursorError{Reason: "ordering must not be empty"}
	}
	if direction != Next && direction != Prev {
		return "", &paging.CursorError{Reason: "direction must be \"next\" or \"prev\""}
	}

	w := wireCursor{
		O: make([]string, len(ordering)),
		V: make(map[string]any, len(ordering)),
		D: string(direction),
	}
	for i, s := range ordering {
		v, ok := values[s.Field]
		if !ok {
			return "", &paging.CursorError{Reason: "missing value for ordering field \"" + s.Field + "\""}
		}
		w.O[i] = sortToken(s)
		w.V[s.Field] = v
	}

	raw, err := json.Marshal(w)
	if err != nil {
		return "", &paging.CursorError{Reason: "failed to encode cursor payload", Cause: err}
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

// Decode parses an opaque cursor string back into its ordering, values, and
// direction. A missing "d" is tolerated as Next for backward compatibility
// with cursors minted before direction was tracked (§3).
func Decode(token string) (ordering paging.OrderingSpec, values map[string]any, direction Direction, err error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil, "", &paging.CursorError{Reason: "cursor is empty"}
	}

	raw, decodeErr := base64.URLEncoding.DecodeString(token)
	if decodeErr != nil {
		return nil, nil, "", &paging.CursorError{Reason: "not valid base64", Cause: decodeErr}
	}

	var w wireCursor
	if jsonErr := json.Unmarshal(raw, &w); jsonErr != nil {
		return nil, nil, "", &paging.CursorError{Reason: "not valid JSON", Cause: jsonErr}
	}

	if len(w.O) == 0 {
		return nil, nil, "", &paging.CursorError{Reason: "cursor ordering (\"o\") is missing or empty"}
	}
	if w.V == nil {
		return nil, nil, "", &paging.CursorError{Reason: "cursor values (\"v\") is missing"}
	}

	spec := make(paging.OrderingSpec, len(w.O))
	for i, tok := range w.O {
		if len(tok) < 2 {
			return nil, nil, "", &paging.CursorError{Reason: "malformed ordering token \"" + tok + "\""}
		}
		var dir paging.Direction
		switch tok[0] {
		case '+':
			dir = paging.Asc
		case '-':
			dir = paging.Desc
		default:
			return nil, nil, "", &paging.CursorError{Reason: "ordering token \"" + tok + "\" must start with '+' or '-'"}
		}
		field := tok[1:]
		if field == "" {
			return nil, nil, "", &paging.CursorError{Reason: "ordering token \"" + tok + "\" has no field name"}
		}
		spec[i] = paging.Sort{Field: field, Dir: dir}
	}

	dir := Next
	switch w.D {
	case "", string(Next):
		dir = Next
	case string(Prev):
		dir = Prev
	default:
		return nil, nil, "", &paging.CursorError{Reason: "unknown direction \"" + w.D + "\""}
	}

	return spec, w.V, dir, nil
}

// ValidateOrdering fails with a *paging.CursorError when cursorOrdering and
// expectedOrdering are not equal as ordered (field, direction) sequences.
// This is the check that prevents a client from swapping sort order
// mid-pagination and silently producing an invalid seek query (§4.1).
func ValidateOrdering(cursorOrdering, expectedOrdering paging.OrderingSpec) error {
	if !cursorOrdering.Equal(expectedOrdering) {
		return &paging.CursorError{Reason: "cursor ordering (" + cursorOrdering.String() + ") does not match the current query ordering (" + expectedOrdering.String() + ")"}
	}
	return nil
}

// ValidateFields fails with a *paging.CursorError when values is missing an
// entry for any name in expectedFieldNames.
func ValidateFields(values map[string]any, expectedFieldNames []string) error {
	for _, name := range expectedFieldNames {
		if _, ok := values[name]; !ok {
			return &paging.CursorError{Reason: "cursor is missing a value for field \"" + name + "\""}
		}
	}
	return nil
}

func sortToken(s paging.Sort) string {
	if s.Dir == paging.Desc {
		return "-" + s.Field
	}
	return "+" + s.Field
}
