// Package paging provides the shared vocabulary for building safelisted,
// cursor-paginated list endpoints: ordering specs, opaque page options, and
// the paginated result shape. The concrete subsystems live in sibling
// packages:
//
//   - ordering: parses a comma-separated sort string against a safelist.
//   - filterexpr: parses a CEL filter fragment and validates identifiers.
//   - predicate: lowers a filter AST into a backend-native predicate.
//   - cursor: encodes/decodes opaque cursors and drives keyset pagination.
//   - sqlboiler: a concrete backend binding for cursor and predicate.
//   - quotafill: wraps a Paginator with post-fetch filtering.
package paging
