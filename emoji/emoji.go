// Package emoji provides a read-only shortcode -> unicode lookup table.
//
// The spec treats this table as a static external collaborator ("the
// emoji shortcode table (a static mapping)"); Table wraps the built-in
// data map from data.go with the small bit of behaviour the bridge
// actually needs (case-sensitive exact lookup, no fuzzy matching).
package emoji

// Table is a read-only shortcode-to-unicode mapping.
type Table struct {
	entries map[string]string
}

// New builds a Table from the standard shortcode set baked into this
// package (see data.go) plus any caller-supplied overrides, which take
// precedence over the built-in set.
func New(overrides map[string]string) *Table {
	entries := make(map[string]string, len(data)+len(overrides))
	for k, v := range data {
		entries[k] = v
	}
	for k, v := range overrides {
		entries[k] = v
	}
	return &Table{entries: entries}
}

// Lookup returns the unicode string for a shortcode (without colons), and
// whether it was found.
func (t *Table) Lookup(shortcode string) (string, bool) {
	v, ok := t.entries[shortcode]
	return v, ok
}
