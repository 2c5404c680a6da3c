// Package zotxt provides a client for the zotxt Zotero HTTP endpoint.
package zotxt

import "fmt"

// KeyType selects which key scheme an items query uses.
type KeyType string

const (
	// KeyTypeEasyKey is zotxt's own citation key scheme (e.g. doe:2005first).
	KeyTypeEasyKey KeyType = "easykey"

	// KeyTypeBetterBibTeX is the Better BibTeX citation key scheme (e.g. Doe2005).
	KeyTypeBetterBibTeX KeyType = "betterbibtexkey"

	// KeyTypeItemKey is a Zotero item key, optionally library-qualified.
	KeyTypeItemKey KeyType = "key"
)

// ParseKeyType converts a configuration or flag value to a KeyType.
// "alternate-key" is accepted as a synonym for the Better BibTeX scheme.
func ParseKeyType(s string) (KeyType, error) {
	switch s {
	case string(KeyTypeEasyKey):
		return KeyTypeEasyKey, nil
	case string(KeyTypeBetterBibTeX), "alternate-key", "betterbibtex":
		return KeyTypeBetterBibTeX, nil
	case string(KeyTypeItemKey):
		return KeyTypeItemKey, nil
	}
	return "", fmt.Errorf("unknown key type %q (valid: easykey, betterbibtexkey, key)", s)
}

// Record is one CSL-JSON item as returned by zotxt.
// Its schema belongs to Zotero; only the "id" field is interpreted here.
type Record map[string]any

// ID returns the record's "id" field, or "" if it is missing or not a string.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// WithID returns a shallow copy of r with "id" set to id.
func (r Record) WithID(id string) Record {
	out := make(Record, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	out["id"] = id
	return out
}

// Outcome is the result of a single lookup: either a matched record or no match.
type Outcome struct {
	record Record
}

// Matched returns an Outcome holding r.
func Matched(r Record) Outcome {
	return Outcome{record: r}
}

// NotFound returns an Outcome with no record.
func NotFound() Outcome {
	return Outcome{}
}

// Found reports whether the lookup matched.
func (o Outcome) Found() bool {
	return o.record != nil
}

// Record returns the matched record, or nil.
func (o Outcome) Record() Record {
	return o.record
}
