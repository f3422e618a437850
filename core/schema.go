package core

import "strings"

type Field struct {
	ID   string     `json:"id"`
	Type ColumnType `json:"type"`
}

// Schema is the ordered shape of the rows a cursor produces.
type Schema []Field

// Resolve finds the field a column reference names. A full case-insensitive
// match wins; otherwise the first field whose id ends in "." + ref matches.
func (s Schema) Resolve(ref string) (int, error) {
	for i, f := range s {
		if strings.EqualFold(f.ID, ref) {
			return i, nil
		}
	}
	suffix := "." + strings.ToLower(ref)
	for i, f := range s {
		if strings.HasSuffix(strings.ToLower(f.ID), suffix) {
			return i, nil
		}
	}
	return -1, SchemaErrorf(ErrUnknownIdentifier, "unknown identifier %s", ref)
}

func (s Schema) IDs() []string {
	ids := make([]string, len(s))
	for i, f := range s {
		ids[i] = f.ID
	}
	return ids
}

// Prefixed returns a copy of the schema with every id qualified by alias.
func (s Schema) Prefixed(alias string) Schema {
	out := make(Schema, len(s))
	for i, f := range s {
		out[i] = Field{ID: alias + "." + f.ID, Type: f.Type}
	}
	return out
}

// Compatible reports whether rows of s and other can be concatenated.
func (s Schema) Compatible(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if !Compatible(s[i].Type, other[i].Type) {
			return false
		}
	}
	return true
}
