package core

import (
	"fmt"
	"strings"
)

type ColumnType string

const (
	UnknownType ColumnType = ""
	NumberType  ColumnType = "NUMBER"
	TextType    ColumnType = "TEXT"
	DateType    ColumnType = "DATE"
)

// ParseColumnType normalises a declared type name.
func ParseColumnType(name string) (ColumnType, error) {
	switch strings.ToUpper(name) {
	case "INTEGER", "INT", "NUMBER", "FLOAT", "DOUBLE", "REAL":
		return NumberType, nil
	case "TEXT", "STRING", "VARCHAR":
		return TextType, nil
	case "DATE", "TIMESTAMP":
		return DateType, nil
	default:
		return UnknownType, SchemaErrorf(ErrUnknownType, "unknown data type %s", name)
	}
}

func (t ColumnType) Textual() bool {
	return t == TextType || t == DateType
}

// Compatible reports whether values of type a may be stored in or combined with type b.
func Compatible(a, b ColumnType) bool {
	if a == UnknownType || b == UnknownType || a == b {
		return true
	}
	return a.Textual() && b.Textual()
}

type Column struct {
	ID            string     `json:"id"`
	Type          ColumnType `json:"type"`
	Primary       bool       `json:"primary,omitempty"`
	Default       Value      `json:"default,omitempty"`
	AutoIncrement *int64     `json:"auto_increment,omitempty"`
	Comment       string     `json:"comment,omitempty"`
}

// Counter returns a fresh auto-increment counter starting at start.
func Counter(start int64) *int64 {
	return &start
}

type TableDef struct {
	ID      string   `json:"id"`
	Columns []Column `json:"columns"`
}

// Column returns the index of the column named id, compared case-insensitively.
func (def TableDef) Column(id string) (int, error) {
	for i, column := range def.Columns {
		if strings.EqualFold(column.ID, id) {
			return i, nil
		}
	}
	return -1, SchemaErrorf(ErrUnknownIdentifier, "unknown column %s in table %s", id, def.ID)
}

// Primary returns the index of the primary column, or -1.
func (def TableDef) Primary() int {
	for i, column := range def.Columns {
		if column.Primary {
			return i
		}
	}
	return -1
}

func (def TableDef) Schema() Schema {
	schema := make(Schema, len(def.Columns))
	for i, column := range def.Columns {
		schema[i] = Field{ID: column.ID, Type: column.Type}
	}
	return schema
}

// Validate checks the invariants of a table definition.
func (def TableDef) Validate() error {
	seen := make(map[string]bool, len(def.Columns))
	primaries := 0
	for _, column := range def.Columns {
		key := strings.ToLower(column.ID)
		if seen[key] {
			return SchemaErrorf(ErrDuplicateColumn, "duplicate column %s in table %s", column.ID, def.ID)
		}
		seen[key] = true

		switch column.Type {
		case NumberType, TextType, DateType:
		default:
			return SchemaErrorf(ErrUnknownType, "unknown data type %s", column.Type)
		}
		if column.Primary {
			primaries++
		}
		if column.AutoIncrement != nil && column.Type != NumberType {
			return SchemaErrorf(ErrIncompatibleType, "AUTO_INCREMENT column %s must be NUMBER", column.ID)
		}
		if column.Default != nil && !Compatible(TypeOf(column.Default), column.Type) {
			return SchemaErrorf(ErrIncompatibleType, "incompatible data type for default value of %s", column.ID)
		}
	}
	if primaries > 1 {
		return CatalogErrorf(ErrDuplicatePrimary, "table %s has more than one primary key", def.ID)
	}
	return nil
}

func (def TableDef) String() string {
	parts := make([]string, len(def.Columns))
	for i, column := range def.Columns {
		parts[i] = fmt.Sprintf("%s %s", column.ID, column.Type)
	}
	return fmt.Sprintf("%s(%s)", def.ID, strings.Join(parts, ", "))
}

// Identity identifies the author of checkpoints.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
