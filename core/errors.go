package core

import (
	"errors"
	"fmt"
)

type Category int

const (
	ParseError Category = iota
	CatalogError
	SchemaError
	EvalError
)

func (c Category) String() string {
	switch c {
	case ParseError:
		return "parse error"
	case CatalogError:
		return "catalog error"
	case SchemaError:
		return "schema error"
	case EvalError:
		return "evaluation error"
	default:
		return "error"
	}
}

var (
	ErrSyntax = errors.New("syntax error")

	ErrTableNotFound    = errors.New("table not found")
	ErrTableExists      = errors.New("table already exists")
	ErrDuplicatePrimary = errors.New("duplicate primary key")

	ErrUnknownIdentifier   = errors.New("unknown identifier")
	ErrDuplicateColumn     = errors.New("duplicate column")
	ErrColumnCount         = errors.New("wrong number of columns")
	ErrUnionShape          = errors.New("incompatible union")
	ErrIncompatibleType    = errors.New("incompatible data type")
	ErrUnknownType         = errors.New("unknown data type")
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrUnknownFunction     = errors.New("unknown function")
	ErrArity               = errors.New("wrong number of arguments")
	ErrSubqueryColumns     = errors.New("nested select needs exactly 1 column")
	ErrUnknownPlaceholder  = errors.New("unrecognized placeholder")
	ErrAggregateContext    = errors.New("aggregate not allowed here")

	ErrNotNumeric          = errors.New("value is not numeric")
	ErrUnsupportedArgument = errors.New("unsupported argument type")
)

// Error is a categorised failure raised while parsing, compiling or executing a statement.
type Error struct {
	Category Category
	Kind     error
	Message  string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(category Category, kind error, format string, args ...any) error {
	return &Error{Category: category, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ParseErrorf(format string, args ...any) error {
	return newError(ParseError, ErrSyntax, format, args...)
}

func CatalogErrorf(kind error, format string, args ...any) error {
	return newError(CatalogError, kind, format, args...)
}

func SchemaErrorf(kind error, format string, args ...any) error {
	return newError(SchemaError, kind, format, args...)
}

func EvalErrorf(kind error, format string, args ...any) error {
	return newError(EvalError, kind, format, args...)
}

// CategoryOf returns the category of err, or false when err is not an *Error.
func CategoryOf(err error) (Category, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Category, true
	}
	return 0, false
}
