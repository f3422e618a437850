package db

import (
	"testing"

	"github.com/nickyhof/MemDB/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchLike(t *testing.T) {
	tests := []struct {
		text, pattern string
		expected      bool
	}{
		{"Hans", "hans", true},
		{"Hans", "H%", true},
		{"Hans", "%s", true},
		{"Hans", "%an%", true},
		{"Hans", "H_ns", true},
		{"Hans", "H_s", false},
		{"Hans", "%", true},
		{"", "%", true},
		{"", "_", false},
		{"a%b", "a%b", true},
		{"Anton", "%o", false},
		{"Müller", "m_ller", true},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, matchLike(test.text, test.pattern), "%q LIKE %q", test.text, test.pattern)
	}
}

func TestScope(t *testing.T) {
	scope, err := NewScope(1, "a", nil, int64(3), 2.5, true)
	require.NoError(t, err)

	expected := []core.Value{1.0, "a", nil, 3.0, 2.5}
	for i, v := range expected {
		actual, err := scope.Arg(i + 1)
		require.NoError(t, err)
		assert.Equal(t, v, actual)
	}

	_, err = scope.Arg(0)
	assert.ErrorIs(t, err, core.ErrUnknownPlaceholder)
	_, err = scope.Arg(7)
	assert.ErrorIs(t, err, core.ErrUnknownPlaceholder)

	var empty *Scope
	_, err = empty.Arg(1)
	assert.ErrorIs(t, err, core.ErrUnknownPlaceholder)
}

func TestFunctionNulls(t *testing.T) {
	engine := NewMemoryEngine()

	qr := mustQuery(t, engine, "SELECT SQRT(NULL) AS a, UPPER(NULL) AS b, SQRT(-1) AS c, COALESCE(NULL, NULL) AS d, LOWER('ÄB') AS e")
	assertColumn(t, qr, "a", nil)
	assertColumn(t, qr, "b", nil)
	assertColumn(t, qr, "c", nil)
	assertColumn(t, qr, "d", nil)
	assertColumn(t, qr, "e", "äb")
}

func TestContainsAggregate(t *testing.T) {
	engine := NewMemoryEngine()
	mustExecute(t, engine, "CREATE TABLE t (x NUMBER)")
	mustExecute(t, engine, "INSERT INTO t VALUES (1), (2), (3)")

	// an aggregate inside a subquery does not group the outer select
	qr := mustQuery(t, engine, "SELECT x, (SELECT COUNT(*) FROM t) AS n FROM t")
	assertColumn(t, qr, "t.x", 1.0, 2.0, 3.0)
	assertColumn(t, qr, "n", 3.0, 3.0, 3.0)

	qr = mustQuery(t, engine, "SELECT x + 1 AS y, COUNT(*) AS n FROM t")
	assertColumn(t, qr, "y", 2.0)
	assertColumn(t, qr, "n", 3.0)
}
