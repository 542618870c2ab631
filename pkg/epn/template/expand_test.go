package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	vars := map[string]any{
		"name":  "World",
		"port":  8080,
		"on":    true,
		"empty": "",
		"db":    map[string]any{"path": "/tmp/epn.db"},
		"a.b":   "literal",
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no references", "plain text", "plain text"},
		{"simple", "Hello ${name}", "Hello World"},
		{"adjacent", "${name}${name}", "WorldWorld"},
		{"number", "port: ${port}", "port: 8080"},
		{"bool", "${on}", "true"},
		{"empty value", "[${empty}]", "[]"},
		{"nested", "${db.path}", "/tmp/epn.db"},
		{"literal dotted key wins", "${a.b}", "literal"},
		{"fallback unused", "${name:-nobody}", "World"},
		{"fallback", "${user:-nobody}", "nobody"},
		{"empty fallback", "[${user:-}]", "[]"},
		{"set but empty ignores fallback", "[${empty:-x}]", "[]"},
		{"missing kept", "${missing}", "${missing}"},
		{"dollar form not expanded", "$name", "$name"},
		{"unclosed", "${name", "${name"},
		{"invalid name", "${1x}", "${1x}"},
	}

	exp := NewExpander()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := exp.Expand(tt.input, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestExpand_MissingActions(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		exp := NewExpander(WithMissingAction(MissingEmpty))
		got, err := exp.Expand("a${x}b", nil)
		require.NoError(t, err)
		assert.Equal(t, "ab", got)
	})

	t.Run("error", func(t *testing.T) {
		exp := NewExpander(WithMissingAction(MissingError))
		got, err := exp.Expand("${x}/${y}/${z:-ok}", nil)
		require.Error(t, err)

		var undef *UndefinedVariableError
		require.ErrorAs(t, err, &undef)
		assert.Equal(t, []string{"x", "y"}, undef.Names)
		assert.Equal(t, "undefined variables: x, y", err.Error())
		assert.Equal(t, "${x}/${y}/ok", got)
	})

	t.Run("single", func(t *testing.T) {
		_, err := NewExpander(WithMissingAction(MissingError)).Expand("${x}", nil)
		assert.EqualError(t, err, "undefined variable: x")
	})
}

func TestExpand_DollarStyle(t *testing.T) {
	exp := NewExpander(WithDollarStyle(true))
	vars := map[string]any{"port": 80, "portNumber": 8080}

	got, err := exp.Expand("$port $portNumber ${port} $missing", vars)
	require.NoError(t, err)
	assert.Equal(t, "80 8080 80 $missing", got)
}

func TestMustExpand(t *testing.T) {
	exp := NewExpander(WithMissingAction(MissingError))
	assert.Equal(t, "v", exp.MustExpand("${k}", map[string]any{"k": "v"}))
	assert.PanicsWithValue(t, "template: undefined variable: k", func() {
		exp.MustExpand("${k}", nil)
	})
}

func TestExpandMap(t *testing.T) {
	exp := NewExpander()
	vars := map[string]any{"dir": "/data", "n": 3}
	in := map[string]any{
		"path":  "${dir}/events.db",
		"count": 5,
		"sub":   map[string]any{"label": "n=${n}"},
		"list":  []any{"${dir}", 1},
	}

	got, err := exp.ExpandMap(in, vars)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"path":  "/data/events.db",
		"count": 5,
		"sub":   map[string]any{"label": "n=3"},
		"list":  []any{"/data", 1},
	}, got)
	assert.Equal(t, "${dir}/events.db", in["path"])

	got, err = exp.ExpandMap(nil, vars)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = NewExpander(WithMissingAction(MissingError)).ExpandMap(map[string]any{"l": []any{"${x}"}}, nil)
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"a", "b.c", "d"}, Names("${a} ${b.c} ${a} ${d:-x} $e"))
	assert.Nil(t, Names("none"))
}

func TestPackageExpand(t *testing.T) {
	assert.Equal(t, "hi ${who}", Expand("${greet} ${who}", map[string]any{"greet": "hi"}))
}

func TestParseMissingAction(t *testing.T) {
	for _, a := range []MissingAction{MissingKeep, MissingEmpty, MissingError} {
		got, ok := ParseMissingAction(a.String())
		assert.True(t, ok)
		assert.Equal(t, a, got)
	}
	_, ok := ParseMissingAction("fail")
	assert.False(t, ok)
}
