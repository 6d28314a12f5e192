package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallAssignmentWithPositionalArgs(t *testing.T) {
	c, err := parseCall(`x = peek("a.go", 1, 10)`)
	require.NoError(t, err)
	assert.Equal(t, "x", c.assignTo)
	assert.Equal(t, "peek", c.helper)
	require.Len(t, c.args, 3)
	assert.Equal(t, "a.go", c.args[0].asString(""))
	assert.Equal(t, 1, c.args[1].asInt(0))
	assert.Equal(t, 10, c.args[2].asInt(0))
}

func TestParseCallBareCallNoAssignment(t *testing.T) {
	c, err := parseCall(`grep("TODO", under="src")`)
	require.NoError(t, err)
	assert.Equal(t, "", c.assignTo)
	assert.Equal(t, "grep", c.helper)
	require.Len(t, c.args, 1)
	assert.Equal(t, "TODO", c.args[0].asString(""))
	assert.Equal(t, "src", c.kwargs["under"].asString(""))
}

func TestParseCallRejectsNonHelperExpression(t *testing.T) {
	_, err := parseCall(`1 + 1`)
	assert.Error(t, err)
}

func TestParseCallNoneLiteral(t *testing.T) {
	c, err := parseCall(`write_chunks("a.go", "1,2", None)`)
	require.NoError(t, err)
	assert.Equal(t, argNone, c.args[2].kind)
}

func TestSplitArgsRespectsQuotedCommas(t *testing.T) {
	parts := splitArgs(`"a, b", 2`)
	require.Len(t, parts, 2)
	assert.Equal(t, `"a, b"`, parts[0])
	assert.Equal(t, " 2", parts[1])
}
