package script

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compoundkit/compoundc/pkg/schema"
)

const path = "steps[0].script.code"

func codes(diags []schema.Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.Code
	}
	return out
}

// --- Size ---

func TestAnalyze_SizeAtLimit(t *testing.T) {
	code := "return 1\n" + strings.Repeat(" ", MaxScriptBytes-len("return 1\n"))
	require.Len(t, code, 4096)
	result := Analyze(code, path)
	assert.True(t, result.Valid())
}

func TestAnalyze_SizeOverLimit(t *testing.T) {
	code := "return 1\n" + strings.Repeat(" ", MaxScriptBytes-len("return 1\n")+1)
	require.Len(t, code, 4097)
	result := Analyze(code, path)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, schema.DiagScriptTooLarge, result.Errors[0].Code)
	assert.Contains(t, result.Errors[0].Message, "4097")
}

// --- Imports ---

func TestAnalyze_ImportForbidden(t *testing.T) {
	result := Analyze("import os\nreturn 1", path)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, schema.DiagScriptImportForbidden, result.Errors[0].Code)
	assert.Contains(t, result.Errors[0].Message, "line 1")
}

func TestAnalyze_FromImportForbidden(t *testing.T) {
	result := Analyze("x = 1\nfrom json import loads\nreturn x", path)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, schema.DiagScriptImportForbidden, result.Errors[0].Code)
	assert.Contains(t, result.Errors[0].Message, "line 2")
}

func TestAnalyze_ImportInStringIgnored(t *testing.T) {
	result := Analyze(`msg = "please import the data"`+"\nreturn msg", path)
	assert.True(t, result.Valid())
}

func TestAnalyze_ImportInCommentIgnored(t *testing.T) {
	result := Analyze("# import os would be nice\nreturn 1", path)
	assert.True(t, result.Valid())
}

func TestAnalyze_ImportantIsNotImport(t *testing.T) {
	result := Analyze("important = 1\nreturn important", path)
	assert.True(t, result.Valid())
}

// --- Classes ---

func TestAnalyze_ClassForbidden(t *testing.T) {
	result := Analyze("class Foo:\n    pass\nreturn 1", path)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, schema.DiagScriptClassForbidden, result.Errors[0].Code)
}

// --- Private members ---

func TestAnalyze_PrivateDefForbidden(t *testing.T) {
	result := Analyze("def _helper(x):\n    return x\nreturn _helper(1)", path)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, codes(result.Errors), schema.DiagScriptPrivateMemberForbidden)
	assert.Contains(t, result.Errors[0].Message, `"_helper"`)
}

func TestAnalyze_PrivateAccessForbidden(t *testing.T) {
	result := Analyze("v = obj._secret\nreturn v", path)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, schema.DiagScriptPrivateMemberForbidden, result.Errors[0].Code)
	assert.Contains(t, result.Errors[0].Message, `"_secret"`)
}

func TestAnalyze_PrivateAccessInStringIgnored(t *testing.T) {
	result := Analyze(`label = "value of x._hidden"`+"\nreturn label", path)
	assert.True(t, result.Valid())
}

func TestAnalyze_PublicDefAllowed(t *testing.T) {
	result := Analyze("def helper(x):\n    return x\nreturn helper(1)", path)
	assert.True(t, result.Valid())
}

func TestAnalyze_MultiplePrivateAccessesSameLine(t *testing.T) {
	result := Analyze("v = a._x + b._y\nreturn v", path)
	assert.Len(t, result.Errors, 2)
}

// --- Return analysis ---

func TestAnalyze_NoReturnErrors(t *testing.T) {
	result := Analyze("x = 1\ny = x + 2", path)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, schema.DiagScriptMissingReturn, result.Errors[0].Code)
}

func TestAnalyze_TopLevelReturnOK(t *testing.T) {
	result := Analyze("x = compute()\nreturn x", path)
	assert.True(t, result.Valid())
	assert.Empty(t, result.Warnings)
}

func TestAnalyze_OnlyNestedReturnsWarn(t *testing.T) {
	result := Analyze("if flag:\n    return 1", path)
	assert.True(t, result.Valid())
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, schema.DiagScriptMissingReturn, result.Warnings[0].Code)
	assert.Contains(t, result.Warnings[0].Message, "conditional")
}

func TestAnalyze_BareReturnWarns(t *testing.T) {
	result := Analyze("x = 1\nreturn", path)
	assert.True(t, result.Valid())
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0].Message, "no value")
}

func TestAnalyze_ReturnGluedToValue(t *testing.T) {
	result := Analyze("return{}", path)
	assert.True(t, result.Valid())
}

func TestAnalyze_ReturnInStringDoesNotCount(t *testing.T) {
	result := Analyze(`x = "return nothing"`, path)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, schema.DiagScriptMissingReturn, result.Errors[0].Code)
}

func TestAnalyze_ReturnsInIdentifierDoesNotCount(t *testing.T) {
	result := Analyze("returns = 1", path)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, schema.DiagScriptMissingReturn, result.Errors[0].Code)
}

func TestAnalyze_TripleQuotedStringBlanked(t *testing.T) {
	code := "doc = '''\nimport os\nclass X:\n'''\nreturn doc"
	result := Analyze(code, path)
	assert.True(t, result.Valid())
}

func TestAnalyze_AccumulatesAcrossRules(t *testing.T) {
	code := "import os\nclass Foo:\n    pass\nv = x._y"
	result := Analyze(code, path)
	got := codes(result.Errors)
	assert.Contains(t, got, schema.DiagScriptImportForbidden)
	assert.Contains(t, got, schema.DiagScriptClassForbidden)
	assert.Contains(t, got, schema.DiagScriptPrivateMemberForbidden)
	assert.Contains(t, got, schema.DiagScriptMissingReturn)
}
