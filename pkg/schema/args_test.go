package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgs_MarshalPreservesOrder(t *testing.T) {
	args := Args{
		{Name: "zebra", Value: "data.z"},
		{Name: "apple", Value: "data.a"},
		{Name: "mango", Value: "data.m"},
	}
	out, err := json.Marshal(args)
	require.NoError(t, err)
	assert.Equal(t, `{"zebra":"data.z","apple":"data.a","mango":"data.m"}`, string(out))
}

func TestArgs_UnmarshalPreservesOrder(t *testing.T) {
	var args Args
	err := json.Unmarshal([]byte(`{"c":"3","a":"1","b":"2"}`), &args)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, args.Names())
}

func TestArgs_UnmarshalScalarCoercion(t *testing.T) {
	var args Args
	err := json.Unmarshal([]byte(`{"count":5,"ratio":0.25,"flag":true,"empty":null}`), &args)
	require.NoError(t, err)

	v, ok := args.Get("count")
	require.True(t, ok)
	assert.Equal(t, "5", v)

	v, _ = args.Get("ratio")
	assert.Equal(t, "0.25", v)

	v, _ = args.Get("flag")
	assert.Equal(t, "true", v)

	v, _ = args.Get("empty")
	assert.Equal(t, "", v)
}

func TestArgs_UnmarshalRejectsNestedValue(t *testing.T) {
	var args Args
	err := json.Unmarshal([]byte(`{"nested":{"a":1}}`), &args)
	assert.Error(t, err)
}

func TestArgs_UnmarshalRejectsNonObject(t *testing.T) {
	var args Args
	err := json.Unmarshal([]byte(`["a","b"]`), &args)
	assert.Error(t, err)
}

func TestArgs_GetMissing(t *testing.T) {
	args := Args{{Name: "a", Value: "1"}}
	_, ok := args.Get("missing")
	assert.False(t, ok)
}

func TestArgs_RoundTrip(t *testing.T) {
	orig := Args{
		{Name: "user_id", Value: "data.user.id"},
		{Name: "greeting", Value: "hello"},
	}
	out, err := json.Marshal(orig)
	require.NoError(t, err)

	var back Args
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, orig, back)
}
