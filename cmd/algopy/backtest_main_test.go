package main

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paramFlags(t *testing.T, values ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringArray("param", nil, "")
	for _, v := range values {
		require.NoError(t, flags.Set("param", v))
	}
	return flags
}

func TestParseParams(t *testing.T) {
	params, err := parseParams(paramFlags(t, "fast=9", "slow=21.5"))
	require.NoError(t, err)
	assert.Equal(t, 9.0, params["fast"])
	assert.Equal(t, 21.5, params["slow"])

	params, err = parseParams(paramFlags(t))
	require.NoError(t, err)
	assert.Empty(t, params)
}

func TestParseParams_Invalid(t *testing.T) {
	_, err := parseParams(paramFlags(t, "fast"))
	assert.Error(t, err)

	_, err = parseParams(paramFlags(t, "fast=abc"))
	assert.Error(t, err)
}
