package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/hlsbench/pkg/version"
)

func TestVersionCmd_Default(t *testing.T) {
	isolate(t)

	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "hlsbench "))
}

func TestVersionCmd_Short(t *testing.T) {
	isolate(t)

	out, err := execute(t, "version", "--short")

	require.NoError(t, err)
	assert.Equal(t, version.Short()+"\n", out)
}

func TestVersionCmd_JSON(t *testing.T) {
	isolate(t)

	out, err := execute(t, "version", "--json")

	require.NoError(t, err)
	var info version.BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.GetInfo().Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}
