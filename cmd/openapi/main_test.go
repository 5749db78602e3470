package main

import (
	"testing"

	"gigboard/docs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
paths:
  /jobs:
    get:
      responses:
        "200": {}
    post:
      responses:
        "201": {}
        "400": {}
  /jobs/{id}:
    get:
      responses:
        "200": {}
        "404": {}
`

func TestCompare_DetectsRemovals(t *testing.T) {
	base, err := parseSpec([]byte(baseYAML))
	require.NoError(t, err)

	revision, err := parseSpec([]byte(`
paths:
  /jobs:
    get:
      responses:
        "200": {}
    post:
      responses:
        "201": {}
`))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"removed path: /jobs/{id}",
		"removed response code: POST /jobs -> 400",
	}, compare(base, revision))
}

func TestCompare_AdditionsAreCompatible(t *testing.T) {
	base, err := parseSpec([]byte(baseYAML))
	require.NoError(t, err)

	revision, err := parseSpec([]byte(baseYAML + `
  /contracts:
    get:
      responses:
        "200": {}
`))
	require.NoError(t, err)

	assert.Empty(t, compare(base, revision))
}

func TestParseSpec_RequiresPaths(t *testing.T) {
	_, err := parseSpec([]byte("info: {}\n"))
	assert.Error(t, err)
}

func TestRenderYAML_RegisteredDocument(t *testing.T) {
	raw, err := renderYAML(docs.SwaggerInfo.InstanceName())
	require.NoError(t, err)

	spec, err := parseSpec(raw)
	require.NoError(t, err)
	assert.Contains(t, spec.Paths, "/jobs")
	assert.Contains(t, spec.Paths["/jobs"], "get")
}
