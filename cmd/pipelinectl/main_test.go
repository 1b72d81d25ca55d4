package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/pipeline"
)

const exported = `{
  "name": "My Pipeline",
  "nodes": [
    {"id": "customInput-1", "type": "customInput", "position": {"x": 10, "y": 20}, "data": {"inputName": "input_1"}},
    {"id": "text-1", "type": "text", "data": {"text": "{{input_1}}"}},
    {"id": "customOutput-1", "type": "customOutput", "data": {}}
  ],
  "edges": [
    {"id": "reactflow__edge-1", "source": "customInput-1", "target": "text-1"},
    {"id": "reactflow__edge-2", "source": "text-1", "target": "customOutput-1"},
    {"id": "reactflow__edge-3", "source": "customOutput-1", "target": "customInput-1"}
  ],
  "exportedAt": "2026-01-02T03:04:05.000Z"
}`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.Execute()
	return out.String(), err
}

func TestLoadPipeline(t *testing.T) {
	p, err := loadPipeline(writeFile(t, exported), nil)
	require.NoError(t, err)

	assert.Equal(t, "My Pipeline", p.Name)
	assert.Len(t, p.Nodes, 3)
	assert.Len(t, p.Edges, 3)
	assert.Equal(t, "input_1", p.Nodes[0].Data["inputName"])
}

func TestLoadPipeline_Errors(t *testing.T) {
	_, err := loadPipeline(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.ErrorContains(t, err, "read file")

	_, err = loadPipeline(writeFile(t, "not json"), nil)
	assert.ErrorContains(t, err, "parse")
}

func TestAnalyzeCommand(t *testing.T) {
	out, err := run(t, "", "analyze", writeFile(t, exported))
	require.NoError(t, err)

	var res pipeline.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 3, res.NumNodes)
	assert.Equal(t, 3, res.NumEdges)
	assert.False(t, res.IsDAG)
	assert.Equal(t, []string{"customInput-1", "text-1", "customOutput-1"}, res.Cycles.CyclePath)
}

func TestAnalyzeCommand_Stdin(t *testing.T) {
	out, err := run(t, `{"nodes": [{"id": "a"}], "edges": []}`, "analyze", "--pretty", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "\n  \"is_dag\": true")
}

func TestAnalyzeCommand_InvalidGraph(t *testing.T) {
	_, err := run(t, `{"nodes": [{"id": "a"}, {"id": "a"}]}`, "analyze", "-")
	assert.ErrorIs(t, err, pipeline.ErrInvalidGraph)
}

func TestAnalyzeCommand_BadScope(t *testing.T) {
	_, err := run(t, "", "analyze", "--scope", "nope", writeFile(t, exported))
	assert.ErrorIs(t, err, pipeline.ErrUnknownScope)
}

func TestDotCommand(t *testing.T) {
	out, err := run(t, "", "dot", writeFile(t, exported))
	require.NoError(t, err)
	assert.Contains(t, out, "digraph pipeline")
	assert.Contains(t, out, `"customInput-1"`)
	assert.Contains(t, out, "red")
}
