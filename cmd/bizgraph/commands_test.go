package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ooyales/it-biz-dev-lite-sub000/internal/server/graph"
)

const fixture = `{
  "organizations": [{"id": "o_acme", "name": "Acme Corp"}],
  "people": [
    {"id": "p_jane", "name": "Jane Doe", "role_category": "Decision Maker"},
    {"id": "p_bob", "name": "Bob Roe"},
    {"name": ""}
  ],
  "contracts": [
    {"name": "C1", "agency": "Department of Energy", "contractor_name": "Acme Corp", "value": 100}
  ],
  "relationships": [
    {"from_id": "p_jane", "from_type": "Person", "to_id": "o_acme", "to_type": "Organization", "relationship_type": "WORKS_AT"},
    {"from_id": "p_bob", "from_type": "Person", "to_id": "p_jane", "to_type": "Person", "relationship_type": "reports to"}
  ]
}`

func sqliteOpener(t *testing.T) opener {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.db")
	return func(ctx context.Context) (graph.Repository, error) {
		return graph.NewSQLite(ctx, path, graph.Options{})
	}
}

func execute(t *testing.T, open opener, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(open)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestImportThenQuery(t *testing.T) {
	open := sqliteOpener(t)
	file := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(file, []byte(fixture), 0o644))

	out, err := execute(t, open, "import", file)
	require.NoError(t, err, out)
	var summary importSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 1, summary.Organizations)
	assert.Equal(t, 2, summary.People.Succeeded)
	assert.Len(t, summary.People.Failed, 1)
	assert.Equal(t, 1, summary.Contracts)
	assert.Equal(t, 2, summary.Relationships)
	assert.Empty(t, summary.Errors)

	out, err = execute(t, open, "stats")
	require.NoError(t, err, out)
	var stats graph.NetworkStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats.PersonCount)
	assert.Equal(t, 1, stats.OrganizationCount)
	assert.Equal(t, 2, stats.EdgeCount)
	assert.Equal(t, 1, stats.RelationshipTypeCounts["REPORTS_TO"])

	out, err = execute(t, open, "ego", "p_bob", "--depth", "1")
	require.NoError(t, err, out)
	var sub graph.Subgraph
	require.NoError(t, json.Unmarshal([]byte(out), &sub))
	assert.Len(t, sub.Nodes, 2)

	out, err = execute(t, open, "path", "o_acme", "p_bob")
	require.NoError(t, err, out)
	assert.Equal(t, "Acme Corp (Organization)\n  <-[WORKS_AT]-\nJane Doe (Person)\n  <-[REPORTS_TO]-\nBob Roe (Person)\n", out)

	out, err = execute(t, open, "incumbents", "energy")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"company": "Acme Corp"`)
}

func TestClearRequiresConfirmation(t *testing.T) {
	open := sqliteOpener(t)
	file := filepath.Join(t.TempDir(), "fixture.json")
	require.NoError(t, os.WriteFile(file, []byte(fixture), 0o644))
	_, err := execute(t, open, "import", file)
	require.NoError(t, err)

	_, err = execute(t, open, "clear")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	out, err := execute(t, open, "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "graph cleared")

	out, err = execute(t, open, "stats")
	require.NoError(t, err)
	var stats graph.NetworkStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Zero(t, stats.PersonCount)
}

func TestPathNotFound(t *testing.T) {
	out, err := execute(t, sqliteOpener(t), "path", "p_a", "p_b")
	require.NoError(t, err)
	assert.Equal(t, "no path\n", out)
}
