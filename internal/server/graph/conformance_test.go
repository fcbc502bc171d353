package graph

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repoFactory returns an empty repository for one subtest
type repoFactory func(t *testing.T) Repository

func newTestSQLite(t *testing.T) Repository {
	t.Helper()
	ctx := context.Background()
	repo, err := NewSQLite(ctx, filepath.Join(t.TempDir(), "graph.db"), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close(ctx) })
	return repo
}

func TestSQLiteConformance(t *testing.T) {
	runConformance(t, newTestSQLite)
}

// TestNeo4jConformance runs against a live server when NEO4J_TEST_URI is set.
// The target database is cleared before every subtest.
func TestNeo4jConformance(t *testing.T) {
	uri := os.Getenv("NEO4J_TEST_URI")
	if uri == "" {
		t.Skip("NEO4J_TEST_URI not set")
	}
	ctx := context.Background()
	repo, err := NewNeo4j(ctx, Neo4jConfig{
		URI:      uri,
		Username: envOr("NEO4J_TEST_USER", "neo4j"),
		Password: envOr("NEO4J_TEST_PASSWORD", "password"),
		Database: envOr("NEO4J_TEST_DATABASE", "neo4j"),
		Timeout:  30 * time.Second,
	}, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close(ctx) })
	require.NoError(t, repo.EnsureIndexes(ctx))

	runConformance(t, func(t *testing.T) Repository {
		require.NoError(t, repo.ClearDatabase(ctx))
		return repo
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func mustPerson(t *testing.T, repo Repository, in PersonInput) string {
	t.Helper()
	id, err := repo.CreateOrUpdatePerson(context.Background(), in)
	require.NoError(t, err)
	return id
}

func mustOrg(t *testing.T, repo Repository, name string) string {
	t.Helper()
	id, err := repo.CreateOrUpdateOrganization(context.Background(), OrganizationInput{Name: name})
	require.NoError(t, err)
	return id
}

func mustEdge(t *testing.T, repo Repository, in EdgeInput) {
	t.Helper()
	require.NoError(t, repo.CreateRelationship(context.Background(), in))
}

func mustContract(t *testing.T, repo Repository, name, contractor, agency string, value float64, awarded, naics string) {
	t.Helper()
	_, err := repo.CreateOrUpdateContract(context.Background(), ContractInput{
		Name:           name,
		ContractorName: contractor,
		Agency:         agency,
		Value:          &value,
		AwardDate:      awarded,
		NAICS:          naics,
	})
	require.NoError(t, err)
}

// exampleNetwork is Jane -WORKS_AT-> DISA and Jane -INTERACTED_WITH-> Tom
func exampleNetwork(t *testing.T, repo Repository) (jane, tom, disa string) {
	jane = mustPerson(t, repo, PersonInput{Name: "Jane Doe", Email: "jane@x.gov", RoleCategory: RoleDecisionMaker})
	tom = mustPerson(t, repo, PersonInput{Name: "Tom Lee"})
	disa = mustOrg(t, repo, "DISA")
	mustEdge(t, repo, EdgeInput{FromID: jane, FromType: EntityPerson, ToID: disa, ToType: EntityOrganization, Type: RelWorksAt})
	mustEdge(t, repo, EdgeInput{FromID: jane, FromType: EntityPerson, ToID: tom, ToType: EntityPerson, Type: RelInteractedWith})
	return jane, tom, disa
}

func runConformance(t *testing.T, newRepo repoFactory) {
	ctx := context.Background()

	t.Run("ExampleScenario", func(t *testing.T) {
		repo := newRepo(t)
		jane, tom, disa := exampleNetwork(t, repo)

		stats, err := repo.NetworkStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.PersonCount)
		assert.Equal(t, 1, stats.OrganizationCount)
		assert.Equal(t, 2, stats.EdgeCount)
		assert.Equal(t, 1, stats.DecisionMakerCount)
		assert.Equal(t, map[string]int{RelWorksAt: 1, RelInteractedWith: 1}, stats.RelationshipTypeCounts)

		sub, err := repo.EgoNetwork(ctx, jane, 1)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{jane, disa, tom}, nodeIDs(sub.Nodes))
		assert.ElementsMatch(t, []string{
			jane + "-WORKS_AT->" + disa,
			jane + "-INTERACTED_WITH->" + tom,
		}, edgeKeys(sub.Edges))

		path, err := repo.ShortestPath(ctx, tom, disa)
		require.NoError(t, err)
		require.NotNil(t, path)
		assert.Equal(t, 2, path.Length())
		assert.Equal(t, []string{tom, jane, disa}, nodeIDs(path.Nodes))
		assert.True(t, path.Reversed(0))
		assert.False(t, path.Reversed(1))
	})

	t.Run("PersonUpsertIsIdempotent", func(t *testing.T) {
		repo := newRepo(t)
		in := PersonInput{Name: "Jane Doe", Email: "jane@x.gov", Title: "CIO"}
		first := mustPerson(t, repo, in)
		second := mustPerson(t, repo, in)
		assert.Equal(t, first, second)

		stats, err := repo.NetworkStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.PersonCount)
	})

	t.Run("AbsentFieldsNeverOverwrite", func(t *testing.T) {
		repo := newRepo(t)
		id := mustPerson(t, repo, PersonInput{
			Name:         "Jane Doe",
			Email:        "jane@x.gov",
			Phone:        "555-0100",
			Title:        "CIO",
			Organization: "DISA",
			RoleCategory: RoleDecisionMaker,
			Source:       "sam.gov",
		})
		before, err := repo.GetPerson(ctx, id)
		require.NoError(t, err)

		mustPerson(t, repo, PersonInput{Name: "Jane Doe", Email: "jane@x.gov", Title: "CTO"})

		after, err := repo.GetPerson(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "CTO", after.Title, "supplied value wins")
		assert.Equal(t, "555-0100", after.Phone)
		assert.Equal(t, "DISA", after.Organization)
		assert.Equal(t, RoleDecisionMaker, after.RoleCategory)
		assert.Equal(t, "sam.gov", after.Source)
		assert.True(t, before.CreatedAt.Equal(after.CreatedAt), "created_at is set once")
		assert.False(t, after.UpdatedAt.Before(after.CreatedAt))
	})

	t.Run("StrengthDerivedOnlyOnCreate", func(t *testing.T) {
		repo := newRepo(t)
		id := mustPerson(t, repo, PersonInput{Name: "Ann", Influence: "high"})
		p, err := repo.GetPerson(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StrengthStrong, p.RelationshipStrength)

		mustPerson(t, repo, PersonInput{Name: "Ann", Influence: "low"})
		p, err = repo.GetPerson(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StrengthStrong, p.RelationshipStrength, "influence is not re-derived on update")

		mustPerson(t, repo, PersonInput{Name: "Ann", RelationshipStrength: StrengthWarm})
		p, err = repo.GetPerson(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StrengthWarm, p.RelationshipStrength)
	})

	t.Run("PersonLookups", func(t *testing.T) {
		repo := newRepo(t)
		jane := mustPerson(t, repo, PersonInput{Name: "Jane Doe", Email: "Jane@X.gov"})
		mustPerson(t, repo, PersonInput{Name: "Janet Smith"})
		mustPerson(t, repo, PersonInput{Name: "Tom Lee"})

		p, err := repo.FindPersonByEmail(ctx, "jane@x.GOV")
		require.NoError(t, err)
		assert.Equal(t, jane, p.ID)

		_, err = repo.FindPersonByEmail(ctx, "nobody@x.gov")
		assert.True(t, IsNotFound(err))

		_, err = repo.GetPerson(ctx, "person_missing")
		assert.True(t, IsNotFound(err))

		people, err := repo.SearchPeople(ctx, "JAN", 0)
		require.NoError(t, err)
		assert.Len(t, people, 2)

		people, err = repo.SearchPeople(ctx, "jan", 1)
		require.NoError(t, err)
		assert.Len(t, people, 1)

		people, err = repo.SearchPeople(ctx, "zzz", 0)
		require.NoError(t, err)
		assert.NotNil(t, people)
		assert.Empty(t, people)
	})

	t.Run("PersonValidation", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.CreateOrUpdatePerson(ctx, PersonInput{Name: "  "})
		assert.True(t, IsValidation(err))

		_, err = repo.CreateOrUpdatePerson(ctx, PersonInput{Name: "A", Email: "nope"})
		assert.True(t, IsValidation(err))
	})

	t.Run("Organizations", func(t *testing.T) {
		repo := newRepo(t)
		id, err := repo.CreateOrUpdateOrganization(ctx, OrganizationInput{
			Name: "Defense Information Systems Agency", Abbreviation: "DISA", Type: "Agency",
		})
		require.NoError(t, err)

		_, err = repo.CreateOrUpdateOrganization(ctx, OrganizationInput{
			Name: "defense information systems agency", Parent: "DoD",
		})
		require.NoError(t, err)

		o, err := repo.GetOrganization(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "DISA", o.Abbreviation)
		assert.Equal(t, "Agency", o.Type)
		assert.Equal(t, "DoD", o.Parent)

		found, err := repo.FindOrganizationByName(ctx, " Defense Information Systems Agency ")
		require.NoError(t, err)
		assert.Equal(t, id, found.ID)

		explicit, err := repo.CreateOrUpdateOrganization(ctx, OrganizationInput{ID: "org_custom", Name: "Acme Corp"})
		require.NoError(t, err)
		found, err = repo.FindOrganizationByName(ctx, "acme corp")
		require.NoError(t, err)
		assert.Equal(t, explicit, found.ID)

		orgs, err := repo.SearchOrganizations(ctx, "systems", 0)
		require.NoError(t, err)
		require.Len(t, orgs, 1)

		_, err = repo.FindOrganizationByName(ctx, "Nobody Inc")
		assert.True(t, IsNotFound(err))
	})

	t.Run("ContractUpsert", func(t *testing.T) {
		repo := newRepo(t)
		mustContract(t, repo, "C-1", "Acme", "DISA", 100, "2024-01-02", "541512")

		_, err := repo.CreateOrUpdateContract(ctx, ContractInput{Name: "C-1", Title: "Cloud support"})
		require.NoError(t, err)
		c, err := repo.GetContract(ctx, "C-1")
		require.NoError(t, err)
		assert.Equal(t, 100.0, c.Value, "absent value keeps the stored one")
		assert.Equal(t, "Cloud support", c.Title)
		assert.Equal(t, "Acme", c.ContractorName)

		zero := 0.0
		_, err = repo.CreateOrUpdateContract(ctx, ContractInput{Name: "C-1", Value: &zero})
		require.NoError(t, err)
		c, err = repo.GetContract(ctx, "C-1")
		require.NoError(t, err)
		assert.Equal(t, 0.0, c.Value, "explicit zero is a supplied value")

		_, err = repo.GetContract(ctx, "C-404")
		assert.True(t, IsNotFound(err))

		stats, err := repo.NetworkStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.ContractCount)
	})

	t.Run("EdgeUniquenessLatestWins", func(t *testing.T) {
		repo := newRepo(t)
		a := mustPerson(t, repo, PersonInput{Name: "A"})
		b := mustPerson(t, repo, PersonInput{Name: "B"})

		for i, note := range []string{"first", "second", "third"} {
			mustEdge(t, repo, EdgeInput{
				FromID: a, FromType: EntityPerson, ToID: b, ToType: EntityPerson,
				Type: "knows", Properties: map[string]any{"note": note, "n": i},
			})
		}

		edges, err := repo.GetRelationships(ctx, a)
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, "KNOWS", edges[0].Type)
		assert.Equal(t, "third", edges[0].Properties["note"])
		assert.EqualValues(t, 2, edges[0].Properties["n"])

		// reverse direction is a different triple
		mustEdge(t, repo, EdgeInput{FromID: b, FromType: EntityPerson, ToID: a, ToType: EntityPerson, Type: "KNOWS"})
		stats, err := repo.NetworkStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.EdgeCount)
	})

	t.Run("DanglingEdges", func(t *testing.T) {
		repo := newRepo(t)
		mustEdge(t, repo, EdgeInput{
			FromID: "person_ghost", FromType: EntityPerson,
			ToID: "org_ghost", ToType: EntityOrganization,
			Type: RelWorksAt,
		})

		stats, err := repo.NetworkStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.PersonCount)
		assert.Equal(t, 0, stats.OrganizationCount)
		assert.Equal(t, 1, stats.EdgeCount)

		sub, err := repo.EgoNetwork(ctx, "person_ghost", 1)
		require.NoError(t, err)
		require.Len(t, sub.Nodes, 2)
		assert.Equal(t, "person_ghost", sub.Nodes[0].ID)
		assert.Equal(t, EntityPerson, sub.Nodes[0].Type)
		assert.Equal(t, EntityOrganization, sub.Nodes[1].Type)

		_, err = repo.GetPerson(ctx, "person_ghost")
		assert.True(t, IsNotFound(err))

		// the real record can arrive later
		_, err = repo.CreateOrUpdatePerson(ctx, PersonInput{ID: "person_ghost", Name: "Casper"})
		require.NoError(t, err)
		sub, err = repo.EgoNetwork(ctx, "person_ghost", 0)
		require.NoError(t, err)
		require.Len(t, sub.Nodes, 1)
		assert.Equal(t, "Casper", sub.Nodes[0].Name)
	})

	t.Run("UntypedEndpointsInferred", func(t *testing.T) {
		repo := newRepo(t)
		jane := mustPerson(t, repo, PersonInput{Name: "Jane Doe"})
		tom := mustPerson(t, repo, PersonInput{ID: "p_tom", Name: "Tom Lee"})
		disa := mustOrg(t, repo, "DISA")

		mustEdge(t, repo, EdgeInput{FromID: jane, ToID: tom, Type: "KNOWS"})
		mustEdge(t, repo, EdgeInput{FromID: tom, ToID: disa, Type: RelWorksAt})

		edges, err := repo.GetRelationships(ctx, tom)
		require.NoError(t, err)
		require.Len(t, edges, 2)
		for _, e := range edges {
			switch e.Type {
			case "KNOWS":
				assert.Equal(t, EntityPerson, e.FromType)
				assert.Equal(t, EntityPerson, e.ToType)
			case RelWorksAt:
				assert.Equal(t, EntityPerson, e.FromType)
				assert.Equal(t, EntityOrganization, e.ToType)
			default:
				t.Fatalf("unexpected edge type %s", e.Type)
			}
		}

		path, err := repo.ShortestPath(ctx, jane, disa)
		require.NoError(t, err)
		require.NotNil(t, path)
		assert.Equal(t, 2, path.Length())

		err = repo.CreateRelationship(ctx, EdgeInput{FromID: jane, ToID: "nobody", Type: "KNOWS"})
		require.Error(t, err)
		assert.True(t, IsConsistency(err))

		stats, err := repo.NetworkStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.EdgeCount)
	})

	t.Run("UnsupportedEndpointsRejected", func(t *testing.T) {
		repo := newRepo(t)
		err := repo.CreateRelationship(ctx, EdgeInput{
			FromID: "org_x", FromType: EntityOrganization,
			ToID: "C-1", ToType: EntityContract,
			Type: "AWARDED",
		})
		require.Error(t, err)
		assert.True(t, IsConsistency(err))

		stats, err := repo.NetworkStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.EdgeCount)
	})

	t.Run("BulkToleratesItemFailures", func(t *testing.T) {
		repo := newRepo(t)
		result, err := repo.BulkCreatePeople(ctx, []PersonInput{
			{Name: "One"},
			{Name: "Two"},
			{Name: ""},
			{Name: "Four", Email: "four@x.gov"},
			{Name: "Five"},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, result.BatchID)
		assert.Equal(t, 4, result.Succeeded)
		require.Len(t, result.Failed, 1)
		assert.Equal(t, 2, result.Failed[0].Index)

		stats, err := repo.NetworkStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, stats.PersonCount)
	})

	t.Run("ConvenienceWrappers", func(t *testing.T) {
		repo := newRepo(t)
		jane := mustPerson(t, repo, PersonInput{Name: "Jane"})
		tom := mustPerson(t, repo, PersonInput{Name: "Tom"})
		disa := mustOrg(t, repo, "DISA")

		require.NoError(t, AddPersonToOrganization(ctx, repo, jane, disa, "CIO", "2023-05-01"))
		require.NoError(t, AddReportingRelationship(ctx, repo, tom, jane))
		require.NoError(t, LogInteraction(ctx, repo, jane, tom, "meeting", "2024-02-02", "industry day"))

		edges, err := repo.GetRelationships(ctx, jane)
		require.NoError(t, err)
		byType := map[string]*Edge{}
		for _, e := range edges {
			byType[e.Type] = e
		}
		require.Len(t, byType, 3)
		assert.Equal(t, "CIO", byType[RelWorksAt].Properties["title"])
		assert.Equal(t, "2023-05-01", byType[RelWorksAt].Properties["start_date"])
		assert.Equal(t, tom, byType[RelReportsTo].FromID)
		assert.Equal(t, "meeting", byType[RelInteractedWith].Properties["type"])
		assert.Equal(t, "industry day", byType[RelInteractedWith].Properties["notes"])
	})

	t.Run("TraversalEdgeCases", func(t *testing.T) {
		repo := newRepo(t)
		jane, tom, _ := exampleNetwork(t, repo)
		island := mustPerson(t, repo, PersonInput{Name: "Island"})

		_, err := repo.EgoNetwork(ctx, jane, -1)
		assert.True(t, IsValidation(err))

		sub, err := repo.EgoNetwork(ctx, "person_unknown", 2)
		require.NoError(t, err)
		assert.Empty(t, sub.Nodes)
		assert.Empty(t, sub.Edges)

		sub, err = repo.EgoNetwork(ctx, jane, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{jane}, nodeIDs(sub.Nodes))
		assert.Empty(t, sub.Edges)

		path, err := repo.ShortestPath(ctx, jane, island)
		require.NoError(t, err)
		assert.Nil(t, path)

		path, err = repo.ShortestPath(ctx, jane, "person_unknown")
		require.NoError(t, err)
		assert.Nil(t, path)

		path, err = repo.ShortestPath(ctx, tom, tom)
		require.NoError(t, err)
		require.NotNil(t, path)
		assert.Equal(t, 0, path.Length())
	})

	t.Run("Aggregations", func(t *testing.T) {
		repo := newRepo(t)
		mustContract(t, repo, "C1", "Acme", "Defense Information Systems Agency", 100, "2024-01-01", "541511")
		mustContract(t, repo, "C2", "Acme", "Defense Information Systems Agency", 50, "2024-06-01", "541511")
		mustContract(t, repo, "C3", "Beta", "DEFENSE INFORMATION SYSTEMS AGENCY", 150, "2023-01-01", "541511")
		mustContract(t, repo, "C4", "Gamma", "Department of Energy", 500, "2024-03-01", "541511")
		mustContract(t, repo, "C5", "", "Defense Information Systems Agency", 1000, "2024-03-01", "541511")
		mustContract(t, repo, "C6", "Delta", "Defense Information Systems Agency", 150, "2022-01-01", "541512")

		incumbents, err := repo.IncumbentsAtAgency(ctx, ContractFilter{Agency: "information systems"})
		require.NoError(t, err)
		require.Len(t, incumbents, 3, "rows without a contractor are excluded")
		assert.Equal(t, "Acme", incumbents[0].Company, "equal totals break on contract count")
		assert.Equal(t, 2, incumbents[0].ContractCount)
		assert.InDelta(t, 150.0, incumbents[0].TotalValue, 1e-9)
		assert.Equal(t, "2024-06-01", incumbents[0].LatestAwardDate)
		assert.Equal(t, "Beta", incumbents[1].Company, "then on company name")
		assert.Equal(t, "Delta", incumbents[2].Company)

		incumbents, err = repo.IncumbentsAtAgency(ctx, ContractFilter{Agency: "information systems", NAICS: "541512"})
		require.NoError(t, err)
		require.Len(t, incumbents, 1)
		assert.Equal(t, "Delta", incumbents[0].Company)

		incumbents, err = repo.IncumbentsAtAgency(ctx, ContractFilter{Agency: "information systems", Limit: 1})
		require.NoError(t, err)
		require.Len(t, incumbents, 1)

		_, err = repo.IncumbentsAtAgency(ctx, ContractFilter{})
		assert.True(t, IsValidation(err))

		candidates, err := repo.TeamingCandidates(ctx, ContractFilter{}, 2)
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, "Acme", candidates[0].Company)

		candidates, err = repo.TeamingCandidates(ctx, ContractFilter{NAICS: "541511"}, 1)
		require.NoError(t, err)
		require.Len(t, candidates, 3)
		assert.Equal(t, "Gamma", candidates[0].Company)

		contracts, err := repo.ContractsByAgency(ctx, ContractFilter{Agency: "energy"})
		require.NoError(t, err)
		require.Len(t, contracts, 1)
		assert.Equal(t, "C4", contracts[0].Name)
	})

	t.Run("ClearDatabase", func(t *testing.T) {
		repo := newRepo(t)
		jane, _, _ := exampleNetwork(t, repo)
		mustContract(t, repo, "C1", "Acme", "DISA", 1, "2024-01-01", "")

		// build the traversal view before clearing
		_, err := repo.EgoNetwork(ctx, jane, 1)
		require.NoError(t, err)

		require.NoError(t, repo.ClearDatabase(ctx))

		stats, err := repo.NetworkStatistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, NetworkStats{RelationshipTypeCounts: map[string]int{}}, *stats)

		sub, err := repo.EgoNetwork(ctx, jane, 1)
		require.NoError(t, err)
		assert.Empty(t, sub.Nodes)
	})

	t.Run("WritesVisibleToTraversal", func(t *testing.T) {
		repo := newRepo(t)
		jane, tom, _ := exampleNetwork(t, repo)

		sub, err := repo.EgoNetwork(ctx, tom, 1)
		require.NoError(t, err)
		assert.Len(t, sub.Nodes, 2)

		ann := mustPerson(t, repo, PersonInput{Name: "Ann"})
		mustEdge(t, repo, EdgeInput{FromID: ann, FromType: EntityPerson, ToID: tom, ToType: EntityPerson, Type: RelReportsTo})

		sub, err = repo.EgoNetwork(ctx, tom, 1)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{tom, jane, ann}, nodeIDs(sub.Nodes))
	})
}

// TestBackendEquivalence loads one fixture into both backends and compares
// every read. It needs NEO4J_TEST_URI.
func TestBackendEquivalence(t *testing.T) {
	uri := os.Getenv("NEO4J_TEST_URI")
	if uri == "" {
		t.Skip("NEO4J_TEST_URI not set")
	}
	ctx := context.Background()
	neo, err := NewNeo4j(ctx, Neo4jConfig{
		URI:      uri,
		Username: envOr("NEO4J_TEST_USER", "neo4j"),
		Password: envOr("NEO4J_TEST_PASSWORD", "password"),
		Database: envOr("NEO4J_TEST_DATABASE", "neo4j"),
	}, Options{})
	require.NoError(t, err)
	defer neo.Close(ctx)
	require.NoError(t, neo.ClearDatabase(ctx))

	backends := []Repository{newTestSQLite(t), neo}
	type snapshot struct {
		stats      *NetworkStats
		ego        []string
		egoEdges   []string
		path       []string
		incumbents []*Incumbent
	}
	var got []snapshot
	for _, repo := range backends {
		_, tom, disa := exampleNetwork(t, repo)
		mustEdge(t, repo, EdgeInput{FromID: disa, FromType: EntityOrganization, ToID: "org_parent", ToType: EntityOrganization, Type: "part of"})
		mustContract(t, repo, "C1", "Acme", "DISA", 10, "2024-01-01", "")
		mustContract(t, repo, "C2", "Beta", "disa", 20, "2024-02-01", "")

		stats, err := repo.NetworkStatistics(ctx)
		require.NoError(t, err)
		sub, err := repo.EgoNetwork(ctx, tom, 3)
		require.NoError(t, err)
		path, err := repo.ShortestPath(ctx, tom, "org_parent")
		require.NoError(t, err)
		require.NotNil(t, path)
		inc, err := repo.IncumbentsAtAgency(ctx, ContractFilter{Agency: "disa"})
		require.NoError(t, err)

		got = append(got, snapshot{
			stats:      stats,
			ego:        nodeIDs(sub.Nodes),
			egoEdges:   edgeKeys(sub.Edges),
			path:       nodeIDs(path.Nodes),
			incumbents: inc,
		})
	}

	rel, native := got[0], got[1]
	assert.Equal(t, rel.stats, native.stats)
	assert.ElementsMatch(t, rel.ego, native.ego)
	assert.ElementsMatch(t, rel.egoEdges, native.egoEdges)
	assert.Equal(t, rel.path, native.path)
	assert.Equal(t, rel.incumbents, native.incumbents)
}
