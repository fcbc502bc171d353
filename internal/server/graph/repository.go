package graph

import (
	"context"
)

// Repository defines the interface for graph storage backends.
// Both SQLite and Neo4j implement this interface with identical semantics.
type Repository interface {
	// Lifecycle
	Close(ctx context.Context) error
	EnsureIndexes(ctx context.Context) error
	Backend() string

	// People
	CreateOrUpdatePerson(ctx context.Context, in PersonInput) (string, error)
	BulkCreatePeople(ctx context.Context, people []PersonInput) (*BulkResult, error)
	GetPerson(ctx context.Context, id string) (*Person, error)
	FindPersonByEmail(ctx context.Context, email string) (*Person, error)
	SearchPeople(ctx context.Context, substring string, limit int) ([]*Person, error)

	// Organizations
	CreateOrUpdateOrganization(ctx context.Context, in OrganizationInput) (string, error)
	GetOrganization(ctx context.Context, id string) (*Organization, error)
	FindOrganizationByName(ctx context.Context, name string) (*Organization, error)
	SearchOrganizations(ctx context.Context, substring string, limit int) ([]*Organization, error)

	// Contracts
	CreateOrUpdateContract(ctx context.Context, in ContractInput) (string, error)
	GetContract(ctx context.Context, name string) (*Contract, error)
	ContractsByAgency(ctx context.Context, filter ContractFilter) ([]*Contract, error)

	// Relationships
	CreateRelationship(ctx context.Context, in EdgeInput) error
	GetRelationships(ctx context.Context, entityID string) ([]*Edge, error)

	// Traversal
	EgoNetwork(ctx context.Context, entityID string, depth int) (*Subgraph, error)
	ShortestPath(ctx context.Context, fromID, toID string) (*Path, error)

	// Aggregation
	NetworkStatistics(ctx context.Context) (*NetworkStats, error)
	IncumbentsAtAgency(ctx context.Context, filter ContractFilter) ([]*Incumbent, error)
	TeamingCandidates(ctx context.Context, filter ContractFilter, minContracts int) ([]*TeamingCandidate, error)

	// Destructive reset for test tooling
	ClearDatabase(ctx context.Context) error
}

// AddPersonToOrganization records that a person works at an organization
func AddPersonToOrganization(ctx context.Context, repo Repository, personID, orgID, title, startDate string) error {
	props := map[string]any{"source": "manual"}
	if title != "" {
		props["title"] = title
	}
	if startDate != "" {
		props["start_date"] = startDate
	}
	return repo.CreateRelationship(ctx, EdgeInput{
		FromID:     personID,
		FromType:   EntityPerson,
		ToID:       orgID,
		ToType:     EntityOrganization,
		Type:       RelWorksAt,
		Properties: props,
	})
}

// AddReportingRelationship records that subordinate reports to manager
func AddReportingRelationship(ctx context.Context, repo Repository, subordinateID, managerID string) error {
	return repo.CreateRelationship(ctx, EdgeInput{
		FromID:     subordinateID,
		FromType:   EntityPerson,
		ToID:       managerID,
		ToType:     EntityPerson,
		Type:       RelReportsTo,
		Properties: map[string]any{"source": "manual"},
	})
}

// LogInteraction records an interaction between two people
func LogInteraction(ctx context.Context, repo Repository, personA, personB, interactionType, date, notes string) error {
	props := map[string]any{"type": interactionType}
	if date != "" {
		props["date"] = date
	}
	if notes != "" {
		props["notes"] = notes
	}
	return repo.CreateRelationship(ctx, EdgeInput{
		FromID:     personA,
		FromType:   EntityPerson,
		ToID:       personB,
		ToType:     EntityPerson,
		Type:       RelInteractedWith,
		Properties: props,
	})
}
