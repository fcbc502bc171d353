package graph

import "time"

// Entity types that may appear as graph nodes
const (
	EntityPerson       = "Person"
	EntityOrganization = "Organization"
	EntityContract     = "Contract"
)

// Role categories
const (
	RoleDecisionMaker = "Decision Maker"
	RoleTechnicalLead = "Technical Lead"
	RoleExecutive     = "Executive"
	RoleInfluencer    = "Influencer"
)

// Relationship strengths
const (
	StrengthNew    = "New"
	StrengthWarm   = "Warm"
	StrengthStrong = "Strong"
)

// Well-known relationship types. The vocabulary is open; these are the ones
// the convenience wrappers create.
const (
	RelWorksAt        = "WORKS_AT"
	RelReportsTo      = "REPORTS_TO"
	RelInteractedWith = "INTERACTED_WITH"
)

// DefaultSearchLimit is the default and maximum size of a substring search
const DefaultSearchLimit = 20

// DefaultAggregateLimit caps contractor rollups when the caller passes no limit
const DefaultAggregateLimit = 10

// Person is an individual contact
type Person struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Email                string    `json:"email,omitempty"`
	Phone                string    `json:"phone,omitempty"`
	Title                string    `json:"title,omitempty"`
	Organization         string    `json:"organization,omitempty"`
	RoleCategory         string    `json:"role_category,omitempty"`
	RelationshipStrength string    `json:"relationship_strength,omitempty"`
	Source               string    `json:"source,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// PersonInput is the write shape for a person. Empty fields never overwrite
// stored values.
type PersonInput struct {
	ID                   string `json:"id,omitempty"`
	Name                 string `json:"name" validate:"required"`
	Email                string `json:"email,omitempty" validate:"omitempty,email"`
	Phone                string `json:"phone,omitempty"`
	Title                string `json:"title,omitempty"`
	Organization         string `json:"organization,omitempty"`
	RoleCategory         string `json:"role_category,omitempty" validate:"omitempty,oneof='Decision Maker' 'Technical Lead' Executive Influencer"`
	RelationshipStrength string `json:"relationship_strength,omitempty" validate:"omitempty,oneof=New Warm Strong"`
	// Influence is the external signal used to derive RelationshipStrength
	// when the person is first created.
	Influence string `json:"influence_level,omitempty"`
	Source    string `json:"source,omitempty"`
}

// Organization is a company or agency
type Organization struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Abbreviation string    `json:"abbreviation,omitempty"`
	Type         string    `json:"type,omitempty"`
	Parent       string    `json:"parent,omitempty"`
	Source       string    `json:"source,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OrganizationInput is the write shape for an organization
type OrganizationInput struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name" validate:"required"`
	Abbreviation string `json:"abbreviation,omitempty"`
	Type         string `json:"type,omitempty"`
	Parent       string `json:"parent,omitempty"`
	Source       string `json:"source,omitempty"`
}

// Contract is an awarded contract record, keyed by Name
type Contract struct {
	Name           string    `json:"name"`
	ContractNumber string    `json:"contract_number,omitempty"`
	Title          string    `json:"title,omitempty"`
	Value          float64   `json:"value"`
	AwardDate      string    `json:"award_date,omitempty"`
	Agency         string    `json:"agency,omitempty"`
	ContractorName string    `json:"contractor_name,omitempty"`
	NAICS          string    `json:"naics,omitempty"`
	Source         string    `json:"source,omitempty"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ContractInput is the write shape for a contract. Value is a pointer so a
// missing value can be told apart from an explicit zero.
type ContractInput struct {
	Name           string   `json:"name" validate:"required"`
	ContractNumber string   `json:"contract_number,omitempty"`
	Title          string   `json:"title,omitempty"`
	Value          *float64 `json:"value,omitempty" validate:"omitempty,gte=0"`
	AwardDate      string   `json:"award_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Agency         string   `json:"agency,omitempty"`
	ContractorName string   `json:"contractor_name,omitempty"`
	NAICS          string   `json:"naics,omitempty"`
	Source         string   `json:"source,omitempty"`
	Description    string   `json:"description,omitempty"`
}

// Edge is a directed, typed relationship between two entities
type Edge struct {
	FromID     string         `json:"from_id"`
	FromType   string         `json:"from_type"`
	ToID       string         `json:"to_id"`
	ToType     string         `json:"to_type"`
	Type       string         `json:"relationship_type"`
	Properties map[string]any `json:"properties,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// EdgeInput is the write shape for an edge
type EdgeInput struct {
	FromID     string         `json:"from_id"`
	FromType   string         `json:"from_type"`
	ToID       string         `json:"to_id"`
	ToType     string         `json:"to_type"`
	Type       string         `json:"relationship_type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Node is an entity as seen by traversal queries
type Node struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Name       string         `json:"name,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Subgraph is the result of an ego-network query
type Subgraph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
	Depth int     `json:"depth"`
}

// Path is an alternating node/edge sequence. Edges keep their stored
// direction; len(Edges) == len(Nodes)-1.
type Path struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// Length returns the number of hops
func (p *Path) Length() int {
	if p == nil {
		return 0
	}
	return len(p.Edges)
}

// Reversed reports whether edge i is walked against its stored direction
func (p *Path) Reversed(i int) bool {
	return p.Edges[i].FromID != p.Nodes[i].ID
}

// NetworkStats holds network-wide counts
type NetworkStats struct {
	PersonCount            int            `json:"person_count"`
	OrganizationCount      int            `json:"organization_count"`
	EdgeCount              int            `json:"edge_count"`
	DecisionMakerCount     int            `json:"decision_maker_count"`
	ContractCount          int            `json:"contract_count"`
	RelationshipTypeCounts map[string]int `json:"relationship_type_counts"`
}

// Incumbent is a contractor rollup at one agency
type Incumbent struct {
	Company         string  `json:"company"`
	ContractCount   int     `json:"contract_count"`
	TotalValue      float64 `json:"total_value"`
	LatestAwardDate string  `json:"latest_award_date,omitempty"`
}

// TeamingCandidate is a contractor rollup used to surface partners
type TeamingCandidate struct {
	Company       string  `json:"company"`
	ContractCount int     `json:"contract_count"`
	TotalValue    float64 `json:"total_value"`
}

// ContractFilter narrows contract aggregations. Agency is a case-insensitive
// substring; NAICS must match exactly.
type ContractFilter struct {
	Agency string
	NAICS  string
	Limit  int
}

// BulkFailure describes one rejected item of a bulk write
type BulkFailure struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// BulkResult summarizes a bulk write
type BulkResult struct {
	BatchID   string        `json:"batch_id"`
	Succeeded int           `json:"succeeded"`
	Failed    []BulkFailure `json:"failed,omitempty"`
}

// personNode is the traversal view of a person. Both backends build nodes
// through it so traversal results compare equal across backends.
func personNode(p *Person) *Node {
	return &Node{
		ID:   p.ID,
		Type: EntityPerson,
		Name: p.Name,
		Properties: nodeProperties(map[string]string{
			"email":                 p.Email,
			"phone":                 p.Phone,
			"title":                 p.Title,
			"organization":          p.Organization,
			"role_category":         p.RoleCategory,
			"relationship_strength": p.RelationshipStrength,
			"source":                p.Source,
		}),
	}
}

// organizationNode is the traversal view of an organization
func organizationNode(o *Organization) *Node {
	return &Node{
		ID:   o.ID,
		Type: EntityOrganization,
		Name: o.Name,
		Properties: nodeProperties(map[string]string{
			"abbreviation": o.Abbreviation,
			"type":         o.Type,
			"parent":       o.Parent,
			"source":       o.Source,
		}),
	}
}

func nodeProperties(fields map[string]string) map[string]any {
	var props map[string]any
	for k, v := range fields {
		if v == "" {
			continue
		}
		if props == nil {
			props = make(map[string]any, len(fields))
		}
		props[k] = v
	}
	return props
}
