package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sony/gobreaker"

	"github.com/ooyales/it-biz-dev-lite-sub000/internal/logger"
)

// BackendNeo4j names the native graph backend
const BackendNeo4j = "neo4j"

// Neo4jConfig holds Neo4j connection configuration
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
	Database string
	// Timeout bounds every transaction; zero leaves the server default
	Timeout time.Duration
	// Breaker guards driver calls with a circuit breaker
	Breaker bool
}

// Neo4jRepository implements Repository on Neo4j. People and organizations
// share the :Entity label so edges can be created before either endpoint.
type Neo4jRepository struct {
	driver   neo4j.DriverWithContext
	cfg      Neo4jConfig
	opts     Options
	obs      instrumentation
	breaker  *gobreaker.CircuitBreaker
	txConfig []func(*neo4j.TransactionConfig)
}

// NewNeo4j connects to Neo4j and verifies connectivity
func NewNeo4j(ctx context.Context, cfg Neo4jConfig, opts Options) (*Neo4jRepository, error) {
	if cfg.Database == "" {
		cfg.Database = "neo4j"
	}
	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("creating neo4j driver: %w", storageError("open", err))
	}

	// Verify connectivity
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("connecting to neo4j: %w", storageError("open", err))
	}

	repo := &Neo4jRepository{
		driver: driver,
		cfg:    cfg,
		opts:   opts,
		obs:    newInstrumentation(BackendNeo4j, opts.Metrics),
	}
	if cfg.Timeout > 0 {
		repo.txConfig = append(repo.txConfig, neo4j.WithTxTimeout(cfg.Timeout))
	}
	if cfg.Breaker {
		repo.breaker = newNeo4jBreaker(cfg.URI)
	}
	logger.Info("neo4j graph store ready", "uri", cfg.URI, "database", cfg.Database)
	return repo, nil
}

// newNeo4jBreaker trips once 80% of at least five calls in a window fail
func newNeo4jBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "neo4j:" + name,
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.8
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// Close closes the Neo4j connection
func (r *Neo4jRepository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// Backend returns the backend name
func (r *Neo4jRepository) Backend() string { return BackendNeo4j }

// execute runs work in a managed transaction of the given mode, bounded by
// the configured timeout and guarded by the breaker when enabled
func execute[T any](ctx context.Context, r *Neo4jRepository, mode neo4j.AccessMode,
	work func(ctx context.Context, tx neo4j.ManagedTransaction) (T, error)) (T, error) {
	var zero T
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: r.cfg.Database, AccessMode: mode})
	defer session.Close(ctx)

	txWork := func(tx neo4j.ManagedTransaction) (any, error) {
		return work(ctx, tx)
	}
	call := func() (any, error) {
		if mode == neo4j.AccessModeRead {
			return session.ExecuteRead(ctx, txWork, r.txConfig...)
		}
		return session.ExecuteWrite(ctx, txWork, r.txConfig...)
	}

	var out any
	var err error
	if r.breaker != nil {
		out, err = r.breaker.Execute(call)
	} else {
		out, err = call()
	}
	if err != nil {
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}

func readTx[T any](ctx context.Context, r *Neo4jRepository, work func(context.Context, neo4j.ManagedTransaction) (T, error)) (T, error) {
	return execute(ctx, r, neo4j.AccessModeRead, work)
}

func writeTx[T any](ctx context.Context, r *Neo4jRepository, work func(context.Context, neo4j.ManagedTransaction) (T, error)) (T, error) {
	return execute(ctx, r, neo4j.AccessModeWrite, work)
}

// runConsume runs a statement and surfaces its errors eagerly
func runConsume(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]any) error {
	result, err := tx.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

// collect runs a query and returns every record
func collect(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return result.Collect(ctx)
}

var neo4jSchema = []string{
	`CREATE CONSTRAINT entity_id IF NOT EXISTS FOR (n:Entity) REQUIRE n.id IS UNIQUE`,
	`CREATE CONSTRAINT contract_name IF NOT EXISTS FOR (c:Contract) REQUIRE c.name IS UNIQUE`,
	`CREATE INDEX person_email IF NOT EXISTS FOR (p:Person) ON (p.email)`,
	`CREATE INDEX person_role IF NOT EXISTS FOR (p:Person) ON (p.role_category)`,
	`CREATE INDEX contract_contractor IF NOT EXISTS FOR (c:Contract) ON (c.contractor_name)`,
}

// EnsureIndexes creates the uniqueness constraints and lookup indexes.
// Schema statements each run in their own transaction.
func (r *Neo4jRepository) EnsureIndexes(ctx context.Context) (err error) {
	ctx, done := r.obs.start(ctx, "ensure_indexes")
	defer done(&err)

	for _, stmt := range neo4jSchema {
		_, err = writeTx(ctx, r, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
			return nil, runConsume(ctx, tx, stmt, nil)
		})
		if err != nil {
			return storageError("ensure_indexes", err)
		}
	}
	return nil
}

// People

// CreateOrUpdatePerson merges a person on id. Supplied fields win and
// created_at is set once.
func (r *Neo4jRepository) CreateOrUpdatePerson(ctx context.Context, in PersonInput) (id string, err error) {
	ctx, done := r.obs.start(ctx, "create_or_update_person")
	defer done(&err)

	in, err = preparePerson(in)
	if err != nil {
		return "", err
	}

	query := `
		MERGE (p:Entity {id: $id})
		SET p:Person,
			p.entity_type = 'Person',
			p.name = $name,
			p.email = coalesce($email, p.email),
			p.phone = coalesce($phone, p.phone),
			p.title = coalesce($title, p.title),
			p.organization = coalesce($organization, p.organization),
			p.role_category = coalesce($role_category, p.role_category),
			p.relationship_strength = coalesce($strength, p.relationship_strength, $initial_strength),
			p.source = coalesce($source, p.source),
			p.created_at = coalesce(p.created_at, datetime($now)),
			p.updated_at = datetime($now)
	`
	params := map[string]any{
		"id":               in.ID,
		"name":             in.Name,
		"email":            nullable(in.Email),
		"phone":            nullable(in.Phone),
		"title":            nullable(in.Title),
		"organization":     nullable(in.Organization),
		"role_category":    nullable(in.RoleCategory),
		"strength":         nullable(in.RelationshipStrength),
		"initial_strength": in.initialStrength(),
		"source":           nullable(in.Source),
		"now":              neo4jNow(),
	}
	_, err = writeTx(ctx, r, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		return nil, runConsume(ctx, tx, query, params)
	})
	if err != nil {
		return "", storageError("create_or_update_person", err)
	}
	return in.ID, nil
}

// BulkCreatePeople upserts each person independently and reports failures
func (r *Neo4jRepository) BulkCreatePeople(ctx context.Context, people []PersonInput) (result *BulkResult, err error) {
	ctx, done := r.obs.start(ctx, "bulk_create_people")
	defer done(&err)
	return bulkCreatePeople(ctx, r, people), nil
}

// GetPerson retrieves a person by id
func (r *Neo4jRepository) GetPerson(ctx context.Context, id string) (p *Person, err error) {
	ctx, done := r.obs.start(ctx, "get_person")
	defer done(&err)

	if id == "" {
		return nil, validationError("get_person", "id is required")
	}
	p, err = r.findPerson(ctx, `MATCH (p:Person {id: $id}) RETURN p`, map[string]any{"id": id})
	if err != nil {
		return nil, storageError("get_person", err)
	}
	if p == nil {
		return nil, notFoundError("get_person", "person %s", id)
	}
	return p, nil
}

// FindPersonByEmail returns the earliest-created person with the email,
// compared case-insensitively
func (r *Neo4jRepository) FindPersonByEmail(ctx context.Context, email string) (p *Person, err error) {
	ctx, done := r.obs.start(ctx, "find_person_by_email")
	defer done(&err)

	email = normalizeKey(email)
	if email == "" {
		return nil, validationError("find_person_by_email", "email is required")
	}
	query := `
		MATCH (p:Person)
		WHERE toLower(p.email) = $email
		RETURN p
		ORDER BY p.created_at, p.id
		LIMIT 1
	`
	p, err = r.findPerson(ctx, query, map[string]any{"email": email})
	if err != nil {
		return nil, storageError("find_person_by_email", err)
	}
	if p == nil {
		return nil, notFoundError("find_person_by_email", "no person with email %s", email)
	}
	return p, nil
}

func (r *Neo4jRepository) findPerson(ctx context.Context, query string, params map[string]any) (*Person, error) {
	return readTx(ctx, r, func(ctx context.Context, tx neo4j.ManagedTransaction) (*Person, error) {
		records, err := collect(ctx, tx, query, params)
		if err != nil || len(records) == 0 {
			return nil, err
		}
		n, ok := recordNode(records[0], "p")
		if !ok {
			return nil, nil
		}
		return personFromProps(n.Props), nil
	})
}

// SearchPeople returns people whose name contains substring, ignoring case
func (r *Neo4jRepository) SearchPeople(ctx context.Context, substring string, limit int) (people []*Person, err error) {
	ctx, done := r.obs.start(ctx, "search_people")
	defer done(&err)

	query := `
		MATCH (p:Person)
		WHERE toLower(p.name) CONTAINS toLower($q)
		RETURN p
		ORDER BY p.name, p.id
		LIMIT $limit
	`
	params := map[string]any{"q": substring, "limit": r.opts.searchLimit(limit)}
	people, err = readTx(ctx, r, func(ctx context.Context, tx neo4j.ManagedTransaction) ([]*Person, error) {
		records, err := collect(ctx, tx, query, params)
		if err != nil {
			return nil, err
		}
		out := make([]*Person, 0, len(records))
		for _, rec := range records {
			if n, ok := recordNode(rec, "p"); ok {
				out = append(out, personFromProps(n.Props))
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, storageError("search_people", err)
	}
	return people, nil
}

// Organizations

// CreateOrUpdateOrganization merges an organization on id
func (r *Neo4jRepository) CreateOrUpdateOrganization(ctx context.Context, in OrganizationInput) (id string, err error) {
	ctx, done := r.obs.start(ctx, "create_or_update_organization")
	defer done(&err)

	in, err = prepareOrganization(in)
	if err != nil {
		return "", err
	}

	query := `
		MERGE (o:Entity {id: $id})
		SET o:Organization,
			o.entity_type = 'Organization',
			o.name = $name,
			o.abbreviation = coalesce($abbreviation, o.abbreviation),
			o.type = coalesce($type, o.type),
			o.parent = coalesce($parent, o.parent),
			o.source = coalesce($source, o.source),
			o.created_at = coalesce(o.created_at, datetime($now)),
			o.updated_at = datetime($now)
	`
	params := map[string]any{
		"id":           in.ID,
		"name":         in.Name,
		"abbreviation": nullable(in.Abbreviation),
		"type":         nullable(in.Type),
		"parent":       nullable(in.Parent),
		"source":       nullable(in.Source),
		"now":          neo4jNow(),
	}
	_, err = writeTx(ctx, r, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		return nil, runConsume(ctx, tx, query, params)
	})
	if err != nil {
		return "", storageError("create_or_update_organization", err)
	}
	return in.ID, nil
}

// GetOrganization retrieves an organization by id
func (r *Neo4jRepository) GetOrganization(ctx context.Context, id string) (o *Organization, err error) {
	ctx, done := r.obs.start(ctx, "get_organization")
	defer done(&err)

	if id == "" {
		return nil, validationError("get_organization", "id is required")
	}
	o, err = r.findOrganization(ctx, `MATCH (o:Organization {id: $id}) RETURN o`, map[string]any{"id": id})
	if err != nil {
		return nil, storageError("get_organization", err)
	}
	if o == nil {
		return nil, notFoundError("get_organization", "organization %s", id)
	}
	return o, nil
}

// FindOrganizationByName looks an organization up by its resolved id, then
// by a case-insensitive name match
func (r *Neo4jRepository) FindOrganizationByName(ctx context.Context, name string) (o *Organization, err error) {
	ctx, done := r.obs.start(ctx, "find_organization_by_name")
	defer done(&err)

	id, err := ResolveOrgID(name)
	if err != nil {
		return nil, err
	}
	query := `
		MATCH (o:Organization)
		WHERE o.id = $id OR toLower(o.name) = $name
		RETURN o
		ORDER BY CASE WHEN o.id = $id THEN 0 ELSE 1 END, o.created_at, o.id
		LIMIT 1
	`
	o, err = r.findOrganization(ctx, query, map[string]any{"id": id, "name": normalizeKey(name)})
	if err != nil {
		return nil, storageError("find_organization_by_name", err)
	}
	if o == nil {
		return nil, notFoundError("find_organization_by_name", "no organization named %s", name)
	}
	return o, nil
}

func (r *Neo4jRepository) findOrganization(ctx context.Context, query string, params map[string]any) (*Organization, error) {
	return readTx(ctx, r, func(ctx context.Context, tx neo4j.ManagedTransaction) (*Organization, error) {
		records, err := collect(ctx, tx, query, params)
		if err != nil || len(records) == 0 {
			return nil, err
		}
		n, ok := recordNode(records[0], "o")
		if !ok {
			return nil, nil
		}
		return organizationFromProps(n.Props), nil
	})
}

// SearchOrganizations returns organizations whose name contains substring
func (r *Neo4jRepository) SearchOrganizations(ctx context.Context, substring string, limit int) (orgs []*Organization, err error) {
	ctx, done := r.obs.start(ctx, "search_organizations")
	defer done(&err)

	query := `
		MATCH (o:Organization)
		WHERE toLower(o.name) CONTAINS toLower($q)
		RETURN o
		ORDER BY o.name, o.id
		LIMIT $limit
	`
	params := map[string]any{"q": substring, "limit": r.opts.searchLimit(limit)}
	orgs, err = readTx(ctx, r, func(ctx context.Context, tx neo4j.ManagedTransaction) ([]*Organization, error) {
		records, err := collect(ctx, tx, query, params)
		if err != nil {
			return nil, err
		}
		out := make([]*Organization, 0, len(records))
		for _, rec := range records {
			if n, ok := recordNode(rec, "o"); ok {
				out = append(out, organizationFromProps(n.Props))
			}
		}
		return out, nil
	})
	if err != nil {
		return nil, storageError("search_organizations", err)
	}
	return orgs, nil
}

// Contracts

// CreateOrUpdateContract merges a contract on name
func (r *Neo4jRepository) CreateOrUpdateContract(ctx context.Context, in ContractInput) (name string, err error) {
	ctx, done := r.obs.start(ctx, "create_or_update_contract")
	defer done(&err)

	in, err = prepareContract(in)
	if err != nil {
		return "", err
	}

	var value any
	if in.Value != nil {
		value = *in.Value
	}
	query := `
		MERGE (c:Contract {name: $name})
		SET c.contract_number = coalesce($contract_number, c.contract_number),
			c.title = coalesce($title, c.title),
			c.value = toFloat(coalesce($value, c.value, 0.0)),
			c.award_date = coalesce($award_date, c.award_date),
			c.agency = coalesce($agency, c.agency),
			c.contractor_name = coalesce($contractor_name, c.contractor_name),
			c.naics = coalesce($naics, c.naics),
			c.source = coalesce($source, c.source),
			c.description = coalesce($description, c.description),
			c.created_at = coalesce(c.created_at, datetime($now)),
			c.updated_at = datetime($now)
	`
	params := map[string]any{
		"name":            in.Name,
		"contract_number": nullable(in.ContractNumber),
		"title":           nullable(in.Title),
		"value":           value,
		"award_date":      nullable(in.AwardDate),
		"agency":          nullable(in.Agency),
		"contractor_name": nullable(in.ContractorName),
		"naics":           nullable(in.NAICS),
		"source":          nullable(in.Source),
		"description":     nullable(in.Description),
		"now":             neo4jNow(),
	}
	_, err = writeTx(ctx, r, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		return nil, runConsume(ctx, tx, query, params)
	})
	if err != nil {
		return "", storageError("create_or_update_contract", err)
	}
	return in.Name, nil
}

// GetContract retrieves a contract by name
func (r *Neo4jRepository) GetContract(ctx context.Context, name string) (c *Contract, err error) {
	ctx, done := r.obs.start(ctx, "get_contract")
	defer done(&err)

	if name == "" {
		return nil, validationError("get_contract", "name is required")
	}
	contracts, err := r.queryContracts(ctx, `MATCH (c:Contract {name: $name}) RETURN c`, map[string]any{"name": name})
	if err != nil {
		return nil, storageError("get_contract", err)
	}
	if len(contracts) == 0 {
		return nil, notFoundError("get_contract", "contract %s", name)
	}
	return contracts[0], nil
}

// ContractsByAgency lists contracts, newest award first, narrowed by filter
func (r *Neo4jRepository) ContractsByAgency(ctx context.Context, filter ContractFilter) (contracts []*Contract, err error) {
	ctx, done := r.obs.start(ctx, "contracts_by_agency")
	defer done(&err)

	query := `
		MATCH (c:Contract)
		WHERE ($agency IS NULL OR toLower(coalesce(c.agency, '')) CONTAINS toLower($agency))
		  AND ($naics IS NULL OR c.naics = $naics)
		RETURN c
		ORDER BY coalesce(c.award_date, '') DESC, c.name
		LIMIT $limit
	`
	params := map[string]any{
		"agency": nullable(filter.Agency),
		"naics":  nullable(filter.NAICS),
		"limit":  r.opts.searchLimit(filter.Limit),
	}
	contracts, err = r.queryContracts(ctx, query, params)
	if err != nil {
		return nil, storageError("contracts_by_agency", err)
	}
	return contracts, nil
}

func (r *Neo4jRepository) queryContracts(ctx context.Context, query string, params map[string]any) ([]*Contract, error) {
	return readTx(ctx, r, func(ctx context.Context, tx neo4j.ManagedTransaction) ([]*Contract, error) {
		records, err := collect(ctx, tx, query, params)
		if err != nil {
			return nil, err
		}
		out := make([]*Contract, 0, len(records))
		for _, rec := range records {
			if n, ok := recordNode(rec, "c"); ok {
				out = append(out, contractFromProps(n.Props))
			}
		}
		return out, nil
	})
}

// Relationships

// CreateRelationship replaces any relationship with the same (from, to,
// type) inside one write transaction. Missing endpoints are merged as bare
// :Entity nodes typed by the edge.
func (r *Neo4jRepository) CreateRelationship(ctx context.Context, in EdgeInput) (err error) {
	ctx, done := r.obs.start(ctx, "create_relationship")
	defer done(&err)

	in, err = prepareEdge(ctx, in, r.entityType)
	if err != nil {
		return err
	}
	props, err := json.Marshal(in.Properties)
	if err != nil {
		return validationError("create_relationship", "properties are not serializable: %v", err)
	}

	params := map[string]any{
		"from_id":    in.FromID,
		"from_type":  in.FromType,
		"to_id":      in.ToID,
		"to_type":    in.ToType,
		"properties": string(props),
		"now":        neo4jNow(),
	}
	// in.Type is sanitized to [A-Z0-9_] so it can be spliced as a label
	mergeEndpoints := `
		MERGE (a:Entity {id: $from_id})
		ON CREATE SET a.entity_type = $from_type
		MERGE (b:Entity {id: $to_id})
		ON CREATE SET b.entity_type = $to_type
	`
	deleteExisting := fmt.Sprintf(`
		MATCH (a:Entity {id: $from_id})-[old:`+"`%s`"+`]->(b:Entity {id: $to_id})
		DELETE old
	`, in.Type)
	insert := fmt.Sprintf(`
		MATCH (a:Entity {id: $from_id}), (b:Entity {id: $to_id})
		CREATE (a)-[r:`+"`%s`"+` {
			properties: $properties,
			from_type: $from_type,
			to_type: $to_type,
			created_at: datetime($now)
		}]->(b)
	`, in.Type)

	_, err = writeTx(ctx, r, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		for _, stmt := range []string{mergeEndpoints, deleteExisting, insert} {
			if err := runConsume(ctx, tx, stmt, params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return storageError("create_relationship", err)
	}
	return nil
}

// entityType reads the type of an existing node from its label, falling back
// to the entity_type of a bare endpoint node
func (r *Neo4jRepository) entityType(ctx context.Context, id string) (string, error) {
	return readTx(ctx, r, func(ctx context.Context, tx neo4j.ManagedTransaction) (string, error) {
		records, err := collect(ctx, tx, `
			MATCH (n:Entity {id: $id})
			RETURN CASE
				WHEN n:Person THEN $person
				WHEN n:Organization THEN $org
				ELSE coalesce(n.entity_type, '')
			END AS type
		`, map[string]any{"id": id, "person": EntityPerson, "org": EntityOrganization})
		if err != nil || len(records) == 0 {
			return "", err
		}
		return recordString(records[0], "type"), nil
	})
}

// GetRelationships returns every relationship touching entityID
func (r *Neo4jRepository) GetRelationships(ctx context.Context, entityID string) (edges []*Edge, err error) {
	ctx, done := r.obs.start(ctx, "get_relationships")
	defer done(&err)

	if entityID == "" {
		return nil, validationError("get_relationships", "id is required")
	}
	query := `
		MATCH (a:Entity)-[r]->(b:Entity)
		WHERE a.id = $id OR b.id = $id
		RETURN a.id AS from_id, b.id AS to_id, r
		ORDER BY r.created_at, elementId(r)
	`
	edges, err = readTx(ctx, r, func(ctx context.Context, tx neo4j.ManagedTransaction) ([]*Edge, error) {
		records, err := collect(ctx, tx, query, map[string]any{"id": entityID})
		if err != nil {
			return nil, err
		}
		return edgesFromRecords(records), nil
	})
	if err != nil {
		return nil, storageError("get_relationships", err)
	}
	return edges, nil
}

// Traversal

// EgoNetwork returns every node within depth hops of entityID, following
// relationships in both directions, and the relationships among them.
// Nodes are ordered by hop distance.
func (r *Neo4jRepository) EgoNetwork(ctx context.Context, entityID string, depth int) (sub *Subgraph, err error) {
	ctx, done := r.obs.start(ctx, "ego_network")
	defer done(&err)

	if depth < 0 {
		return nil, validationError("ego_network", "depth must be non-negative, got %d", depth)
	}
	// depth is an int so splicing it into the pattern is safe
	nodeQuery := fmt.Sprintf(`
		MATCH (start:Entity {id: $id})
		MATCH p = (start)-[*0..%d]-(n:Entity)
		WITH n, min(length(p)) AS hops
		RETURN n
		ORDER BY hops, n.id
	`, depth)
	edgeQuery := `
		MATCH (a:Entity)-[r]->(b:Entity)
		WHERE a.id IN $ids AND b.id IN $ids
		RETURN a.id AS from_id, b.id AS to_id, r
		ORDER BY r.created_at, elementId(r)
	`

	sub, err = readTx(ctx, r, func(ctx context.Context, tx neo4j.ManagedTransaction) (*Subgraph, error) {
		result := &Subgraph{Nodes: []*Node{}, Edges: []*Edge{}, Depth: depth}
		records, err := collect(ctx, tx, nodeQuery, map[string]any{"id": entityID})
		if err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(records))
		for _, rec := range records {
			n, ok := recordNode(rec, "n")
			if !ok {
				continue
			}
			node := nodeFromNeo4j(n)
			result.Nodes = append(result.Nodes, node)
			ids = append(ids, node.ID)
		}
		if len(ids) == 0 {
			return result, nil
		}

		records, err = collect(ctx, tx, edgeQuery, map[string]any{"ids": ids})
		if err != nil {
			return nil, err
		}
		result.Edges = edgesFromRecords(records)
		return result, nil
	})
	if err != nil {
		return nil, storageError("ego_network", err)
	}
	return sub, nil
}

// ShortestPath returns a minimum-hop path ignoring relationship direction,
// or nil when no path exists
func (r *Neo4jRepository) ShortestPath(ctx context.Context, fromID, toID string) (path *Path, err error) {
	ctx, done := r.obs.start(ctx, "shortest_path")
	defer done(&err)

	path, err = readTx(ctx, r, func(ctx context.Context, tx neo4j.ManagedTransaction) (*Path, error) {
		if fromID == toID {
			// shortestPath rejects identical endpoints
			records, err := collect(ctx, tx, `MATCH (n:Entity {id: $id}) RETURN n`, map[string]any{"id": fromID})
			if err != nil || len(records) == 0 {
				return nil, err
			}
			n, ok := recordNode(records[0], "n")
			if !ok {
				return nil, nil
			}
			return &Path{Nodes: []*Node{nodeFromNeo4j(n)}, Edges: []*Edge{}}, nil
		}

		query := `
			MATCH (a:Entity {id: $from}), (b:Entity {id: $to})
			MATCH p = shortestPath((a)-[*]-(b))
			RETURN p
		`
		records, err := collect(ctx, tx, query, map[string]any{"from": fromID, "to": toID})
		if err != nil || len(records) == 0 {
			return nil, err
		}
		raw, _ := records[0].Get("p")
		p, ok := raw.(neo4j.Path)
		if !ok {
			return nil, nil
		}
		return pathFromNeo4j(p), nil
	})
	if err != nil {
		return nil, storageError("shortest_path", err)
	}
	return path, nil
}

func pathFromNeo4j(p neo4j.Path) *Path {
	idByElement := make(map[string]string, len(p.Nodes))
	result := &Path{Nodes: make([]*Node, 0, len(p.Nodes)), Edges: make([]*Edge, 0, len(p.Relationships))}
	for _, n := range p.Nodes {
		node := nodeFromNeo4j(n)
		idByElement[n.ElementId] = node.ID
		result.Nodes = append(result.Nodes, node)
	}
	for _, rel := range p.Relationships {
		result.Edges = append(result.Edges, edgeFromRelationship(
			idByElement[rel.StartElementId], idByElement[rel.EndElementId], rel))
	}
	return result
}

// Aggregation

// NetworkStatistics counts stored entities and relationships
func (r *Neo4jRepository) NetworkStatistics(ctx context.Context) (stats *NetworkStats, err error) {
	ctx, done := r.obs.start(ctx, "network_statistics")
	defer done(&err)

	stats, err = readTx(ctx, r, func(ctx context.Context, tx neo4j.ManagedTransaction) (*NetworkStats, error) {
		out := &NetworkStats{RelationshipTypeCounts: map[string]int{}}
		counts := []struct {
			query string
			dest  *int
		}{
			{`MATCH (n:Person) RETURN count(n) AS n`, &out.PersonCount},
			{`MATCH (n:Organization) RETURN count(n) AS n`, &out.OrganizationCount},
			{`MATCH (n:Person {role_category: $role}) RETURN count(n) AS n`, &out.DecisionMakerCount},
			{`MATCH (n:Contract) RETURN count(n) AS n`, &out.ContractCount},
		}
		for _, c := range counts {
			records, err := collect(ctx, tx, c.query, map[string]any{"role": RoleDecisionMaker})
			if err != nil {
				return nil, err
			}
			if len(records) > 0 {
				*c.dest = recordInt(records[0], "n")
			}
		}

		records, err := collect(ctx, tx, `
			MATCH (:Entity)-[r]->(:Entity)
			RETURN type(r) AS rel_type, count(r) AS n
		`, nil)
		if err != nil {
			return nil, err
		}
		for _, rec := range records {
			n := recordInt(rec, "n")
			out.RelationshipTypeCounts[recordString(rec, "rel_type")] = n
			out.EdgeCount += n
		}
		return out, nil
	})
	if err != nil {
		return nil, storageError("network_statistics", err)
	}
	return stats, nil
}

const neo4jRollupQuery = `
	MATCH (c:Contract)
	WHERE c.contractor_name IS NOT NULL AND c.contractor_name <> ''
	  AND ($agency IS NULL OR toLower(coalesce(c.agency, '')) CONTAINS toLower($agency))
	  AND ($naics IS NULL OR c.naics = $naics)
	WITH c.contractor_name AS company,
	     count(c) AS contract_count,
	     sum(toFloat(coalesce(c.value, 0.0))) AS total_value,
	     max(c.award_date) AS latest
	WHERE contract_count >= $min
	RETURN company, contract_count, total_value, latest
	ORDER BY total_value DESC, contract_count DESC, company ASC
	LIMIT $limit
`

func (r *Neo4jRepository) rollupContractors(ctx context.Context, filter ContractFilter, minContracts int) ([]*neo4j.Record, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultAggregateLimit
	}
	params := map[string]any{
		"agency": nullable(filter.Agency),
		"naics":  nullable(filter.NAICS),
		"min":    minContracts,
		"limit":  limit,
	}
	return readTx(ctx, r, func(ctx context.Context, tx neo4j.ManagedTransaction) ([]*neo4j.Record, error) {
		return collect(ctx, tx, neo4jRollupQuery, params)
	})
}

// IncumbentsAtAgency ranks contractors holding contracts at an agency
func (r *Neo4jRepository) IncumbentsAtAgency(ctx context.Context, filter ContractFilter) (incumbents []*Incumbent, err error) {
	ctx, done := r.obs.start(ctx, "incumbents_at_agency")
	defer done(&err)

	if filter.Agency == "" {
		return nil, validationError("incumbents_at_agency", "agency is required")
	}
	records, err := r.rollupContractors(ctx, filter, 1)
	if err != nil {
		return nil, storageError("incumbents_at_agency", err)
	}
	incumbents = make([]*Incumbent, 0, len(records))
	for _, rec := range records {
		incumbents = append(incumbents, &Incumbent{
			Company:         recordString(rec, "company"),
			ContractCount:   recordInt(rec, "contract_count"),
			TotalValue:      recordFloat(rec, "total_value"),
			LatestAwardDate: recordString(rec, "latest"),
		})
	}
	return incumbents, nil
}

// TeamingCandidates ranks contractors with at least minContracts contracts
// matching filter
func (r *Neo4jRepository) TeamingCandidates(ctx context.Context, filter ContractFilter, minContracts int) (candidates []*TeamingCandidate, err error) {
	ctx, done := r.obs.start(ctx, "teaming_candidates")
	defer done(&err)

	if minContracts < 1 {
		minContracts = 1
	}
	records, err := r.rollupContractors(ctx, filter, minContracts)
	if err != nil {
		return nil, storageError("teaming_candidates", err)
	}
	candidates = make([]*TeamingCandidate, 0, len(records))
	for _, rec := range records {
		candidates = append(candidates, &TeamingCandidate{
			Company:       recordString(rec, "company"),
			ContractCount: recordInt(rec, "contract_count"),
			TotalValue:    recordFloat(rec, "total_value"),
		})
	}
	return candidates, nil
}

// ClearDatabase detaches and deletes every entity and contract node
func (r *Neo4jRepository) ClearDatabase(ctx context.Context) (err error) {
	ctx, done := r.obs.start(ctx, "clear_database")
	defer done(&err)

	_, err = writeTx(ctx, r, func(ctx context.Context, tx neo4j.ManagedTransaction) (any, error) {
		return nil, runConsume(ctx, tx, `MATCH (n) WHERE n:Entity OR n:Contract DETACH DELETE n`, nil)
	})
	if err != nil {
		return storageError("clear_database", err)
	}
	logger.Warn("graph store cleared", "backend", BackendNeo4j)
	return nil
}

// Helper functions

func neo4jNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func recordNode(rec *neo4j.Record, key string) (neo4j.Node, bool) {
	v, ok := rec.Get(key)
	if !ok {
		return neo4j.Node{}, false
	}
	n, ok := v.(neo4j.Node)
	return n, ok
}

func recordString(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func recordInt(rec *neo4j.Record, key string) int {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func recordFloat(rec *neo4j.Record, key string) float64 {
	v, _ := rec.Get(key)
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	}
	return 0
}

func propString(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

func propTime(props map[string]any, key string) time.Time {
	switch v := props[key].(type) {
	case time.Time:
		return v.UTC()
	case string:
		return parseSQLiteTime(v)
	}
	return time.Time{}
}

func personFromProps(props map[string]any) *Person {
	return &Person{
		ID:                   propString(props, "id"),
		Name:                 propString(props, "name"),
		Email:                propString(props, "email"),
		Phone:                propString(props, "phone"),
		Title:                propString(props, "title"),
		Organization:         propString(props, "organization"),
		RoleCategory:         propString(props, "role_category"),
		RelationshipStrength: propString(props, "relationship_strength"),
		Source:               propString(props, "source"),
		CreatedAt:            propTime(props, "created_at"),
		UpdatedAt:            propTime(props, "updated_at"),
	}
}

func organizationFromProps(props map[string]any) *Organization {
	return &Organization{
		ID:           propString(props, "id"),
		Name:         propString(props, "name"),
		Abbreviation: propString(props, "abbreviation"),
		Type:         propString(props, "type"),
		Parent:       propString(props, "parent"),
		Source:       propString(props, "source"),
		CreatedAt:    propTime(props, "created_at"),
		UpdatedAt:    propTime(props, "updated_at"),
	}
}

func contractFromProps(props map[string]any) *Contract {
	c := &Contract{
		Name:           propString(props, "name"),
		ContractNumber: propString(props, "contract_number"),
		Title:          propString(props, "title"),
		AwardDate:      propString(props, "award_date"),
		Agency:         propString(props, "agency"),
		ContractorName: propString(props, "contractor_name"),
		NAICS:          propString(props, "naics"),
		Source:         propString(props, "source"),
		Description:    propString(props, "description"),
		CreatedAt:      propTime(props, "created_at"),
		UpdatedAt:      propTime(props, "updated_at"),
	}
	switch v := props["value"].(type) {
	case float64:
		c.Value = v
	case int64:
		c.Value = float64(v)
	}
	return c
}

func hasLabel(n neo4j.Node, label string) bool {
	for _, l := range n.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// nodeFromNeo4j converts a stored :Entity node into the traversal view.
// Endpoints created only by an edge come back as bare typed nodes.
func nodeFromNeo4j(n neo4j.Node) *Node {
	switch {
	case hasLabel(n, EntityPerson):
		return personNode(personFromProps(n.Props))
	case hasLabel(n, EntityOrganization):
		return organizationNode(organizationFromProps(n.Props))
	default:
		return &Node{ID: propString(n.Props, "id"), Type: propString(n.Props, "entity_type")}
	}
}

func edgeFromRelationship(fromID, toID string, rel neo4j.Relationship) *Edge {
	return &Edge{
		FromID:     fromID,
		FromType:   propString(rel.Props, "from_type"),
		ToID:       toID,
		ToType:     propString(rel.Props, "to_type"),
		Type:       rel.Type,
		Properties: decodeProperties(propString(rel.Props, "properties")),
		CreatedAt:  propTime(rel.Props, "created_at"),
	}
}

func edgesFromRecords(records []*neo4j.Record) []*Edge {
	edges := make([]*Edge, 0, len(records))
	for _, rec := range records {
		v, _ := rec.Get("r")
		rel, ok := v.(neo4j.Relationship)
		if !ok {
			continue
		}
		edges = append(edges, edgeFromRelationship(recordString(rec, "from_id"), recordString(rec, "to_id"), rel))
	}
	return edges
}
