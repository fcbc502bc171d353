package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ooyales/it-biz-dev-lite-sub000/internal/logger"
)

// BackendSQLite names the relational backend
const BackendSQLite = "sqlite"

// SQLiteRepository implements Repository on SQLite. Traversal runs against
// an in-memory GraphIndex derived from the people, organizations and edges
// tables.
type SQLiteRepository struct {
	db    *sql.DB
	index *GraphIndex
	opts  Options
	obs   instrumentation
}

// NewSQLite opens (or creates) the database at dbPath and applies the schema
func NewSQLite(ctx context.Context, dbPath string, opts Options) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", storageError("open", err))
	}
	// every connection to an in-memory database sees its own empty database
	if isMemoryPath(dbPath) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Verify connectivity
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite: %w", storageError("open", err))
	}

	repo := &SQLiteRepository{
		db:   db,
		opts: opts,
		obs:  newInstrumentation(BackendSQLite, opts.Metrics),
	}
	repo.index = newGraphIndex(repo.loadSnapshot, opts.Metrics)

	if err := repo.createSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("sqlite graph store ready", "path", dbPath)
	return repo, nil
}

func (r *SQLiteRepository) createSchema(ctx context.Context) error {
	for _, stmt := range allSchemaStatements() {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", storageError("ensure_indexes", err))
		}
	}
	return nil
}

// Close closes the SQLite connection
func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

// Backend returns the backend name
func (r *SQLiteRepository) Backend() string { return BackendSQLite }

// Index exposes the derived traversal index
func (r *SQLiteRepository) Index() *GraphIndex { return r.index }

// EnsureIndexes re-applies the schema. Every statement is IF NOT EXISTS.
func (r *SQLiteRepository) EnsureIndexes(ctx context.Context) (err error) {
	ctx, done := r.obs.start(ctx, "ensure_indexes")
	defer done(&err)
	return r.createSchema(ctx)
}

// People

const personColumns = `id, name, email, phone, title, organization, role_category,
       relationship_strength, source, created_at, updated_at`

// CreateOrUpdatePerson upserts a person. Supplied fields win; empty fields
// keep the stored value and created_at never changes.
func (r *SQLiteRepository) CreateOrUpdatePerson(ctx context.Context, in PersonInput) (id string, err error) {
	ctx, done := r.obs.start(ctx, "create_or_update_person")
	defer done(&err)

	in, err = preparePerson(in)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO people (id, name, email, phone, title, organization, role_category,
		                    relationship_strength, source, created_at, updated_at)
		VALUES (:id, :name, :email, :phone, :title, :organization, :role_category,
		        :initial_strength, :source, :now, :now)
		ON CONFLICT(id) DO UPDATE SET
			name = :name,
			email = COALESCE(:email, people.email),
			phone = COALESCE(:phone, people.phone),
			title = COALESCE(:title, people.title),
			organization = COALESCE(:organization, people.organization),
			role_category = COALESCE(:role_category, people.role_category),
			relationship_strength = COALESCE(:strength, people.relationship_strength),
			source = COALESCE(:source, people.source),
			updated_at = :now
	`
	_, err = r.db.ExecContext(ctx, query,
		sql.Named("id", in.ID),
		sql.Named("name", in.Name),
		sql.Named("email", nullable(in.Email)),
		sql.Named("phone", nullable(in.Phone)),
		sql.Named("title", nullable(in.Title)),
		sql.Named("organization", nullable(in.Organization)),
		sql.Named("role_category", nullable(in.RoleCategory)),
		sql.Named("initial_strength", in.initialStrength()),
		sql.Named("strength", nullable(in.RelationshipStrength)),
		sql.Named("source", nullable(in.Source)),
		sql.Named("now", sqliteNow()),
	)
	if err != nil {
		return "", storageError("create_or_update_person", err)
	}

	r.index.Invalidate()
	return in.ID, nil
}

// BulkCreatePeople upserts each person independently and reports failures
func (r *SQLiteRepository) BulkCreatePeople(ctx context.Context, people []PersonInput) (result *BulkResult, err error) {
	ctx, done := r.obs.start(ctx, "bulk_create_people")
	defer done(&err)
	return bulkCreatePeople(ctx, r, people), nil
}

// GetPerson retrieves a person by id
func (r *SQLiteRepository) GetPerson(ctx context.Context, id string) (p *Person, err error) {
	ctx, done := r.obs.start(ctx, "get_person")
	defer done(&err)

	if id == "" {
		return nil, validationError("get_person", "id is required")
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM people WHERE id = ?`, id)
	p, err = scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError("get_person", "person %s", id)
	}
	if err != nil {
		return nil, storageError("get_person", err)
	}
	return p, nil
}

// FindPersonByEmail returns the earliest-created person with the email,
// compared case-insensitively
func (r *SQLiteRepository) FindPersonByEmail(ctx context.Context, email string) (p *Person, err error) {
	ctx, done := r.obs.start(ctx, "find_person_by_email")
	defer done(&err)

	email = normalizeKey(email)
	if email == "" {
		return nil, validationError("find_person_by_email", "email is required")
	}
	query := `SELECT ` + personColumns + ` FROM people
		WHERE lower(email) = ?
		ORDER BY created_at, id
		LIMIT 1`
	p, err = scanPerson(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError("find_person_by_email", "no person with email %s", email)
	}
	if err != nil {
		return nil, storageError("find_person_by_email", err)
	}
	return p, nil
}

// SearchPeople returns people whose name contains substring, ignoring case
func (r *SQLiteRepository) SearchPeople(ctx context.Context, substring string, limit int) (people []*Person, err error) {
	ctx, done := r.obs.start(ctx, "search_people")
	defer done(&err)

	query := `SELECT ` + personColumns + ` FROM people
		WHERE instr(lower(name), lower(:q)) > 0
		ORDER BY name, id
		LIMIT :limit`
	rows, err := r.db.QueryContext(ctx, query,
		sql.Named("q", substring),
		sql.Named("limit", r.opts.searchLimit(limit)))
	if err != nil {
		return nil, storageError("search_people", err)
	}
	defer rows.Close()

	people = []*Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, storageError("search_people", err)
		}
		people = append(people, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("search_people", err)
	}
	return people, nil
}

// Organizations

const organizationColumns = `id, name, abbreviation, type, parent, source, created_at, updated_at`

// CreateOrUpdateOrganization upserts an organization with the same merge
// rule as people
func (r *SQLiteRepository) CreateOrUpdateOrganization(ctx context.Context, in OrganizationInput) (id string, err error) {
	ctx, done := r.obs.start(ctx, "create_or_update_organization")
	defer done(&err)

	in, err = prepareOrganization(in)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO organizations (id, name, abbreviation, type, parent, source, created_at, updated_at)
		VALUES (:id, :name, :abbreviation, :type, :parent, :source, :now, :now)
		ON CONFLICT(id) DO UPDATE SET
			name = :name,
			abbreviation = COALESCE(:abbreviation, organizations.abbreviation),
			type = COALESCE(:type, organizations.type),
			parent = COALESCE(:parent, organizations.parent),
			source = COALESCE(:source, organizations.source),
			updated_at = :now
	`
	_, err = r.db.ExecContext(ctx, query,
		sql.Named("id", in.ID),
		sql.Named("name", in.Name),
		sql.Named("abbreviation", nullable(in.Abbreviation)),
		sql.Named("type", nullable(in.Type)),
		sql.Named("parent", nullable(in.Parent)),
		sql.Named("source", nullable(in.Source)),
		sql.Named("now", sqliteNow()),
	)
	if err != nil {
		return "", storageError("create_or_update_organization", err)
	}

	r.index.Invalidate()
	return in.ID, nil
}

// GetOrganization retrieves an organization by id
func (r *SQLiteRepository) GetOrganization(ctx context.Context, id string) (o *Organization, err error) {
	ctx, done := r.obs.start(ctx, "get_organization")
	defer done(&err)

	if id == "" {
		return nil, validationError("get_organization", "id is required")
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id = ?`, id)
	o, err = scanOrganization(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError("get_organization", "organization %s", id)
	}
	if err != nil {
		return nil, storageError("get_organization", err)
	}
	return o, nil
}

// FindOrganizationByName looks an organization up by its resolved id, then
// by a case-insensitive name match for records created with explicit ids
func (r *SQLiteRepository) FindOrganizationByName(ctx context.Context, name string) (o *Organization, err error) {
	ctx, done := r.obs.start(ctx, "find_organization_by_name")
	defer done(&err)

	id, err := ResolveOrgID(name)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + organizationColumns + ` FROM organizations
		WHERE id = :id OR lower(name) = :name
		ORDER BY id = :id DESC, created_at, id
		LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, sql.Named("id", id), sql.Named("name", normalizeKey(name)))
	o, err = scanOrganization(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError("find_organization_by_name", "no organization named %s", name)
	}
	if err != nil {
		return nil, storageError("find_organization_by_name", err)
	}
	return o, nil
}

// SearchOrganizations returns organizations whose name contains substring
func (r *SQLiteRepository) SearchOrganizations(ctx context.Context, substring string, limit int) (orgs []*Organization, err error) {
	ctx, done := r.obs.start(ctx, "search_organizations")
	defer done(&err)

	query := `SELECT ` + organizationColumns + ` FROM organizations
		WHERE instr(lower(name), lower(:q)) > 0
		ORDER BY name, id
		LIMIT :limit`
	rows, err := r.db.QueryContext(ctx, query,
		sql.Named("q", substring),
		sql.Named("limit", r.opts.searchLimit(limit)))
	if err != nil {
		return nil, storageError("search_organizations", err)
	}
	defer rows.Close()

	orgs = []*Organization{}
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, storageError("search_organizations", err)
		}
		orgs = append(orgs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("search_organizations", err)
	}
	return orgs, nil
}

// Contracts

const contractColumns = `name, contract_number, title, value, award_date, agency, contractor_name,
       naics, source, description, created_at, updated_at`

// CreateOrUpdateContract upserts a contract keyed by name
func (r *SQLiteRepository) CreateOrUpdateContract(ctx context.Context, in ContractInput) (name string, err error) {
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
		INSERT INTO contracts (name, contract_number, title, value, award_date, agency,
		                       contractor_name, naics, source, description, created_at, updated_at)
		VALUES (:name, :contract_number, :title, COALESCE(:value, 0), :award_date, :agency,
		        :contractor_name, :naics, :source, :description, :now, :now)
		ON CONFLICT(name) DO UPDATE SET
			contract_number = COALESCE(:contract_number, contracts.contract_number),
			title = COALESCE(:title, contracts.title),
			value = COALESCE(:value, contracts.value),
			award_date = COALESCE(:award_date, contracts.award_date),
			agency = COALESCE(:agency, contracts.agency),
			contractor_name = COALESCE(:contractor_name, contracts.contractor_name),
			naics = COALESCE(:naics, contracts.naics),
			source = COALESCE(:source, contracts.source),
			description = COALESCE(:description, contracts.description),
			updated_at = :now
	`
	_, err = r.db.ExecContext(ctx, query,
		sql.Named("name", in.Name),
		sql.Named("contract_number", nullable(in.ContractNumber)),
		sql.Named("title", nullable(in.Title)),
		sql.Named("value", value),
		sql.Named("award_date", nullable(in.AwardDate)),
		sql.Named("agency", nullable(in.Agency)),
		sql.Named("contractor_name", nullable(in.ContractorName)),
		sql.Named("naics", nullable(in.NAICS)),
		sql.Named("source", nullable(in.Source)),
		sql.Named("description", nullable(in.Description)),
		sql.Named("now", sqliteNow()),
	)
	if err != nil {
		return "", storageError("create_or_update_contract", err)
	}

	r.index.Invalidate()
	return in.Name, nil
}

// GetContract retrieves a contract by name
func (r *SQLiteRepository) GetContract(ctx context.Context, name string) (c *Contract, err error) {
	ctx, done := r.obs.start(ctx, "get_contract")
	defer done(&err)

	if name == "" {
		return nil, validationError("get_contract", "name is required")
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+contractColumns+` FROM contracts WHERE name = ?`, name)
	c, err = scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFoundError("get_contract", "contract %s", name)
	}
	if err != nil {
		return nil, storageError("get_contract", err)
	}
	return c, nil
}

// ContractsByAgency lists contracts, newest award first, narrowed by filter
func (r *SQLiteRepository) ContractsByAgency(ctx context.Context, filter ContractFilter) (contracts []*Contract, err error) {
	ctx, done := r.obs.start(ctx, "contracts_by_agency")
	defer done(&err)

	query := `SELECT ` + contractColumns + ` FROM contracts
		WHERE (:agency IS NULL OR instr(lower(COALESCE(agency, '')), lower(:agency)) > 0)
		  AND (:naics IS NULL OR naics = :naics)
		ORDER BY COALESCE(award_date, '') DESC, name
		LIMIT :limit`
	rows, err := r.db.QueryContext(ctx, query,
		sql.Named("agency", nullable(filter.Agency)),
		sql.Named("naics", nullable(filter.NAICS)),
		sql.Named("limit", r.opts.searchLimit(filter.Limit)))
	if err != nil {
		return nil, storageError("contracts_by_agency", err)
	}
	defer rows.Close()

	contracts = []*Contract{}
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, storageError("contracts_by_agency", err)
		}
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("contracts_by_agency", err)
	}
	return contracts, nil
}

// Relationships

const edgeColumns = `from_id, from_type, to_id, to_type, relationship_type, properties, created_at`

// CreateRelationship replaces any edge with the same (from, to, type) in a
// single transaction. Endpoints need not exist yet.
func (r *SQLiteRepository) CreateRelationship(ctx context.Context, in EdgeInput) (err error) {
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

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("create_relationship", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM edges WHERE from_id = ? AND to_id = ? AND relationship_type = ?`,
		in.FromID, in.ToID, in.Type)
	if err != nil {
		return storageError("create_relationship", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO edges (`+edgeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, in.FromID, in.FromType, in.ToID, in.ToType, in.Type, string(props), sqliteNow())
	if err != nil {
		return storageError("create_relationship", err)
	}

	if err := tx.Commit(); err != nil {
		return storageError("create_relationship", err)
	}

	r.index.Invalidate()
	return nil
}

// entityType reports whether id is a stored person or organization
func (r *SQLiteRepository) entityType(ctx context.Context, id string) (string, error) {
	var t string
	err := r.db.QueryRowContext(ctx, `
		SELECT :person FROM people WHERE id = :id
		UNION ALL
		SELECT :org FROM organizations WHERE id = :id
		LIMIT 1
	`, sql.Named("id", id), sql.Named("person", EntityPerson), sql.Named("org", EntityOrganization)).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return t, err
}

// GetRelationships returns every edge touching entityID in insertion order
func (r *SQLiteRepository) GetRelationships(ctx context.Context, entityID string) (edges []*Edge, err error) {
	ctx, done := r.obs.start(ctx, "get_relationships")
	defer done(&err)

	if entityID == "" {
		return nil, validationError("get_relationships", "id is required")
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+edgeColumns+` FROM edges
		WHERE from_id = :id OR to_id = :id
		ORDER BY id
	`, sql.Named("id", entityID))
	if err != nil {
		return nil, storageError("get_relationships", err)
	}
	defer rows.Close()

	edges, err = scanEdges(rows)
	if err != nil {
		return nil, storageError("get_relationships", err)
	}
	return edges, nil
}

// Traversal

// EgoNetwork returns every node within depth hops of entityID, following
// edges in both directions, and the edges among them
func (r *SQLiteRepository) EgoNetwork(ctx context.Context, entityID string, depth int) (sub *Subgraph, err error) {
	ctx, done := r.obs.start(ctx, "ego_network")
	defer done(&err)

	if depth < 0 {
		return nil, validationError("ego_network", "depth must be non-negative, got %d", depth)
	}
	err = r.index.with(ctx, func(s *indexSnapshot) {
		sub = s.egoNetwork(entityID, depth)
	})
	if err != nil {
		return nil, storageError("ego_network", err)
	}
	return sub, nil
}

// ShortestPath returns a minimum-hop path ignoring edge direction, or nil
// when no path exists
func (r *SQLiteRepository) ShortestPath(ctx context.Context, fromID, toID string) (path *Path, err error) {
	ctx, done := r.obs.start(ctx, "shortest_path")
	defer done(&err)

	err = r.index.with(ctx, func(s *indexSnapshot) {
		path = s.shortestPath(fromID, toID)
	})
	if err != nil {
		return nil, storageError("shortest_path", err)
	}
	return path, nil
}

// loadSnapshot reads the entity and edge tables into a fresh index snapshot
func (r *SQLiteRepository) loadSnapshot(ctx context.Context) (*indexSnapshot, error) {
	snap := newIndexSnapshot()

	people, err := r.db.QueryContext(ctx, `SELECT `+personColumns+` FROM people ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("loading people: %w", err)
	}
	defer people.Close()
	for people.Next() {
		p, err := scanPerson(people)
		if err != nil {
			return nil, fmt.Errorf("loading people: %w", err)
		}
		snap.addNode(personNode(p))
	}
	if err := people.Err(); err != nil {
		return nil, fmt.Errorf("loading people: %w", err)
	}

	orgs, err := r.db.QueryContext(ctx, `SELECT `+organizationColumns+` FROM organizations ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("loading organizations: %w", err)
	}
	defer orgs.Close()
	for orgs.Next() {
		o, err := scanOrganization(orgs)
		if err != nil {
			return nil, fmt.Errorf("loading organizations: %w", err)
		}
		snap.addNode(organizationNode(o))
	}
	if err := orgs.Err(); err != nil {
		return nil, fmt.Errorf("loading organizations: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+edgeColumns+` FROM edges ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("loading edges: %w", err)
	}
	defer rows.Close()
	edges, err := scanEdges(rows)
	if err != nil {
		return nil, fmt.Errorf("loading edges: %w", err)
	}
	for _, e := range edges {
		snap.addEdge(e)
	}
	return snap, nil
}

// Aggregation

// NetworkStatistics counts stored entities and edges
func (r *SQLiteRepository) NetworkStatistics(ctx context.Context) (stats *NetworkStats, err error) {
	ctx, done := r.obs.start(ctx, "network_statistics")
	defer done(&err)

	stats = &NetworkStats{RelationshipTypeCounts: map[string]int{}}
	err = r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM people),
			(SELECT COUNT(*) FROM organizations),
			(SELECT COUNT(*) FROM edges),
			(SELECT COUNT(*) FROM people WHERE role_category = ?),
			(SELECT COUNT(*) FROM contracts)
	`, RoleDecisionMaker).Scan(
		&stats.PersonCount,
		&stats.OrganizationCount,
		&stats.EdgeCount,
		&stats.DecisionMakerCount,
		&stats.ContractCount,
	)
	if err != nil {
		return nil, storageError("network_statistics", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT relationship_type, COUNT(*) FROM edges GROUP BY relationship_type`)
	if err != nil {
		return nil, storageError("network_statistics", err)
	}
	defer rows.Close()
	for rows.Next() {
		var relType string
		var count int
		if err := rows.Scan(&relType, &count); err != nil {
			return nil, storageError("network_statistics", err)
		}
		stats.RelationshipTypeCounts[relType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("network_statistics", err)
	}
	return stats, nil
}

// contractorRollup is one GROUP BY contractor_name row
type contractorRollup struct {
	company string
	count   int
	total   float64
	latest  sql.NullString
}

// rollupContractors groups contracts by contractor, largest total value first
func (r *SQLiteRepository) rollupContractors(ctx context.Context, filter ContractFilter, minContracts int) ([]contractorRollup, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultAggregateLimit
	}
	query := `
		SELECT contractor_name, COUNT(*) AS contract_count, COALESCE(SUM(value), 0) AS total_value,
		       MAX(award_date)
		FROM contracts
		WHERE contractor_name IS NOT NULL AND contractor_name <> ''
		  AND (:agency IS NULL OR instr(lower(COALESCE(agency, '')), lower(:agency)) > 0)
		  AND (:naics IS NULL OR naics = :naics)
		GROUP BY contractor_name
		HAVING COUNT(*) >= :min
		ORDER BY total_value DESC, contract_count DESC, contractor_name ASC
		LIMIT :limit
	`
	rows, err := r.db.QueryContext(ctx, query,
		sql.Named("agency", nullable(filter.Agency)),
		sql.Named("naics", nullable(filter.NAICS)),
		sql.Named("min", minContracts),
		sql.Named("limit", limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []contractorRollup
	for rows.Next() {
		var c contractorRollup
		if err := rows.Scan(&c.company, &c.count, &c.total, &c.latest); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// IncumbentsAtAgency ranks contractors holding contracts at an agency
func (r *SQLiteRepository) IncumbentsAtAgency(ctx context.Context, filter ContractFilter) (incumbents []*Incumbent, err error) {
	ctx, done := r.obs.start(ctx, "incumbents_at_agency")
	defer done(&err)

	if filter.Agency == "" {
		return nil, validationError("incumbents_at_agency", "agency is required")
	}
	rollups, err := r.rollupContractors(ctx, filter, 1)
	if err != nil {
		return nil, storageError("incumbents_at_agency", err)
	}
	incumbents = make([]*Incumbent, 0, len(rollups))
	for _, c := range rollups {
		incumbents = append(incumbents, &Incumbent{
			Company:         c.company,
			ContractCount:   c.count,
			TotalValue:      c.total,
			LatestAwardDate: c.latest.String,
		})
	}
	return incumbents, nil
}

// TeamingCandidates ranks contractors with at least minContracts contracts
// matching filter
func (r *SQLiteRepository) TeamingCandidates(ctx context.Context, filter ContractFilter, minContracts int) (candidates []*TeamingCandidate, err error) {
	ctx, done := r.obs.start(ctx, "teaming_candidates")
	defer done(&err)

	if minContracts < 1 {
		minContracts = 1
	}
	rollups, err := r.rollupContractors(ctx, filter, minContracts)
	if err != nil {
		return nil, storageError("teaming_candidates", err)
	}
	candidates = make([]*TeamingCandidate, 0, len(rollups))
	for _, c := range rollups {
		candidates = append(candidates, &TeamingCandidate{
			Company:       c.company,
			ContractCount: c.count,
			TotalValue:    c.total,
		})
	}
	return candidates, nil
}

// ClearDatabase removes every entity, contract and edge
func (r *SQLiteRepository) ClearDatabase(ctx context.Context) (err error) {
	ctx, done := r.obs.start(ctx, "clear_database")
	defer done(&err)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("clear_database", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"edges", "people", "organizations", "contracts"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return storageError("clear_database", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storageError("clear_database", err)
	}

	r.index.Invalidate()
	logger.Warn("graph store cleared", "backend", BackendSQLite)
	return nil
}

// Helper functions

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*Person, error) {
	var p Person
	var email, phone, title, org, role, strength, source sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.Name, &email, &phone, &title, &org, &role,
		&strength, &source, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.Email = email.String
	p.Phone = phone.String
	p.Title = title.String
	p.Organization = org.String
	p.RoleCategory = role.String
	p.RelationshipStrength = strength.String
	p.Source = source.String
	p.CreatedAt = parseSQLiteTime(createdAt)
	p.UpdatedAt = parseSQLiteTime(updatedAt)
	return &p, nil
}

func scanOrganization(row rowScanner) (*Organization, error) {
	var o Organization
	var abbr, orgType, parent, source sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&o.ID, &o.Name, &abbr, &orgType, &parent, &source, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	o.Abbreviation = abbr.String
	o.Type = orgType.String
	o.Parent = parent.String
	o.Source = source.String
	o.CreatedAt = parseSQLiteTime(createdAt)
	o.UpdatedAt = parseSQLiteTime(updatedAt)
	return &o, nil
}

func scanContract(row rowScanner) (*Contract, error) {
	var c Contract
	var number, title, awardDate, agency, contractor, naics, source, description sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&c.Name, &number, &title, &c.Value, &awardDate, &agency, &contractor,
		&naics, &source, &description, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.ContractNumber = number.String
	c.Title = title.String
	c.AwardDate = awardDate.String
	c.Agency = agency.String
	c.ContractorName = contractor.String
	c.NAICS = naics.String
	c.Source = source.String
	c.Description = description.String
	c.CreatedAt = parseSQLiteTime(createdAt)
	c.UpdatedAt = parseSQLiteTime(updatedAt)
	return &c, nil
}

func scanEdges(rows *sql.Rows) ([]*Edge, error) {
	edges := []*Edge{}
	for rows.Next() {
		var e Edge
		var props sql.NullString
		var createdAt string
		if err := rows.Scan(&e.FromID, &e.FromType, &e.ToID, &e.ToType, &e.Type, &props, &createdAt); err != nil {
			return nil, err
		}
		e.Properties = decodeProperties(props.String)
		e.CreatedAt = parseSQLiteTime(createdAt)
		edges = append(edges, &e)
	}
	return edges, rows.Err()
}

// decodeProperties parses a stored JSON property bag. Unreadable bags decode
// to an empty map.
func decodeProperties(raw string) map[string]any {
	props := map[string]any{}
	if raw == "" {
		return props
	}
	if err := json.Unmarshal([]byte(raw), &props); err != nil {
		logger.Warn("discarding unreadable edge properties", "err", err)
		return map[string]any{}
	}
	return props
}

func sqliteNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func parseSQLiteTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
