package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

const (
	DialectNeo4j    = "neo4j"
	DialectMemgraph = "memgraph"
)

// Options configures a bolt connection. Neo4j and Memgraph both speak bolt;
// they only differ in index and constraint DDL.
type Options struct {
	URI      string
	Username string
	Password string
	Database string
	Dialect  string
	Logger   *zap.Logger
}

// ErrUnavailable is wrapped into every error caused by losing the bolt
// connection, so callers can tell it apart from query failures.
var ErrUnavailable = errors.New("graph unavailable")

type Neo4jDriver struct {
	Driver   neo4j.DriverWithContext
	database string
	dialect  string
	logger   *zap.Logger
}

func NewNeo4jDriver(ctx context.Context, opts Options) (*Neo4jDriver, error) {
	driver, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(opts.Username, opts.Password, ""))
	if err != nil {
		return nil, err
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to reach graph at %s: %w: %v", opts.URI, ErrUnavailable, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dialect := strings.ToLower(opts.Dialect)
	if dialect == "" {
		dialect = DialectNeo4j
	}

	logger.Info("connected to graph", zap.String("uri", opts.URI), zap.String("dialect", dialect))
	return &Neo4jDriver{Driver: driver, database: opts.Database, dialect: dialect, logger: logger}, nil
}

func (d *Neo4jDriver) Close(ctx context.Context) error {
	return d.Driver.Close(ctx)
}

func (d *Neo4jDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	return d.execute(ctx, query, params, neo4j.ExecuteQueryWithWritersRouting())
}

func (d *Neo4jDriver) ExecuteRead(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	return d.execute(ctx, query, params, neo4j.ExecuteQueryWithReadersRouting())
}

func (d *Neo4jDriver) execute(ctx context.Context, query string, params map[string]interface{}, routing neo4j.ExecuteQueryConfigurationOption) (neo4j.EagerResult, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{routing}
	if d.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(d.database))
	}
	result, err := neo4j.ExecuteQuery(ctx, d.Driver, query, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		if neo4j.IsConnectivityError(err) {
			return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w: %v", ErrUnavailable, err)
		}
		return neo4j.EagerResult{}, fmt.Errorf("failed to execute query: %w", err)
	}
	return *result, nil
}

// BuildIndices creates the session-key constraints the mutation protocol
// relies on. MERGE on (session_id, entity_id) only stays duplicate-free
// under concurrent writers when the key is backed by a uniqueness constraint.
func (d *Neo4jDriver) BuildIndices(ctx context.Context) error {
	queries := IndexQueries(d.dialect)

	for _, q := range queries {
		_, err := d.ExecuteQuery(ctx, q, nil)
		if err != nil {
			// Continue, as index might already exist
			d.logger.Warn("failed to create index", zap.String("query", q), zap.Error(err))
		}
	}

	return nil
}

// IndexQueries returns the DDL statements for a dialect.
func IndexQueries(dialect string) []string {
	if strings.ToLower(dialect) == DialectMemgraph {
		return []string{
			"CREATE CONSTRAINT ON (e:Entity) ASSERT e.session_id, e.entity_id IS UNIQUE;",
			"CREATE CONSTRAINT ON (p:SocialPost) ASSERT p.session_id, p.post_id IS UNIQUE;",
			"CREATE CONSTRAINT ON (v:Event) ASSERT v.session_id, v.event_id IS UNIQUE;",
			"CREATE INDEX ON :Entity(session_id);",
			"CREATE INDEX ON :SocialPost(session_id);",
			"CREATE INDEX ON :Event(session_id);",
		}
	}
	return []string{
		"CREATE CONSTRAINT entity_key IF NOT EXISTS FOR (e:Entity) REQUIRE (e.session_id, e.entity_id) IS UNIQUE",
		"CREATE CONSTRAINT social_post_key IF NOT EXISTS FOR (p:SocialPost) REQUIRE (p.session_id, p.post_id) IS UNIQUE",
		"CREATE CONSTRAINT event_key IF NOT EXISTS FOR (v:Event) REQUIRE (v.session_id, v.event_id) IS UNIQUE",
		"CREATE INDEX social_post_timestamp IF NOT EXISTS FOR (p:SocialPost) ON (p.session_id, p.timestamp)",
		"CREATE INDEX event_timestamp IF NOT EXISTS FOR (v:Event) ON (v.session_id, v.timestamp)",
	}
}
