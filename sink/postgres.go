package sink

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/perfwatch/fsload/types"
)

// PGConfig holds the PostgreSQL connection parameters. Password may be
// empty; lib/pq then falls back to .pgpass, matching the original deployment
// convention.
type PGConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string
}

// DSN renders the config as a lib/pq key=value connection string.
func (c PGConfig) DSN() string {
	kv := map[string]string{
		"host":   c.Host,
		"dbname": c.Database,
		"user":   c.User,
	}
	if c.Port != 0 {
		kv["port"] = fmt.Sprintf("%d", c.Port)
	}
	if c.Password != "" {
		kv["password"] = c.Password
	}
	if c.SSLMode != "" {
		kv["sslmode"] = c.SSLMode
	}

	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, escapeDSNValue(kv[k])))
	}
	return strings.Join(parts, " ")
}

// escapeDSNValue quotes a value for a key=value connection string when it
// contains spaces or quotes.
func escapeDSNValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// PostgresSink appends results to the load_test_results table. The table's
// id column is the identity companion fio_metrics rows reference as
// test_result_id, so every insert returns it.
type PostgresSink struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPostgresSink opens the connection and verifies the store is reachable.
// An unreachable store here is a startup failure; mid-run write failures are
// per-record StorageErrors instead.
func NewPostgresSink(ctx context.Context, cfg PGConfig, log zerolog.Logger) (*PostgresSink, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("database host is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("database name is required")
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	log.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("connected to PostgreSQL database")
	return &PostgresSink{db: db, log: log}, nil
}

const insertResultQuery = `
	INSERT INTO load_test_results
		(setup_id, hostname, test_name, start_time, execution_time_seconds, success, error_message)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id
`

// Record writes one result row and stamps the assigned id back onto the
// result.
func (s *PostgresSink) Record(ctx context.Context, result *types.Result) error {
	err := s.db.QueryRowContext(ctx, insertResultQuery,
		result.SetupID,
		result.Hostname,
		result.TestName,
		result.StartTime,
		result.ExecutionSeconds(),
		result.Success,
		nullableError(result),
	).Scan(&result.ID)
	if err != nil {
		return &StorageError{Err: err}
	}

	s.log.Debug().
		Int64("id", result.ID).
		Str("test_name", result.TestName).
		Float64("execution_time_seconds", result.ExecutionSeconds()).
		Msg("logged test result")
	return nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

// nullableError maps the failure detail to a nullable column: present only
// when the execution failed.
func nullableError(result *types.Result) sql.NullString {
	if result.Success || result.Err == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: result.ErrorMessage(), Valid: true}
}
