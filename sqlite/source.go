// Package sqlite loads documents from a SQLite table into the store.
//
// A Source is read-only: rows flow one way, from the database into a
// collection. Column values are coerced by the collection definition, so
// a typed collection receives real booleans, integers, timestamps, and
// decoded JSON rather than raw driver values.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/asaidimu/go-maktaba/core/query"
	"github.com/asaidimu/go-maktaba/core/schema"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Options tunes what a Source selects. The zero value loads every row.
type Options struct {
	// Filter is pushed down to the database as a parameterized WHERE
	// clause. Only standard comparison operators and and/or/not groups
	// can be pushed down; Load fails on anything else.
	Filter *query.QueryFilter
	// OrderBy adds an ORDER BY clause, in the given order.
	OrderBy []query.SortConfiguration
	// Limit caps the number of rows loaded. Zero or negative loads all.
	Limit int
	// Logger for load diagnostics. Nil disables logging.
	Logger *zap.Logger
}

// Source reads the rows of one table as documents. It satisfies the
// store's Loader contract.
type Source struct {
	db      *sql.DB
	table   string
	def     *schema.CollectionDefinition
	filter  *query.QueryFilter
	orderBy []query.SortConfiguration
	limit   int
	logger  *zap.Logger
}

// Open opens the SQLite database at path and binds a Source to table.
// Close the Source once the collection no longer reloads from it.
func Open(path, table string, def *schema.CollectionDefinition, opts *Options) (*Source, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is empty")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database %s: %w", path, err)
	}
	src, err := NewSource(db, table, def, opts)
	if err != nil {
		db.Close()
		return nil, err
	}
	return src, nil
}

// NewSource binds a Source to a table on an already opened database. The
// Source takes ownership of db; Close closes it.
func NewSource(db *sql.DB, table string, def *schema.CollectionDefinition, opts *Options) (*Source, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is nil")
	}
	if table == "" {
		return nil, fmt.Errorf("table name is empty")
	}
	if def == nil {
		return nil, fmt.Errorf("collection definition is nil")
	}
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		db:      db,
		table:   table,
		def:     def,
		filter:  opts.Filter,
		orderBy: opts.OrderBy,
		limit:   opts.Limit,
		logger:  logger,
	}, nil
}

// Close closes the underlying database handle.
func (s *Source) Close() error {
	return s.db.Close()
}

// Load selects the configured rows and scans them into documents.
func (s *Source) Load(ctx context.Context) ([]schema.Document, error) {
	stmt, params, err := s.selectSQL()
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Loading documents from sqlite",
		zap.String("table", s.table),
		zap.String("sql", stmt),
		zap.Int("params", len(params)))

	rows, err := s.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("querying table %s: %w", s.table, err)
	}
	defer rows.Close()

	docs, err := s.scanDocuments(rows)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Loaded documents from sqlite",
		zap.String("table", s.table),
		zap.Int("count", len(docs)))
	return docs, nil
}

// selectSQL assembles the SELECT statement from the source options.
func (s *Source) selectSQL() (string, []any, error) {
	var sb strings.Builder
	sb.WriteString("SELECT * FROM ")
	sb.WriteString(quoteIdentifier(s.table))

	var params []any
	if s.filter != nil {
		where, err := whereClause(s.def, s.filter, &params)
		if err != nil {
			return "", nil, fmt.Errorf("building WHERE clause for %s: %w", s.table, err)
		}
		if where != "" {
			sb.WriteString(" WHERE ")
			sb.WriteString(where)
		}
	}
	if len(s.orderBy) > 0 {
		clauses := make([]string, 0, len(s.orderBy))
		for _, cfg := range s.orderBy {
			dir := "ASC"
			if cfg.Direction == query.SortDirectionDesc {
				dir = "DESC"
			}
			clauses = append(clauses, quoteIdentifier(cfg.Field)+" "+dir)
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(clauses, ", "))
	}
	if s.limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", s.limit)
	}
	return sb.String(), params, nil
}

// scanDocuments reads every row into a document, coercing column values
// by their declared field types.
func (s *Source) scanDocuments(rows *sql.Rows) ([]schema.Document, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", s.table, err)
	}
	fields := make([]*schema.FieldDefinition, len(cols))
	for i, col := range cols {
		fields[i] = s.def.FindField(col)
		if fields[i] == nil && s.def.Fields != nil {
			s.logger.Warn("Column not declared in collection definition, using raw value",
				zap.String("table", s.table),
				zap.String("column", col))
		}
	}

	var docs []schema.Document
	values := make([]any, len(cols))
	scanArgs := make([]any, len(cols))
	for i := range values {
		scanArgs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("scanning row of %s: %w", s.table, err)
		}
		doc := make(schema.Document, len(cols))
		for i, col := range cols {
			doc[col] = coerceValue(fields[i], values[i])
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows of %s: %w", s.table, err)
	}
	return docs, nil
}

// coerceValue maps a raw driver value onto a declared field type. SQLite
// stores booleans as integers and structured values as JSON text, so the
// declared type decides how the raw value is interpreted. Undeclared
// columns only get the []byte to string conversion.
func coerceValue(field *schema.FieldDefinition, raw any) any {
	if raw == nil {
		return nil
	}
	if field == nil {
		if b, ok := raw.([]byte); ok {
			return string(b)
		}
		return raw
	}
	switch field.Type {
	case schema.FieldTypeString:
		if b, ok := raw.([]byte); ok {
			return string(b)
		}
		return raw
	case schema.FieldTypeBoolean:
		switch v := raw.(type) {
		case bool:
			return v
		case int64:
			return v != 0
		}
		return raw
	case schema.FieldTypeInteger:
		switch v := raw.(type) {
		case int64:
			return v
		case float64:
			return int64(v)
		}
		return raw
	case schema.FieldTypeNumber:
		switch v := raw.(type) {
		case float64:
			return v
		case int64:
			return float64(v)
		}
		return raw
	case schema.FieldTypeDatetime:
		switch v := raw.(type) {
		case time.Time:
			return v
		case string:
			return parseTimestamp(v)
		case []byte:
			return parseTimestamp(string(v))
		}
		return raw
	case schema.FieldTypeArray, schema.FieldTypeObject, schema.FieldTypeRecord:
		var buf []byte
		switch v := raw.(type) {
		case []byte:
			buf = v
		case string:
			buf = []byte(v)
		default:
			return raw
		}
		var decoded any
		if err := json.Unmarshal(buf, &decoded); err != nil {
			return string(buf)
		}
		return decoded
	default:
		if b, ok := raw.([]byte); ok {
			return string(b)
		}
		return raw
	}
}

// parseTimestamp decodes an RFC 3339 string, falling back to the text as
// stored when it does not parse.
func parseTimestamp(s string) any {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return s
}
