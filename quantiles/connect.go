package quantiles

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	q "github.com/invertedv/qdash"
	_ "github.com/jackc/pgx/stdlib"
)

const dialTimeout = 300 * time.Second

// ConnectClickHouse opens a ClickHouse connection. host is an address without port (9000 is assumed).
func ConnectClickHouse(host, user, password, database string) (*sql.DB, error) {
	if database == "" {
		database = "default"
	}

	db := clickhouse.OpenDB(
		&clickhouse.Options{
			Addr: []string{host + ":9000"},
			Auth: clickhouse.Auth{
				Database: database,
				Username: user,
				Password: password,
			},
			DialTimeout: dialTimeout,
			Compression: &clickhouse.Compression{
				Method: clickhouse.CompressionLZ4,
				Level:  0,
			},
		})

	if e := db.Ping(); e != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse %s: %w", host, e)
	}

	return db, nil
}

// postgresURL escapes the credentials and database name.
func postgresURL(host, user, password, database string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, password),
		Host:   host + ":5432",
		Path:   "/" + database,
	}

	return u.String()
}

// ConnectPostgres opens a Postgres connection through the pgx driver on port 5432.
func ConnectPostgres(host, user, password, database string) (*sql.DB, error) {
	connectionStr := postgresURL(host, user, password, database)
	var (
		db *sql.DB
		e  error
	)
	if db, e = sql.Open("pgx", connectionStr); e != nil {
		return nil, e
	}

	if e = db.Ping(); e != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres %s: %w", host, e)
	}

	return db, nil
}

// OpenDBSource connects to a database of kind "clickhouse" or "postgres" and reads quantile
// tables from table.
func OpenDBSource(kind, host, user, password, database, table string) (*DBSource, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: bad table name %q", q.ErrMalformedInput, table)
	}

	var (
		db *sql.DB
		e  error
	)
	switch kind {
	case "clickhouse":
		db, e = ConnectClickHouse(host, user, password, database)
	case "postgres":
		db, e = ConnectPostgres(host, user, password, database)
	default:
		return nil, fmt.Errorf("%w: unknown database %q", q.ErrMalformedInput, kind)
	}

	if e != nil {
		return nil, e
	}

	var d *q.Dialect
	if d, e = q.NewDialect(kind, db); e != nil {
		_ = db.Close()
		return nil, e
	}

	var src *DBSource
	if src, e = NewDBSource(d, table); e != nil {
		_ = db.Close()
		return nil, e
	}

	return src, nil
}
