package database

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Client holds the database connection
type Client struct {
	DB     *sqlx.DB
	driver string
}

// NewClient connects to Postgres and applies the embedded schema
func NewClient(databaseURL string) (*Client, error) {
	return Open("postgres", databaseURL)
}

// Open connects with an explicit driver. Tests open "sqlite3" against an
// in-memory database; production always uses "postgres".
func Open(driver, dsn string) (*Client, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed opening connection to %s: %w", driver, err)
	}

	c := &Client{DB: db, driver: driver}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed applying schema: %w", err)
	}

	log.Println("✅ Database connected and migrations applied")
	return c, nil
}

// Driver returns the active sql driver name
func (c *Client) Driver() string {
	return c.driver
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.DB.Close()
}

// Ping checks if the database is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// migrate applies the embedded schema statement by statement
func (c *Client) migrate() error {
	for _, stmt := range strings.Split(schemaFor(c.driver), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := c.DB.Exec(stmt); err != nil {
			return fmt.Errorf("statement %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i > 0 {
		return s[:i]
	}
	return s
}
