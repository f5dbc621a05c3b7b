// Package neo4j is the graph database driver used by the graph record store.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"time"

	neo4jdrv "github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kailas-cloud/contractdex/internal/db"
)

// Config holds connection parameters for a Neo4j database.
type Config struct {
	URI            string
	Username       string
	Password       string
	Database       string
	MaxPoolSize    int
	ConnectTimeout time.Duration
}

// Client runs Cypher statements in managed transactions and returns rows as maps.
type Client struct {
	driver   neo4jdrv.DriverWithContext
	database string
}

// NewClient creates a driver. Connectivity is checked lazily by Ping / WaitForReady.
func NewClient(cfg Config) (*Client, error) {
	if cfg.URI == "" {
		return nil, errors.New("uri is required")
	}
	if cfg.MaxPoolSize <= 0 {
		cfg.MaxPoolSize = 50
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	driver, err := neo4jdrv.NewDriverWithContext(cfg.URI,
		neo4jdrv.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *neo4jdrv.Config) {
			c.MaxConnectionPoolSize = cfg.MaxPoolSize
			c.SocketConnectTimeout = cfg.ConnectTimeout
		},
	)
	if err != nil {
		return nil, fmt.Errorf("init driver: %w", err)
	}
	return &Client{driver: driver, database: cfg.Database}, nil
}

// Ping verifies connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("verify connectivity: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := c.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Close releases the driver.
func (c *Client) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.driver.Close(ctx)
}

// Read runs a statement in a read transaction.
func (c *Client) Read(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	rows, err := c.run(ctx, false, cypher, params)
	if err != nil {
		return nil, &db.Error{Op: db.OpCypherRead, Err: err}
	}
	return rows, nil
}

// Write runs a statement in a write transaction.
func (c *Client) Write(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	rows, err := c.run(ctx, true, cypher, params)
	if err != nil {
		return nil, &db.Error{Op: db.OpCypherWrite, Err: err}
	}
	return rows, nil
}

func (c *Client) run(ctx context.Context, write bool, cypher string, params map[string]any) ([]map[string]any, error) {
	session := c.driver.NewSession(ctx, neo4jdrv.SessionConfig{DatabaseName: c.database})
	defer session.Close(ctx)

	work := func(tx neo4jdrv.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]map[string]any, len(records))
		for i, r := range records {
			rows[i] = r.AsMap()
		}
		return rows, nil
	}

	var (
		out any
		err error
	)
	if write {
		out, err = session.ExecuteWrite(ctx, work)
	} else {
		out, err = session.ExecuteRead(ctx, work)
	}
	if err != nil {
		return nil, err
	}
	rows, _ := out.([]map[string]any)
	return rows, nil
}
