package flow

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver
)

// catalog is the registry's durable index of known flows: their UUID,
// the directory holding their log file, the schema they're bound to,
// and a monotonic version counter bumped on every successful mutation
// (used to invalidate the façade's materialization cache without
// re-reading the whole log on every read_materialized call).
type catalog struct {
	mu sync.Mutex
	db *sql.DB
}

func openCatalog(path string) (*catalog, error) {
	var db, err = sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening catalog %s: %v", ErrIoFailure, path, err)
	}
	var c = &catalog{db: db}
	if err := c.migrate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *catalog) migrate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var _, err = c.db.Exec(`
		CREATE TABLE IF NOT EXISTS flows (
			flow_id TEXT PRIMARY KEY,
			log_path TEXT NOT NULL,
			schema TEXT NOT NULL,
			version INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("%w: migrating catalog: %v", ErrIoFailure, err)
	}
	return nil
}

// register inserts a new flow row, or is a no-op if flowID is already
// registered (the existing row's logPath and schema are kept).
func (c *catalog) register(flowID, logPath, schemaName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var _, err = c.db.Exec(
		`INSERT OR IGNORE INTO flows (flow_id, log_path, schema, version) VALUES (?, ?, ?, 0)`,
		flowID, logPath, schemaName,
	)
	if err != nil {
		return fmt.Errorf("%w: registering flow %s: %v", ErrIoFailure, flowID, err)
	}
	return nil
}

// setSchema updates flowID's bound schema, used by Init to bind (or
// rebind) the schema of a flow that Open may have already auto-vivified
// with an unset schema.
func (c *catalog) setSchema(flowID, schemaName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var _, err = c.db.Exec(`UPDATE flows SET schema = ? WHERE flow_id = ?`, schemaName, flowID)
	if err != nil {
		return fmt.Errorf("%w: setting schema for flow %s: %v", ErrIoFailure, flowID, err)
	}
	return nil
}

type flowRow struct {
	LogPath string
	Schema  string
	Version int64
}

func (c *catalog) lookup(flowID string) (flowRow, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var row flowRow
	var err = c.db.QueryRow(
		`SELECT log_path, schema, version FROM flows WHERE flow_id = ?`, flowID,
	).Scan(&row.LogPath, &row.Schema, &row.Version)
	if err == sql.ErrNoRows {
		return flowRow{}, false, nil
	}
	if err != nil {
		return flowRow{}, false, fmt.Errorf("%w: looking up flow %s: %v", ErrIoFailure, flowID, err)
	}
	return row, true, nil
}

// bumpVersion increments flowID's version counter, returning the new value.
func (c *catalog) bumpVersion(flowID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var _, err = c.db.Exec(`UPDATE flows SET version = version + 1 WHERE flow_id = ?`, flowID)
	if err != nil {
		return 0, fmt.Errorf("%w: bumping version for flow %s: %v", ErrIoFailure, flowID, err)
	}
	var version int64
	if err := c.db.QueryRow(`SELECT version FROM flows WHERE flow_id = ?`, flowID).Scan(&version); err != nil {
		return 0, fmt.Errorf("%w: reading version for flow %s: %v", ErrIoFailure, flowID, err)
	}
	return version, nil
}

func (c *catalog) forget(flowID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var _, err = c.db.Exec(`DELETE FROM flows WHERE flow_id = ?`, flowID)
	if err != nil {
		return fmt.Errorf("%w: forgetting flow %s: %v", ErrIoFailure, flowID, err)
	}
	return nil
}

func (c *catalog) list() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var rows, err = c.db.Query(`SELECT flow_id FROM flows`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing flows: %v", ErrIoFailure, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scanning flow row: %v", ErrIoFailure, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func (c *catalog) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("%w: closing catalog: %v", ErrIoFailure, err)
	}
	return nil
}
