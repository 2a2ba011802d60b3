// Package storage provides the persistence backends behind the variable
// engine: a SQLite variable repository, a filesystem profile repository, and
// a system-keyring store for secret values. The resolution engine never
// touches storage directly; contexts are built here and handed to it as
// immutable snapshots.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/navbytes/requestkit/pkg/domain/types"
	"github.com/navbytes/requestkit/pkg/variable"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrVariableNotFound is returned when a variable ID has no row.
var ErrVariableNotFound = errors.New("variable not found")

// SQLiteVariableRepository implements variable persistence using SQLite.
type SQLiteVariableRepository struct {
	db *sql.DB

	// onChange is invoked after every successful mutation, so callers can
	// invalidate resolution caches. A stale cached resolution is a
	// correctness bug for rotated tokens, not a cosmetic one.
	onChange func()
}

// NewSQLiteVariableRepository creates a repository at the default location,
// ~/.requestkit/requestkit.db.
func NewSQLiteVariableRepository() (*SQLiteVariableRepository, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return NewSQLiteVariableRepositoryWithPath(filepath.Join(homeDir, ".requestkit", "requestkit.db"))
}

// NewSQLiteVariableRepositoryWithPath creates a repository with a custom
// database path. Useful for testing.
func NewSQLiteVariableRepositoryWithPath(dbPath string) (*SQLiteVariableRepository, error) {
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := InitializeDatabase(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &SQLiteVariableRepository{db: db}, nil
}

// Close closes the database connection.
func (r *SQLiteVariableRepository) Close() error {
	return r.db.Close()
}

// OnChange registers a callback fired after every mutation. Used to tie
// cache invalidation to variable changes.
func (r *SQLiteVariableRepository) OnChange(fn func()) {
	r.onChange = fn
}

func (r *SQLiteVariableRepository) changed() {
	if r.onChange != nil {
		r.onChange()
	}
}

// Save inserts or updates a variable (matched on ID).
func (r *SQLiteVariableRepository) Save(v *variable.Variable) error {
	if v == nil {
		return errors.New("cannot save nil variable")
	}
	if err := v.Validate(); err != nil {
		return err
	}

	_, err := r.db.Exec(`
		INSERT INTO variables (id, name, value, scope, profile_id, rule_id, is_secret, enabled, description, usage_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			value = excluded.value,
			scope = excluded.scope,
			profile_id = excluded.profile_id,
			rule_id = excluded.rule_id,
			is_secret = excluded.is_secret,
			enabled = excluded.enabled,
			description = excluded.description,
			usage_count = excluded.usage_count,
			updated_at = excluded.updated_at`,
		v.ID.String(), v.Name, v.Value, v.Scope.String(),
		v.ProfileID.String(), v.RuleID.String(),
		v.IsSecret, v.Enabled, v.Description, v.UsageCount,
		v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save variable %q: %w", v.Name, err)
	}

	r.changed()
	return nil
}

// Load retrieves a variable by ID.
func (r *SQLiteVariableRepository) Load(id types.VariableID) (*variable.Variable, error) {
	row := r.db.QueryRow(`
		SELECT id, name, value, scope, profile_id, rule_id, is_secret, enabled, description, usage_count, created_at, updated_at
		FROM variables WHERE id = ?`, id.String())
	return scanVariable(row)
}

// Delete removes a variable by ID.
func (r *SQLiteVariableRepository) Delete(id types.VariableID) error {
	result, err := r.db.Exec("DELETE FROM variables WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete variable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrVariableNotFound, id)
	}

	r.changed()
	return nil
}

// ListByScope returns all variables in a scope. For profile and rule scopes,
// ownerID filters to one owning entity; it is ignored for system and global.
func (r *SQLiteVariableRepository) ListByScope(scope variable.Scope, ownerID string) ([]*variable.Variable, error) {
	if !scope.IsValid() {
		return nil, fmt.Errorf("invalid scope %d", int(scope))
	}

	query := `
		SELECT id, name, value, scope, profile_id, rule_id, is_secret, enabled, description, usage_count, created_at, updated_at
		FROM variables WHERE scope = ?`
	args := []interface{}{scope.String()}

	switch scope {
	case variable.ScopeProfile:
		query += " AND profile_id = ?"
		args = append(args, ownerID)
	case variable.ScopeRule:
		query += " AND rule_id = ?"
		args = append(args, ownerID)
	}
	query += " ORDER BY name"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s variables: %w", scope, err)
	}
	defer func() { _ = rows.Close() }()

	var vars []*variable.Variable
	for rows.Next() {
		v, err := scanVariable(rows)
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}
	return vars, rows.Err()
}

// BuildContext assembles a resolution context from storage: all system and
// global variables, the given profile's variables, and the given rule's
// variables. Empty owner IDs skip their scope.
func (r *SQLiteVariableRepository) BuildContext(profileID types.ProfileID, ruleID types.RuleID, req *variable.RequestContext) (*variable.ResolutionContext, error) {
	ctx := variable.NewResolutionContext()
	ctx.Request = req

	var err error
	if ctx.SystemVariables, err = r.ListByScope(variable.ScopeSystem, ""); err != nil {
		return nil, err
	}
	if ctx.GlobalVariables, err = r.ListByScope(variable.ScopeGlobal, ""); err != nil {
		return nil, err
	}
	if !profileID.IsZero() {
		if ctx.ProfileVariables, err = r.ListByScope(variable.ScopeProfile, profileID.String()); err != nil {
			return nil, err
		}
	}
	if !ruleID.IsZero() {
		if ctx.RuleVariables, err = r.ListByScope(variable.ScopeRule, ruleID.String()); err != nil {
			return nil, err
		}
	}
	return ctx, nil
}

// RecordUsage bumps the informational usage counter without firing the
// change callback, since usage metadata never affects resolution output.
func (r *SQLiteVariableRepository) RecordUsage(id types.VariableID) error {
	_, err := r.db.Exec("UPDATE variables SET usage_count = usage_count + 1 WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanVariable.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanVariable(row scanner) (*variable.Variable, error) {
	var v variable.Variable
	var id, scopeName, profileID, ruleID string

	err := row.Scan(&id, &v.Name, &v.Value, &scopeName, &profileID, &ruleID,
		&v.IsSecret, &v.Enabled, &v.Description, &v.UsageCount, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVariableNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan variable: %w", err)
	}

	v.ID = types.VariableID(id)
	v.ProfileID = types.ProfileID(profileID)
	v.RuleID = types.RuleID(ruleID)

	scope, err := variable.ParseScope(scopeName)
	if err != nil {
		return nil, err
	}
	v.Scope = scope

	return &v, nil
}
