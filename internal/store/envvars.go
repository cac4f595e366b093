package store

import "fmt"

// ListProjectEnvVars returns the user-supplied environment variables for a
// project, the highest-precedence source of the sandbox environment bag.
func (db *DB) ListProjectEnvVars(projectID string) (map[string]string, error) {
	rows, err := db.Query(
		`SELECT name, value FROM project_env_vars WHERE project_id = $1`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list project env vars: %w", err)
	}
	defer rows.Close()

	env := map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan env var: %w", err)
		}
		env[name] = value
	}
	return env, rows.Err()
}

func (db *DB) SetProjectEnvVar(projectID, name, value string) error {
	_, err := db.Exec(
		`INSERT INTO project_env_vars (project_id, name, value) VALUES ($1, $2, $3)
		 ON CONFLICT (project_id, name) DO UPDATE SET value = EXCLUDED.value`,
		projectID, name, value,
	)
	if err != nil {
		return fmt.Errorf("set project env var: %w", err)
	}
	return nil
}

func (db *DB) DeleteProjectEnvVar(projectID, name string) error {
	_, err := db.Exec(
		`DELETE FROM project_env_vars WHERE project_id = $1 AND name = $2`,
		projectID, name,
	)
	if err != nil {
		return fmt.Errorf("delete project env var: %w", err)
	}
	return nil
}

// ReplaceProjectEnvVars swaps the full variable set in one transaction.
func (db *DB) ReplaceProjectEnvVars(projectID string, env map[string]string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin env var replace: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM project_env_vars WHERE project_id = $1`, projectID); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear project env vars: %w", err)
	}
	for name, value := range env {
		if _, err := tx.Exec(
			`INSERT INTO project_env_vars (project_id, name, value) VALUES ($1, $2, $3)`,
			projectID, name, value,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert env var %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit env var replace: %w", err)
	}
	return nil
}
