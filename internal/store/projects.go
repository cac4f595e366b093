package store

import (
	"database/sql"
	"fmt"
	"time"
)

type Project struct {
	ID            string
	Name          string
	Namespace     string
	SandboxName   sql.NullString
	DBClusterName sql.NullString
	Status        string
	PublicURL     sql.NullString
	TTYDURL       sql.NullString
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const projectColumns = `id, name, namespace, sandbox_name, db_cluster_name, status, public_url, ttyd_url, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (*Project, error) {
	p := &Project{}
	err := row.Scan(&p.ID, &p.Name, &p.Namespace, &p.SandboxName, &p.DBClusterName, &p.Status, &p.PublicURL, &p.TTYDURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// CreateProject inserts a project row in CREATING state. Both generated
// names are recorded up front so every later operation addresses cluster
// resources by exact name.
func (db *DB) CreateProject(id, name, namespace, sandboxName, dbClusterName string) error {
	_, err := db.Exec(
		`INSERT INTO projects (id, name, namespace, sandbox_name, db_cluster_name, status)
		 VALUES ($1, $2, $3, $4, $5, 'CREATING')`,
		id, name, namespace, sandboxName, dbClusterName,
	)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (db *DB) GetProject(id string) (*Project, error) {
	p, err := scanProject(db.QueryRow(
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

func (db *DB) GetProjectBySandboxName(sandboxName string) (*Project, error) {
	p, err := scanProject(db.QueryRow(
		`SELECT `+projectColumns+` FROM projects WHERE sandbox_name = $1`, sandboxName,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project by sandbox name: %w", err)
	}
	return p, nil
}

// ListActiveProjects returns projects whose sandbox has been provisioned,
// the set the reconciler keeps current.
func (db *DB) ListActiveProjects() ([]*Project, error) {
	rows, err := db.Query(
		`SELECT ` + projectColumns + ` FROM projects
		 WHERE sandbox_name IS NOT NULL ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list active projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (db *DB) UpdateProjectStatus(id, status string) error {
	_, err := db.Exec(
		`UPDATE projects SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("update project status: %w", err)
	}
	return nil
}

func (db *DB) SetProjectURLs(id, publicURL, ttydURL string) error {
	_, err := db.Exec(
		`UPDATE projects SET public_url = $2, ttyd_url = $3, updated_at = NOW() WHERE id = $1`,
		id, publicURL, ttydURL,
	)
	if err != nil {
		return fmt.Errorf("set project urls: %w", err)
	}
	return nil
}

func (db *DB) DeleteProject(id string) error {
	_, err := db.Exec("DELETE FROM projects WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}
