package database

import "fmt"

// Credentials is the resolved connection tuple for a project database.
type Credentials struct {
	ClusterName string `json:"clusterName"`
	Host        string `json:"host"`
	Port        string `json:"port"`
	Database    string `json:"database"`
	Username    string `json:"username"`
	Password    string `json:"-"`
}

// ConnectionString renders the standard relational connection URL.
func (c Credentials) ConnectionString() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?schema=public",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

// Env returns the environment variables injected into sandboxes that use
// this database.
func (c Credentials) Env() map[string]string {
	return map[string]string{
		"DATABASE_URL": c.ConnectionString(),
		"PGHOST":       c.Host,
		"PGPORT":       c.Port,
		"PGDATABASE":   c.Database,
		"PGUSER":       c.Username,
		"PGPASSWORD":   c.Password,
	}
}
