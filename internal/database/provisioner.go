// Package database manages per-project relational databases through a
// managed-database operator: it creates the cluster custom resource plus its
// access-control scaffolding, waits for the engine to come up, and resolves
// connection credentials from the generated secret.
package database

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/devforge/devforge/internal/cluster"
	"github.com/devforge/devforge/internal/naming"
)

// Config holds configuration for database provisioning.
type Config struct {
	ClusterDefinition string // operator cluster definition, e.g. "postgresql"
	ComponentVersion  string
	StorageSize       string
	DefaultDatabase   string
	DefaultPort       string
	DefaultUser       string
	PollInterval      time.Duration
	ReadyTimeout      time.Duration
}

// DefaultConfig returns a Config with the operator defaults.
func DefaultConfig() Config {
	return Config{
		ClusterDefinition: "postgresql",
		ComponentVersion:  "postgresql-14.8.0",
		StorageSize:       "10Gi",
		DefaultDatabase:   "postgres",
		DefaultPort:       "5432",
		DefaultUser:       "postgres",
		PollInterval:      3 * time.Second,
		ReadyTimeout:      120 * time.Second,
	}
}

// Provisioner manages database cluster lifecycle.
type Provisioner struct {
	cluster *cluster.Client
	cfg     Config
}

// NewProvisioner creates a database Provisioner over an authenticated
// cluster client.
func NewProvisioner(c *cluster.Client, cfg Config) *Provisioner {
	return &Provisioner{cluster: c, cfg: cfg}
}

// CreateDatabase provisions the named database cluster and blocks until it
// reports ready, bounded by the configured timeout. On timeout it returns
// convention-default credentials rather than an error so project creation
// can proceed; the reconciler corrects the record later if the cluster does
// come up. The caller owns name generation and records it durably before
// calling; addressing is by exact name so projects sharing a display name
// never converge on one cluster. Re-entrant: an existing cluster resource
// with this name is reused, not recreated.
func (p *Provisioner) CreateDatabase(ctx context.Context, clusterName, namespace string) (*Credentials, error) {
	existing, err := p.cluster.GetDatabaseCluster(ctx, namespace, clusterName)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Printf("database %s/%s: cluster already exists, skipping create", namespace, clusterName)
	} else {
		if err := p.ensureRBAC(ctx, namespace, clusterName); err != nil {
			return nil, err
		}
		if err := p.cluster.CreateDatabaseCluster(ctx, p.buildCluster(namespace, clusterName)); err != nil {
			return nil, err
		}
		log.Printf("database %s/%s: created cluster", namespace, clusterName)
	}

	creds, err := p.waitReady(ctx, namespace, clusterName)
	if err != nil {
		return nil, err
	}
	return creds, nil
}

// waitReady polls until the cluster reports phase Running and its credential
// secret exists; the phase can flip before the secret materializes, so both
// are required. On timeout it falls back to convention defaults.
func (p *Provisioner) waitReady(ctx context.Context, namespace, clusterName string) (*Credentials, error) {
	deadline := time.Now().Add(p.cfg.ReadyTimeout)
	for time.Now().Before(deadline) {
		obj, err := p.cluster.GetDatabaseCluster(ctx, namespace, clusterName)
		if err != nil {
			return nil, err
		}
		if obj != nil && cluster.DatabaseClusterPhase(obj) == "Running" {
			creds, err := p.GetCredentials(ctx, clusterName, namespace)
			if err == nil {
				return creds, nil
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.cfg.PollInterval):
		}
	}

	log.Printf("Warning: database %s/%s not ready after %s, using fallback credentials", namespace, clusterName, p.cfg.ReadyTimeout)
	return p.fallbackCredentials(clusterName, namespace), nil
}

// GetCredentials resolves the connection tuple from the cluster's generated
// credential secret, addressed by exact cluster name.
func (p *Provisioner) GetCredentials(ctx context.Context, clusterName, namespace string) (*Credentials, error) {
	secretName := naming.CredentialSecretName(clusterName)
	secret, err := p.cluster.GetSecret(ctx, namespace, secretName)
	if err != nil {
		return nil, err
	}
	if secret == nil {
		return nil, fmt.Errorf("credential secret %s/%s not found", namespace, secretName)
	}

	creds := &Credentials{
		ClusterName: clusterName,
		Host:        string(secret.Data["host"]),
		Port:        string(secret.Data["port"]),
		Database:    string(secret.Data["database"]),
		Username:    string(secret.Data["username"]),
		Password:    string(secret.Data["password"]),
	}
	if creds.Host == "" {
		creds.Host = p.serviceHost(clusterName, namespace)
	}
	if creds.Port == "" {
		creds.Port = p.cfg.DefaultPort
	}
	if creds.Database == "" {
		creds.Database = p.cfg.DefaultDatabase
	}
	return creds, nil
}

// FindCredentials is the legacy lookup path: it scans all database clusters
// in the namespace for one matching the project's naming prefix. Prefer
// GetCredentials with the durably recorded cluster name; this exists for
// records written before cluster names were stored.
func (p *Provisioner) FindCredentials(ctx context.Context, projectName, namespace string) (*Credentials, error) {
	prefix := naming.ClusterPrefix(projectName)
	clusterName, err := p.findByPrefix(ctx, namespace, prefix)
	if err != nil {
		return nil, err
	}
	if clusterName == "" {
		clusters, err := p.cluster.ListDatabaseClusters(ctx, namespace)
		if err != nil {
			return nil, err
		}
		names := make([]string, 0, len(clusters))
		for _, c := range clusters {
			names = append(names, c.GetName())
		}
		return nil, fmt.Errorf("no database cluster matching %q in %s (available: %s)",
			prefix, namespace, strings.Join(names, ", "))
	}
	return p.GetCredentials(ctx, clusterName, namespace)
}

// DeleteDatabase removes the cluster resource; the operator tears down the
// engine and its secret. Called only during full project deletion.
func (p *Provisioner) DeleteDatabase(ctx context.Context, clusterName, namespace string) error {
	deleted, err := p.cluster.DeleteDatabaseCluster(ctx, namespace, clusterName)
	if err != nil {
		return err
	}
	if !deleted {
		log.Printf("Warning: database %s/%s already absent", namespace, clusterName)
	}
	return nil
}

func (p *Provisioner) findByPrefix(ctx context.Context, namespace, prefix string) (string, error) {
	clusters, err := p.cluster.ListDatabaseClusters(ctx, namespace)
	if err != nil {
		return "", err
	}
	for _, c := range clusters {
		if strings.HasPrefix(c.GetName(), prefix+"-") {
			return c.GetName(), nil
		}
	}
	return "", nil
}

func (p *Provisioner) serviceHost(clusterName, namespace string) string {
	return fmt.Sprintf("%s-%s.%s.svc.cluster.local", clusterName, p.cfg.ClusterDefinition, namespace)
}

func (p *Provisioner) fallbackCredentials(clusterName, namespace string) *Credentials {
	return &Credentials{
		ClusterName: clusterName,
		Host:        p.serviceHost(clusterName, namespace),
		Port:        p.cfg.DefaultPort,
		Database:    p.cfg.DefaultDatabase,
		Username:    p.cfg.DefaultUser,
		Password:    p.cfg.DefaultUser,
	}
}
