package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/devforge/devforge/internal/cluster"
	"github.com/devforge/devforge/internal/database"
	"github.com/devforge/devforge/internal/reconcile"
	"github.com/devforge/devforge/internal/sandbox"
	"github.com/devforge/devforge/internal/server"
	"github.com/devforge/devforge/internal/store"
)

var (
	port              int
	dbURL             string
	kubeconfig        string
	namespace         string
	ingressDomain     string
	sandboxImage      string
	reconcileInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the devforge HTTP server",
	Long:  `Start the server that provisions project sandboxes and databases on the cluster and exposes their lifecycle over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Resolve DB URL from flag or env.
		if dbURL == "" {
			dbURL = os.Getenv("DATABASE_URL")
		}
		if dbURL == "" {
			log.Fatal("--db-url or DATABASE_URL is required")
		}
		if kubeconfig == "" {
			kubeconfig = os.Getenv("DEVFORGE_KUBECONFIG")
		}

		// Connect to PostgreSQL.
		db, err := store.Open(dbURL)
		if err != nil {
			log.Fatalf("Database connection failed: %v", err)
		}
		defer db.Close()
		log.Println("Connected to PostgreSQL")

		// Authenticate against the cluster. Missing credentials are fatal.
		clusterClient, err := cluster.New(cluster.Config{KubeconfigPath: kubeconfig})
		if err != nil {
			log.Fatalf("Cluster unavailable: %v", err)
		}

		if ingressDomain == "" {
			ingressDomain = os.Getenv("INGRESS_DOMAIN")
		}
		if ingressDomain == "" {
			ingressDomain, err = clusterClient.IngressDomain()
			if err != nil {
				log.Fatalf("Ingress domain not configured and not derivable: %v", err)
			}
			log.Printf("Derived ingress domain %s from cluster API server", ingressDomain)
		}

		sandboxCfg := sandbox.DefaultConfig()
		if sandboxImage != "" {
			sandboxCfg.Image = sandboxImage
		}
		if err := sandboxCfg.Validate(); err != nil {
			log.Fatalf("Invalid sandbox config: %v", err)
		}

		if err := clusterClient.EnsureNamespace(context.Background(), namespace); err != nil {
			log.Fatalf("Namespace setup failed: %v", err)
		}

		sandboxes := sandbox.NewManager(clusterClient, sandboxCfg)
		databases := database.NewProvisioner(clusterClient, database.DefaultConfig())

		srv := server.New(db, sandboxes, databases, server.Config{
			Namespace:     namespace,
			IngressDomain: ingressDomain,
			DefaultEnv: map[string]string{
				"TERM": "xterm-256color",
			},
		})

		reconciler := reconcile.New(db, sandboxes, reconcileInterval)
		reconciler.Start()
		log.Printf("Status reconciler started (interval: %s)", reconcileInterval)

		addr := fmt.Sprintf(":%d", port)
		httpServer := &http.Server{Addr: addr, Handler: srv.Router()}

		// Graceful shutdown on SIGTERM/SIGINT
		go func() {
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
			sig := <-sigCh
			log.Printf("Received %v, shutting down...", sig)
			reconciler.Stop()
			httpServer.Shutdown(context.Background())
		}()

		log.Printf("Starting devforge on %s (namespace: %s, image: %s)", addr, namespace, sandboxCfg.Image)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&dbURL, "db-url", "", "PostgreSQL connection URL (or use DATABASE_URL env)")
	serveCmd.Flags().StringVar(&kubeconfig, "kubeconfig", "", "Path to cluster credentials (default: in-cluster, then $KUBECONFIG)")
	serveCmd.Flags().StringVar(&namespace, "namespace", "devforge-sandboxes", "Cluster namespace for sandboxes and databases")
	serveCmd.Flags().StringVar(&ingressDomain, "ingress-domain", "", "Domain suffix for sandbox URLs (default: derived from API server)")
	serveCmd.Flags().StringVar(&sandboxImage, "sandbox-image", "", "Container image for sandboxes (must be version-pinned)")
	serveCmd.Flags().DurationVar(&reconcileInterval, "reconcile-interval", 15*time.Second, "How often to sync sandbox status into the database")
}
