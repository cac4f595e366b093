package sandbox

import (
	"fmt"
	"os"
	"strings"
)

// Config holds configuration for sandbox workloads.
type Config struct {
	Image            string // container image, must carry an explicit version tag
	MemoryLimit      string
	CPULimit         string
	StorageSize      string
	StorageClassName string
	IngressClassName string
	AppPort          int32 // dev server port inside the container
	TTYDPort         int32 // terminal multiplexer port inside the container
}

// DefaultConfig returns a Config populated from environment variables with
// sensible defaults.
func DefaultConfig() Config {
	return Config{
		Image:            envOrDefault("SANDBOX_IMAGE", "devforge/sandbox:1.4.2"),
		MemoryLimit:      envOrDefault("SANDBOX_MEMORY_LIMIT", "2Gi"),
		CPULimit:         envOrDefault("SANDBOX_CPU_LIMIT", "2"),
		StorageSize:      envOrDefault("SANDBOX_STORAGE_SIZE", "5Gi"),
		StorageClassName: os.Getenv("STORAGE_CLASS"),
		IngressClassName: envOrDefault("INGRESS_CLASS", "nginx"),
		AppPort:          3000,
		TTYDPort:         7681,
	}
}

// Validate rejects configurations that would produce unreproducible
// sandboxes. Floating image tags are the main offender.
func (c Config) Validate() error {
	if c.Image == "" {
		return fmt.Errorf("sandbox image is required")
	}
	tagIdx := strings.LastIndex(c.Image, ":")
	if tagIdx < 0 || strings.Contains(c.Image[tagIdx:], "/") {
		return fmt.Errorf("sandbox image %q has no version tag; pin an explicit version", c.Image)
	}
	if c.Image[tagIdx+1:] == "latest" {
		return fmt.Errorf("sandbox image %q uses the latest tag; pin an explicit version", c.Image)
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
