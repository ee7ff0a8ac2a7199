package instance

import "os"

// GetID identifies this process in log streams shared by replicas. It
// prefers the deploy-provided TRYON_INSTANCE_ID, then the pod hostname.
func GetID() string {
	if id := os.Getenv("TRYON_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
