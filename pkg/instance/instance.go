// Package instance names the running process in logs and lock tokens.
package instance

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// EnvID overrides the derived name, e.g. with a pod name.
const EnvID = "REPAIRDESK_INSTANCE_ID"

var current = sync.OnceValue(func() string { return resolve(os.Getenv, os.Hostname, os.Getpid()) })

// GetID is stable for the life of the process.
func GetID() string {
	return current()
}

func resolve(getenv func(string) string, hostname func() (string, error), pid int) string {
	if id := strings.TrimSpace(getenv(EnvID)); id != "" {
		return id
	}
	host, err := hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d", host, pid)
}
