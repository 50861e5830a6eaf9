// Package device gives this installation a stable identity.
package device

import (
	"fmt"
	"os"
	"runtime"

	"ledgerdesk/internal/client/credentials"

	"github.com/google/uuid"
)

// Ensure returns the stored device, creating and saving one on first use.
func Ensure(store *credentials.Store) (credentials.Device, error) {
	d := store.Device()
	if d.ID != "" {
		return d, nil
	}
	d = credentials.Device{
		ID:   uuid.NewString(),
		Name: DefaultName(),
	}
	if err := store.SetDevice(d); err != nil {
		return d, fmt.Errorf("saving device identity: %w", err)
	}
	return d, nil
}

// DefaultName is "<hostname> (<os>)".
func DefaultName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown-host"
	}
	return fmt.Sprintf("%s (%s)", host, runtime.GOOS)
}
