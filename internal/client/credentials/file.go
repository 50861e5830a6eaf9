package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend stores State as JSON readable only by the owner.
type FileBackend struct {
	Path string
}

// DefaultPath returns $LEDGERDESK_CREDENTIALS, else
// $XDG_CONFIG_HOME/ledgerdesk/credentials.json.
func DefaultPath() string {
	if p := os.Getenv("LEDGERDESK_CREDENTIALS"); p != "" {
		return p
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "ledgerdesk-credentials.json")
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "ledgerdesk", "credentials.json")
}

func (f FileBackend) Load() (*State, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading credentials %s: %w", f.Path, err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing credentials %s: %w", f.Path, err)
	}
	return &st, nil
}

// Save writes atomically through a temp file in the same directory.
func (f FileBackend) Save(st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating credentials directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("creating temp credentials: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.Path)
}
