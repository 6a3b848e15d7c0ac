package session

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileHolder persists the credential in a file so it outlives the process.
// Write failures leave the in-memory copy authoritative; Err reports the last one.
type FileHolder struct {
	mu    sync.Mutex
	path  string
	token string
	err   error
}

// NewFileHolder loads the credential stored at path, if any
func NewFileHolder(path string) (*FileHolder, error) {
	h := &FileHolder{path: path}
	raw, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	h.token = strings.TrimSpace(string(raw))
	return h, nil
}

func (h *FileHolder) Token() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.token
}

func (h *FileHolder) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.token = token
	if token == "" {
		h.err = os.Remove(h.path)
		if errors.Is(h.err, fs.ErrNotExist) {
			h.err = nil
		}
		return
	}
	if h.err = os.MkdirAll(filepath.Dir(h.path), 0o700); h.err != nil {
		return
	}
	h.err = os.WriteFile(h.path, []byte(token+"\n"), 0o600)
}

func (h *FileHolder) Clear() {
	h.SetToken("")
}

// Err returns the error of the last write, if it failed
func (h *FileHolder) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}
