package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// File — JSON-файл в пользовательском конфиг-каталоге (0600).
// Для окружений без системного keyring.
type File struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

var _ Store = (*File)(nil)

type fileTokens struct {
	AccessToken      string    `json:"accessToken,omitempty"`
	RefreshToken     string    `json:"refreshToken,omitempty"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt,omitempty"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt,omitempty"`
}

// NewFile создаёт хранилище по явному пути.
func NewFile(path string) *File {
	return &File{path: path, now: time.Now}
}

// NewFileDefault размещает файл в os.UserConfigDir()/telemed/tokens.json.
func NewFileDefault() (*File, error) {
	const op = "tokenstore.NewFileDefault"

	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewFile(filepath.Join(dir, "telemed", "tokens.json")), nil
}

func (f *File) Save(t Tokens) error {
	const op = "tokenstore.File.Save"

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	data, err := json.Marshal(fileTokens(t))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (f *File) Load() (Tokens, error) {
	const op = "tokenstore.File.Load"

	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		// Отсутствующий файл — пустая пара, не ошибка.
		if errors.Is(err, fs.ErrNotExist) {
			return Tokens{}, nil
		}
		return Tokens{}, fmt.Errorf("%s: %w", op, err)
	}

	var ft fileTokens
	if err := json.Unmarshal(data, &ft); err != nil {
		return Tokens{}, fmt.Errorf("%s: %w", op, err)
	}

	return prune(Tokens(ft), f.now()), nil
}

func (f *File) Clear() error {
	const op = "tokenstore.File.Clear"

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
