package tokenstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sampleTokens(now time.Time) Tokens {
	return Tokens{
		AccessToken:      "AT1",
		RefreshToken:     "RT1",
		AccessExpiresAt:  now.Add(DefaultAccessTTL),
		RefreshExpiresAt: now.Add(DefaultRefreshTTL),
	}
}

func TestMemory_SaveLoadClear(t *testing.T) {
	t.Parallel()

	st := NewMemory()
	now := time.Now()

	require.NoError(t, st.Save(sampleTokens(now)))

	got, err := st.Load()
	require.NoError(t, err)
	require.Equal(t, "AT1", got.AccessToken)
	require.Equal(t, "RT1", got.RefreshToken)

	require.NoError(t, st.Clear())

	got, err = st.Load()
	require.NoError(t, err)
	require.Empty(t, got.AccessToken)
	require.Empty(t, got.RefreshToken)
}

// Просроченная запись читается как отсутствующая, причём записи
// живут независимо: истёкший access не трогает refresh.
func TestMemory_ExpiredEntryReadsAsAbsent(t *testing.T) {
	t.Parallel()

	st := NewMemory()
	now := time.Now()
	st.now = func() time.Time { return now.Add(25 * time.Hour) }

	require.NoError(t, st.Save(sampleTokens(now)))

	got, err := st.Load()
	require.NoError(t, err)
	require.Empty(t, got.AccessToken)
	require.Equal(t, "RT1", got.RefreshToken)
}

func TestFile_SaveLoadClear(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "tokens.json")
	st := NewFile(path)
	now := time.Now()

	require.NoError(t, st.Save(sampleTokens(now)))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := st.Load()
	require.NoError(t, err)
	require.Equal(t, "AT1", got.AccessToken)
	require.Equal(t, "RT1", got.RefreshToken)

	require.NoError(t, st.Clear())

	got, err = st.Load()
	require.NoError(t, err)
	require.Empty(t, got.RefreshToken)
}

func TestFile_MissingFileIsEmptyPair(t *testing.T) {
	t.Parallel()

	st := NewFile(filepath.Join(t.TempDir(), "absent.json"))

	got, err := st.Load()
	require.NoError(t, err)
	require.Empty(t, got.AccessToken)

	// Clear по отсутствующему файлу — не ошибка.
	require.NoError(t, st.Clear())
}

func TestFile_ExpiredRefreshDropped(t *testing.T) {
	t.Parallel()

	st := NewFile(filepath.Join(t.TempDir(), "tokens.json"))
	now := time.Now()
	st.now = func() time.Time { return now.Add(8 * 24 * time.Hour) }

	require.NoError(t, st.Save(sampleTokens(now)))

	got, err := st.Load()
	require.NoError(t, err)
	require.Empty(t, got.AccessToken)
	require.Empty(t, got.RefreshToken)
}
