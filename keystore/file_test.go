package keystore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileKeyStore(t *testing.T) {
	t.Run("creates directory if not exists", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "subdir", "keys")

		ks, err := NewFileKeyStore(dir, "password123")
		require.NoError(t, err)
		require.NotNil(t, ks)

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("empty directory", func(t *testing.T) {
		_, err := NewFileKeyStore("", "password123")
		assert.ErrorIs(t, err, ErrIO)
	})

	t.Run("empty password", func(t *testing.T) {
		_, err := NewFileKeyStore(t.TempDir(), "")
		assert.ErrorIs(t, err, ErrIO)
	})

	t.Run("path is a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0600))
		_, err := NewFileKeyStore(path, "password123")
		assert.ErrorIs(t, err, ErrIO)
	})
}

func TestFileKeyStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ks, err := NewFileKeyStore(dir, "test-password")
	require.NoError(t, err)
	defer ks.Close()

	e := testEntry(t, "alice")
	require.NoError(t, ks.Store("alice", e))

	path := filepath.Join(dir, "alice"+keyFileExtension)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(keyFilePermissions), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var data fileKeyData
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, "alice", data.Name)
	assert.Equal(t, testAddress, data.PublicKey)
	assert.NotContains(t, string(raw), testPrivateKey)

	loaded, err := ks.Load("alice")
	require.NoError(t, err)
	assert.Equal(t, e.PrivateKey, loaded.PrivateKey)
	assert.Len(t, loaded.Salt, saltLen)
	assert.Len(t, loaded.Nonce, aesGCMNonceLen)
}

func TestFileKeyStore_WrongPassword(t *testing.T) {
	dir := t.TempDir()
	ks, err := NewFileKeyStore(dir, "right")
	require.NoError(t, err)
	require.NoError(t, ks.Store("alice", testEntry(t, "alice")))
	require.NoError(t, ks.Close())

	other, err := NewFileKeyStore(dir, "wrong")
	require.NoError(t, err)
	defer other.Close()

	_, err = other.Load("alice")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestFileKeyStore_RenamedFile(t *testing.T) {
	dir := t.TempDir()
	ks, err := NewFileKeyStore(dir, "pw")
	require.NoError(t, err)
	defer ks.Close()

	require.NoError(t, ks.Store("alice", testEntry(t, "alice")))
	require.NoError(t, os.Rename(
		filepath.Join(dir, "alice"+keyFileExtension),
		filepath.Join(dir, "mallory"+keyFileExtension),
	))

	// the name is bound as additional data
	_, err = ks.Load("mallory")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestFileKeyStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	ks, err := NewFileKeyStore(dir, "pw")
	require.NoError(t, err)
	defer ks.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad"+keyFileExtension), []byte("{"), 0600))
	_, err = ks.Load("bad")
	assert.ErrorIs(t, err, ErrIO)

	data := fileKeyData{Name: "short", PrivKeyData: "AA==", Salt: "AA==", Nonce: "AA=="}
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "short"+keyFileExtension), raw, 0600))
	_, err = ks.Load("short")
	assert.ErrorIs(t, err, ErrInvalidEncryptionParams)
}

func TestFileKeyStore_ListIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	ks, err := NewFileKeyStore(dir, "pw")
	require.NoError(t, err)
	defer ks.Close()

	require.NoError(t, ks.Store("alice", testEntry(t, "alice")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.key"), 0700))

	names, err := ks.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, names)
}
