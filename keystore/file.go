package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"github.com/blockberries/mina-signer-go/crypto"
)

const (
	// PBKDF2 parameters.
	pbkdf2Iterations = 100_000
	pbkdf2KeyLen     = 32 // AES-256
	saltLen          = 16

	aesGCMNonceLen = 12

	keyFileExtension = ".key"

	keyFilePermissions = 0600
	keyDirPermissions  = 0700
)

// FileKeyStore implements KeyStore with one encrypted JSON file per key.
// Private keys are sealed with AES-256-GCM under a PBKDF2-SHA256 key derived
// from the store password and a per-key salt; the key name is bound as
// additional data. Thread-safe via RWMutex.
type FileKeyStore struct {
	dir      string
	password []byte
	mu       sync.RWMutex
	closed   bool
}

// fileKeyData is the JSON structure stored on disk.
type fileKeyData struct {
	Name        string `json:"name"`
	PublicKey   string `json:"public_key"`    // B62... address
	PrivKeyData string `json:"priv_key_data"` // base64, encrypted
	Salt        string `json:"salt"`          // base64
	Nonce       string `json:"nonce"`         // base64
}

// NewFileKeyStore opens (creating if needed) a key directory.
// The password stays in memory until Close.
func NewFileKeyStore(dir string, password string) (*FileKeyStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: directory path is empty", ErrIO)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password cannot be empty", ErrIO)
	}
	if err := os.MkdirAll(dir, keyDirPermissions); err != nil {
		return nil, fmt.Errorf("%w: failed to create directory: %v", ErrIO, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to stat directory: %v", ErrIO, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: path is not a directory", ErrIO)
	}
	return &FileKeyStore{dir: dir, password: []byte(password)}, nil
}

// Store encrypts e and writes it to <dir>/<name>.key.
func (fs *FileKeyStore) Store(name string, e Entry) error {
	if err := ValidateKeyName(name); err != nil {
		return err
	}
	if name != e.Name {
		return ErrKeyNameMismatch
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return ErrClosed
	}

	path := fs.keyFilePath(name)
	if _, err := os.Stat(path); err == nil {
		return ErrKeyExists
	}

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("%w: failed to generate salt: %v", ErrIO, err)
	}
	nonce := make([]byte, aesGCMNonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("%w: failed to generate nonce: %v", ErrIO, err)
	}

	derived := pbkdf2.Key(fs.password, salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	defer crypto.Zeroize(derived)

	ciphertext, err := encryptAESGCM(derived, nonce, e.PrivateKey, []byte(name))
	if err != nil {
		return fmt.Errorf("%w: encryption failed: %v", ErrIO, err)
	}

	data := fileKeyData{
		Name:        name,
		PublicKey:   e.PublicKey,
		PrivKeyData: base64.StdEncoding.EncodeToString(ciphertext),
		Salt:        base64.StdEncoding.EncodeToString(salt),
		Nonce:       base64.StdEncoding.EncodeToString(nonce),
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal key data: %v", ErrIO, err)
	}
	if err := os.WriteFile(path, raw, keyFilePermissions); err != nil {
		return fmt.Errorf("%w: failed to write key file: %v", ErrIO, err)
	}
	return nil
}

// Load reads and decrypts the named key. A wrong password or a tampered file
// both surface as ErrInvalidPassword.
func (fs *FileKeyStore) Load(name string) (Entry, error) {
	if err := ValidateKeyName(name); err != nil {
		return Entry{}, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.closed {
		return Entry{}, ErrClosed
	}

	raw, err := os.ReadFile(fs.keyFilePath(name))
	if os.IsNotExist(err) {
		return Entry{}, ErrKeyNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("%w: failed to read key file: %v", ErrIO, err)
	}

	var data fileKeyData
	if err := json.Unmarshal(raw, &data); err != nil {
		return Entry{}, fmt.Errorf("%w: failed to parse key file: %v", ErrIO, err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(data.PrivKeyData)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: invalid private key encoding: %v", ErrIO, err)
	}
	salt, err := base64.StdEncoding.DecodeString(data.Salt)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: invalid salt encoding: %v", ErrIO, err)
	}
	nonce, err := base64.StdEncoding.DecodeString(data.Nonce)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: invalid nonce encoding: %v", ErrIO, err)
	}
	if len(salt) != saltLen || len(nonce) != aesGCMNonceLen {
		return Entry{}, fmt.Errorf("%w: key file has malformed encryption parameters", ErrInvalidEncryptionParams)
	}

	derived := pbkdf2.Key(fs.password, salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	defer crypto.Zeroize(derived)

	plaintext, err := decryptAESGCM(derived, nonce, ciphertext, []byte(name))
	if err != nil {
		return Entry{}, ErrInvalidPassword
	}

	return Entry{
		Name:       data.Name,
		PublicKey:  data.PublicKey,
		PrivateKey: plaintext,
		Salt:       salt,
		Nonce:      nonce,
	}, nil
}

// Delete removes the key file.
func (fs *FileKeyStore) Delete(name string) error {
	if err := ValidateKeyName(name); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return ErrClosed
	}

	path := fs.keyFilePath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ErrKeyNotFound
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("%w: failed to delete key file: %v", ErrIO, err)
	}
	return nil
}

// List returns the names of all *.key files in the directory.
func (fs *FileKeyStore) List() ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.closed {
		return nil, ErrClosed
	}

	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read directory: %v", ErrIO, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if n := entry.Name(); strings.HasSuffix(n, keyFileExtension) {
			names = append(names, strings.TrimSuffix(n, keyFileExtension))
		}
	}
	return names, nil
}

// Close zeroizes the password. Safe to call multiple times.
func (fs *FileKeyStore) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return nil
	}
	fs.closed = true
	crypto.Zeroize(fs.password)
	fs.password = nil
	return nil
}

func (fs *FileKeyStore) keyFilePath(name string) string {
	return filepath.Join(fs.dir, name+keyFileExtension)
}

func encryptAESGCM(key, nonce, plaintext, additionalData []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead.Seal(nil, nonce, plaintext, additionalData), nil
}

func decryptAESGCM(key, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

var _ KeyStore = (*FileKeyStore)(nil)
