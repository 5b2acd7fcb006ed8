package keystore

import (
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/blockberries/mina-signer-go/crypto"
)

const (
	testPrivateKey = "EKFKgDtU3rcuFTVSEpmpXSkukjmX4cKefYREi6Sdsk7E7wsT7KRw"
	testAddress    = "B62qiy32p8kAKnny8ZFwoMhYpBppM1DWVCqAPBYNcXnsAHhnfAAuXgg"
)

func TestMain(m *testing.M) {
	keyring.MockInit()
	os.Exit(m.Run())
}

func testEntry(t *testing.T, name string) Entry {
	t.Helper()
	sk, err := crypto.PrivateKeyFromBase58(testPrivateKey)
	require.NoError(t, err)
	return NewEntry(name, crypto.NewKeypair(sk))
}

func TestValidateKeyName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "alice", false},
		{"with dash and digits", "validator-01", false},
		{"with dots inside", "alice.backup", false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", MaxKeyNameLength+1), true},
		{"max length", strings.Repeat("a", MaxKeyNameLength), false},
		{"slash", "a/b", true},
		{"backslash", `a\b`, true},
		{"comma", "a,b", true},
		{"traversal", "..", true},
		{"embedded traversal", "a..b", true},
		{"leading dot", ".hidden", true},
		{"leading underscore", "_keylist", true},
		{"control character", "a\nb", true},
		{"delete character", "a\x7fb", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKeyName(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKeyName)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEntry_Keypair(t *testing.T) {
	e := testEntry(t, "alice")
	assert.Equal(t, testAddress, e.PublicKey)
	assert.Len(t, e.PrivateKey, 32)

	kp, err := e.Keypair()
	require.NoError(t, err)
	assert.Equal(t, testPrivateKey, kp.Private.Base58())
	assert.Equal(t, testAddress, kp.Public.Address())

	t.Run("mismatched public key", func(t *testing.T) {
		bad := e.clone()
		bad.PublicKey = "B62qmVz7pPiLXPvz2nPkuK3K5akjrePAVtdBVMfeyixrccgqKTQte8K"
		_, err := bad.Keypair()
		assert.ErrorIs(t, err, crypto.ErrInvalidKey)
	})

	t.Run("short private key", func(t *testing.T) {
		bad := e.clone()
		bad.PrivateKey = bad.PrivateKey[:31]
		_, err := bad.Keypair()
		assert.ErrorIs(t, err, crypto.ErrInvalidKey)
	})
}

func TestEntry_Wipe(t *testing.T) {
	e := testEntry(t, "alice")
	e.Salt = make([]byte, saltLen)
	e.Salt[0] = 1
	e.Wipe()
	assert.Equal(t, make([]byte, 32), e.PrivateKey)
	assert.Equal(t, make([]byte, saltLen), e.Salt)
}

func TestEntry_ValidateEncryptionParams(t *testing.T) {
	e := testEntry(t, "alice")
	assert.NoError(t, e.ValidateEncryptionParams())

	e.Salt = make([]byte, saltLen)
	assert.ErrorIs(t, e.ValidateEncryptionParams(), ErrInvalidEncryptionParams)

	e.Nonce = make([]byte, aesGCMNonceLen)
	assert.NoError(t, e.ValidateEncryptionParams())

	e.Salt = make([]byte, 8)
	assert.ErrorIs(t, e.ValidateEncryptionParams(), ErrInvalidEncryptionParams)
}

// backends runs the shared contract against every KeyStore implementation.
func backends(t *testing.T) map[string]func(t *testing.T) KeyStore {
	return map[string]func(t *testing.T) KeyStore{
		"memory": func(t *testing.T) KeyStore {
			return NewMemoryKeyStore()
		},
		"file": func(t *testing.T) KeyStore {
			ks, err := NewFileKeyStore(t.TempDir(), "test-password")
			require.NoError(t, err)
			return ks
		},
		"keychain": func(t *testing.T) KeyStore {
			ks, err := NewKeychainStore("mina-signer-test-" + strings.ReplaceAll(t.Name(), "/", "-"))
			require.NoError(t, err)
			return ks
		},
		"caching": func(t *testing.T) KeyStore {
			return NewCachingKeyStore(NewMemoryKeyStore(), 2)
		},
	}
}

func TestKeyStore_Contract(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Run("store and load", func(t *testing.T) {
				ks := open(t)
				defer ks.Close()

				require.NoError(t, ks.Store("alice", testEntry(t, "alice")))
				got, err := ks.Load("alice")
				require.NoError(t, err)
				assert.Equal(t, "alice", got.Name)
				assert.Equal(t, testAddress, got.PublicKey)

				kp, err := got.Keypair()
				require.NoError(t, err)
				assert.Equal(t, testPrivateKey, kp.Private.Base58())
			})

			t.Run("duplicate", func(t *testing.T) {
				ks := open(t)
				defer ks.Close()

				require.NoError(t, ks.Store("alice", testEntry(t, "alice")))
				assert.ErrorIs(t, ks.Store("alice", testEntry(t, "alice")), ErrKeyExists)
			})

			t.Run("name mismatch", func(t *testing.T) {
				ks := open(t)
				defer ks.Close()
				assert.ErrorIs(t, ks.Store("bob", testEntry(t, "alice")), ErrKeyNameMismatch)
			})

			t.Run("invalid name", func(t *testing.T) {
				ks := open(t)
				defer ks.Close()
				assert.ErrorIs(t, ks.Store("../etc", testEntry(t, "../etc")), ErrInvalidKeyName)
			})

			t.Run("missing", func(t *testing.T) {
				ks := open(t)
				defer ks.Close()

				_, err := ks.Load("nobody")
				assert.ErrorIs(t, err, ErrKeyNotFound)
				assert.ErrorIs(t, ks.Delete("nobody"), ErrKeyNotFound)
			})

			t.Run("list and delete", func(t *testing.T) {
				ks := open(t)
				defer ks.Close()

				require.NoError(t, ks.Store("alice", testEntry(t, "alice")))
				require.NoError(t, ks.Store("bob", testEntry(t, "bob")))

				names, err := ks.List()
				require.NoError(t, err)
				assert.ElementsMatch(t, []string{"alice", "bob"}, names)

				require.NoError(t, ks.Delete("alice"))
				_, err = ks.Load("alice")
				assert.ErrorIs(t, err, ErrKeyNotFound)

				names, err = ks.List()
				require.NoError(t, err)
				assert.Equal(t, []string{"bob"}, names)
			})

			t.Run("loaded copy is independent", func(t *testing.T) {
				ks := open(t)
				defer ks.Close()

				require.NoError(t, ks.Store("alice", testEntry(t, "alice")))
				first, err := ks.Load("alice")
				require.NoError(t, err)
				first.Wipe()

				second, err := ks.Load("alice")
				require.NoError(t, err)
				_, err = second.Keypair()
				assert.NoError(t, err)
			})

			t.Run("closed", func(t *testing.T) {
				ks := open(t)
				require.NoError(t, ks.Close())
				require.NoError(t, ks.Close())

				assert.ErrorIs(t, ks.Store("alice", testEntry(t, "alice")), ErrClosed)
				_, err := ks.Load("alice")
				assert.ErrorIs(t, err, ErrClosed)
				_, err = ks.List()
				assert.ErrorIs(t, err, ErrClosed)
			})
		})
	}
}

func TestKeyStore_Concurrent(t *testing.T) {
	ks := NewCachingKeyStore(NewMemoryKeyStore(), 4)
	defer ks.Close()

	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, n := range names {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			assert.NoError(t, ks.Store(n, testEntry(t, n)))
			for i := 0; i < 10; i++ {
				_, err := ks.Load(n)
				assert.NoError(t, err)
			}
		}(n)
	}
	wg.Wait()

	list, err := ks.List()
	require.NoError(t, err)
	assert.Len(t, list, len(names))
	assert.LessOrEqual(t, ks.Len(), 4)
}
