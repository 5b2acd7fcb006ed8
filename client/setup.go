package client

import (
	"fmt"
	"os"

	"cosmossdk.io/log"
	dbm "github.com/cosmos/cosmos-db"

	"github.com/blockberries/mina-signer-go/config"
	"github.com/blockberries/mina-signer-go/keystore"
	"github.com/blockberries/mina-signer-go/store"
)

// logOutput receives logs of clients built by New without WithLogger.
var logOutput = os.Stderr

// journalDBName is the goleveldb database name under JournalConfig.Dir.
const journalDBName = "journal"

// openKeyStore returns nil for the none backend.
func openKeyStore(cfg config.KeystoreConfig) (keystore.KeyStore, error) {
	var (
		ks  keystore.KeyStore
		err error
	)
	switch cfg.Backend {
	case "", config.BackendNone:
		return nil, nil
	case config.BackendMemory:
		ks = keystore.NewMemoryKeyStore()
	case config.BackendFile:
		password := os.Getenv(cfg.PasswordEnv)
		if password == "" {
			return nil, fmt.Errorf("%w: %s is not set", config.ErrInvalidConfig, cfg.PasswordEnv)
		}
		ks, err = keystore.NewFileKeyStore(cfg.Dir, password)
	case config.BackendKeychain:
		service := cfg.Service
		if service == "" {
			service = config.DefaultKeychainService
		}
		ks, err = keystore.NewKeychainStore(service)
	default:
		return nil, fmt.Errorf("%w: keystore.backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if cfg.CacheSize > 0 {
		ks = keystore.NewCachingKeyStore(ks, cfg.CacheSize)
	}
	return ks, nil
}

// openJournal returns nil for the none backend.
func openJournal(cfg config.JournalConfig, logger log.Logger) (*store.Journal, error) {
	var backing store.BackingStore
	switch cfg.Backend {
	case "", config.BackendNone:
		return nil, nil
	case config.BackendMemory:
		backing = store.NewMemoryStore()
	case config.BackendIAVL:
		var db dbm.DB = dbm.NewMemDB()
		if cfg.Dir != "" {
			var err error
			if db, err = dbm.NewDB(journalDBName, dbm.GoLevelDBBackend, cfg.Dir); err != nil {
				return nil, err
			}
		}
		tree, err := store.NewIAVLStore(db, cfg.CacheSize, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		backing = tree
	default:
		return nil, fmt.Errorf("%w: journal.backend %q", config.ErrInvalidConfig, cfg.Backend)
	}
	return store.NewJournal(backing, store.WithLogger(logger))
}
