package store

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"cosmossdk.io/log"
	ics23 "github.com/cosmos/ics23/go"

	"github.com/blockberries/mina-signer-go/types"
)

// recordPrefix namespaces journal entries in the backing store.
var recordPrefix = []byte("tx/")

// Kind is the command kind of a record.
type Kind string

const (
	KindPayment         Kind = "payment"
	KindStakeDelegation Kind = "stake_delegation"
)

// Record is one signed command.
type Record struct {
	// ID is the transaction id: 64 lowercase hex characters.
	ID        string          `json:"id"`
	Kind      Kind            `json:"kind"`
	Network   types.NetworkID `json:"network"`
	Signer    string          `json:"signer"`
	Signature string          `json:"signature"`
	// Command is the signed-command JSON.
	Command json.RawMessage `json:"command"`
}

// Validate checks the id format and the required members.
func (r *Record) Validate() error {
	if len(r.ID) != 64 {
		return fmt.Errorf("%w: transaction id must be 64 hex characters", ErrInvalidKey)
	}
	if _, err := hex.DecodeString(r.ID); err != nil {
		return fmt.Errorf("%w: transaction id: %v", ErrInvalidKey, err)
	}
	if r.Kind != KindPayment && r.Kind != KindStakeDelegation {
		return fmt.Errorf("%w: unknown record kind %q", types.ErrMalformedInput, r.Kind)
	}
	if !r.Network.IsValid() {
		return fmt.Errorf("%w: %s", types.ErrUnknownNetwork, r.Network)
	}
	if r.Signer == "" || r.Signature == "" {
		return fmt.Errorf("%w: record needs signer and signature", types.ErrMalformedInput)
	}
	return nil
}

func recordKey(id string) []byte {
	key := make([]byte, 0, len(recordPrefix)+len(id))
	key = append(key, recordPrefix...)
	return append(key, id...)
}

// prefixEnd returns the exclusive upper bound of keys starting with prefix.
func prefixEnd(prefix []byte) []byte {
	end := clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// JournalOption configures a Journal.
type JournalOption func(*Journal)

// WithLogger sets the journal logger.
func WithLogger(logger log.Logger) JournalOption {
	return func(j *Journal) { j.logger = logger }
}

// Journal records signed commands by transaction id. Recording the same
// command twice is a no-op; a different command under a recorded id is
// ErrConflict.
type Journal struct {
	mu      sync.Mutex
	backing BackingStore
	codec   Serializer[Record]
	logger  log.Logger
}

// NewJournal wraps backing.
func NewJournal(backing BackingStore, opts ...JournalOption) (*Journal, error) {
	if backing == nil {
		return nil, ErrStoreNil
	}
	j := &Journal{
		backing: backing,
		codec:   NewJSONSerializer[Record](),
		logger:  log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Put records rec and flushes the backing store.
func (j *Journal) Put(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	value, err := j.codec.Marshal(rec)
	if err != nil {
		return err
	}
	key := recordKey(rec.ID)

	j.mu.Lock()
	defer j.mu.Unlock()

	existing, err := j.backing.Get(key)
	switch {
	case err == nil:
		if bytes.Equal(existing, value) {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrConflict, rec.ID)
	case !errors.Is(err, ErrNotFound):
		return err
	}

	if err := j.backing.Set(key, value); err != nil {
		return err
	}
	if err := j.backing.Flush(); err != nil {
		return err
	}
	j.logger.Debug("recorded signed command", "id", rec.ID, "kind", string(rec.Kind), "network", rec.Network.String())
	return nil
}

// Get returns the record for id, or ErrNotFound.
func (j *Journal) Get(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	value, err := j.backing.Get(recordKey(id))
	if err != nil {
		return Record{}, err
	}
	return j.codec.Unmarshal(value)
}

// Has reports whether id is recorded.
func (j *Journal) Has(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return j.backing.Has(recordKey(id))
}

// List returns every record in transaction-id order.
func (j *Journal) List(ctx context.Context) ([]Record, error) {
	it, err := j.backing.Iterator(recordPrefix, prefixEnd(recordPrefix))
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []Record
	for ; it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := j.codec.Unmarshal(it.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, it.Error()
}

// Proof binds a record to the journal root at a saved version.
type Proof struct {
	Root    []byte
	Version int64
	Key     []byte
	Value   []byte
	Proof   *ics23.CommitmentProof
}

// Verify checks the membership proof.
func (p *Proof) Verify() bool {
	return p != nil && VerifyMembership(p.Root, p.Proof, p.Key, p.Value)
}

// Prove returns a membership proof for id. Only IAVL-backed journals can
// prove; others return ErrProofUnsupported.
func (j *Journal) Prove(ctx context.Context, id string) (*Proof, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tree, ok := j.backing.(*IAVLStore)
	if !ok {
		return nil, ErrProofUnsupported
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	key := recordKey(id)
	value, err := tree.Get(key)
	if err != nil {
		return nil, err
	}
	proof, err := tree.Proof(key)
	if err != nil {
		return nil, err
	}
	return &Proof{
		Root:    tree.Hash(),
		Version: tree.Version(),
		Key:     key,
		Value:   value,
		Proof:   proof,
	}, nil
}

// Close closes the backing store.
func (j *Journal) Close() error {
	return j.backing.Close()
}
