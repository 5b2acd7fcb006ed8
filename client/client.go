// Package client binds the signer to one network. A Client hashes, signs and
// verifies payments, stake delegations and string messages, converts Rosetta
// envelopes, and optionally records every signed command in a journal.
package client

import (
	"context"
	"fmt"

	"cosmossdk.io/log"

	"github.com/blockberries/mina-signer-go/config"
	"github.com/blockberries/mina-signer-go/crypto"
	"github.com/blockberries/mina-signer-go/hasher"
	"github.com/blockberries/mina-signer-go/keystore"
	"github.com/blockberries/mina-signer-go/poseidon"
	"github.com/blockberries/mina-signer-go/rosetta"
	"github.com/blockberries/mina-signer-go/store"
	"github.com/blockberries/mina-signer-go/transaction"
	"github.com/blockberries/mina-signer-go/types"
)

// ModuleName is the value of the "module" key on every log line.
const ModuleName = "mina-signer"

// Client is immutable after construction and safe for concurrent use.
type Client struct {
	network     types.NetworkID
	hasher      *hasher.Hasher
	schnorr     *crypto.Schnorr
	logger      log.Logger
	keyring     *keystore.Keyring
	journal     *store.Journal
	concurrency int
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHasher replaces the Poseidon hasher, for example with one built from a
// published parameter table. It takes precedence over hasher.params_file.
func WithHasher(h *hasher.Hasher) Option {
	return func(c *Client) { c.hasher = h }
}

// WithKeyring attaches named keys. Signers returned by Client.Signer come
// from it.
func WithKeyring(kr *keystore.Keyring) Option {
	return func(c *Client) { c.keyring = kr }
}

// WithJournal records every successful payment and delegation signature.
func WithJournal(j *store.Journal) Option {
	return func(c *Client) { c.journal = j }
}

// WithConcurrency bounds the goroutines used by batch verification. Zero or
// less means one per item.
func WithConcurrency(n int) Option {
	return func(c *Client) { c.concurrency = n }
}

// NewWithNetwork returns a client for "mainnet" or "testnet" with no keyring
// and no journal unless options supply them.
func NewWithNetwork(network string, opts ...Option) (*Client, error) {
	id, err := types.ParseNetworkID(network)
	if err != nil {
		return nil, err
	}
	return newClient(id, opts)
}

// New returns a client built from cfg. Options take precedence over the
// keystore, journal and logging sections.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	id, err := cfg.NetworkID()
	if err != nil {
		return nil, err
	}

	c := &Client{network: id}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		if c.logger, err = cfg.Logging.NewLogger(logOutput); err != nil {
			return nil, err
		}
	}
	if c.hasher == nil && cfg.Hasher.ParamsFile != "" {
		params, err := poseidon.LoadLegacyParamsFile(cfg.Hasher.ParamsFile)
		if err != nil {
			return nil, fmt.Errorf("load poseidon table: %w", err)
		}
		c.hasher = hasher.New(params)
	}
	c.finish()

	if c.keyring == nil {
		ks, err := openKeyStore(cfg.Keystore)
		if err != nil {
			return nil, fmt.Errorf("open keystore: %w", err)
		}
		if ks != nil {
			c.keyring = keystore.NewKeyring(ks, keystore.WithSchnorr(c.schnorr))
		}
	}
	if c.journal == nil {
		j, err := openJournal(cfg.Journal, c.logger)
		if err != nil {
			c.closeKeyring()
			return nil, fmt.Errorf("open journal: %w", err)
		}
		c.journal = j
	}

	c.logger.Info("client ready",
		"network", id.String(),
		"keystore", cfg.Keystore.Backend,
		"journal", cfg.Journal.Backend,
	)
	return c, nil
}

func newClient(id types.NetworkID, opts []Option) (*Client, error) {
	c := &Client{network: id}
	for _, opt := range opts {
		opt(c)
	}
	c.finish()
	c.logger.Info("client ready", "network", id.String())
	return c, nil
}

// finish fills defaults left unset by options.
func (c *Client) finish() {
	if c.logger == nil {
		c.logger = log.NewNopLogger()
	}
	c.logger = c.logger.With("module", ModuleName)
	if c.hasher == nil {
		c.hasher = hasher.Default()
	}
	c.schnorr = crypto.NewSchnorr(c.hasher)
	if c.BuiltinParams() {
		c.logger.Info("using built-in poseidon constants, signatures will not verify on Mina nodes")
	}
}

// BuiltinParams reports whether the client hashes with the built-in derived
// Poseidon table rather than a loaded one.
func (c *Client) BuiltinParams() bool {
	return c.hasher.Params() == poseidon.Legacy()
}

// Network returns the network fixed at construction.
func (c *Client) Network() types.NetworkID { return c.network }

// Keyring returns the attached keyring, or nil.
func (c *Client) Keyring() *keystore.Keyring { return c.keyring }

// Journal returns the attached journal, or nil.
func (c *Client) Journal() *store.Journal { return c.journal }

// Close releases the keyring and the journal.
func (c *Client) Close() error {
	kerr := c.closeKeyring()
	if c.journal != nil {
		if err := c.journal.Close(); err != nil {
			return err
		}
	}
	return kerr
}

func (c *Client) closeKeyring() error {
	if c.keyring == nil {
		return nil
	}
	return c.keyring.Close()
}

// ============================================================================
// Keys
// ============================================================================

// GenKeys draws a fresh keypair.
func (c *Client) GenKeys() (*crypto.Keypair, error) {
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		c.logger.Debug("key generation failed", "err", err)
		return nil, err
	}
	return kp, nil
}

// DerivePublicKey returns the address of privateKey, given in base58 or hex.
func (c *Client) DerivePublicKey(privateKey string) (string, error) {
	sk, err := crypto.ParsePrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	defer sk.Zeroize()
	return sk.PublicKey().Address(), nil
}

// VerifyKeypair reports whether kp's public key is its private key times G.
func (c *Client) VerifyKeypair(kp *crypto.Keypair) bool {
	return kp.Verify()
}

// PublicKeyToRaw returns the raw hex form of an address.
func (c *Client) PublicKeyToRaw(address string) (string, error) {
	return crypto.PublicKeyToRaw(address)
}

// Signer returns a signer for the named keyring entry.
func (c *Client) Signer(name string) (crypto.Signer, error) {
	if c.keyring == nil {
		return nil, fmt.Errorf("%w: client has no keyring", keystore.ErrKeyNotFound)
	}
	return c.keyring.GetKey(name)
}

func (c *Client) signer(privateKey string) (crypto.Signer, error) {
	sk, err := crypto.ParsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	return crypto.NewSigner(sk, c.schnorr), nil
}

// ============================================================================
// Messages
// ============================================================================

// SignMessage signs message with privateKey.
func (c *Client) SignMessage(message, privateKey string) (*transaction.SignedMessage, error) {
	s, err := c.signer(privateKey)
	if err != nil {
		return nil, err
	}
	return c.SignMessageWith(s, message)
}

// SignMessageWith signs message with s.
func (c *Client) SignMessageWith(s crypto.Signer, message string) (*transaction.SignedMessage, error) {
	m := transaction.Message{PublicKey: s.PublicKey().Address(), Message: message}
	sig, err := s.Sign(&m, c.network)
	if err != nil {
		c.logger.Debug("sign failed", "op", "sign_message", "err", err)
		return nil, err
	}
	return transaction.NewSignedMessage(m, sig), nil
}

// VerifyMessage checks sm. A wrapper whose repeated string or signer
// disagrees with the data is rejected, as is an unparsable signer.
func (c *Client) VerifyMessage(sm *transaction.SignedMessage) bool {
	if sm == nil || sm.Signature.Signature == nil {
		return false
	}
	if sm.Signature.String != sm.Data.Message || sm.Signature.Signer != sm.Data.PublicKey {
		return false
	}
	pub, err := sm.Data.Signer()
	if err != nil {
		c.logger.Debug("verify failed", "op", "verify_message", "err", err)
		return false
	}
	return c.schnorr.Verify(&sm.Data, sm.Signature.Signature, pub, c.network)
}

// ============================================================================
// Payments and delegations
// ============================================================================

// SignPayment signs p with privateKey.
func (c *Client) SignPayment(p *transaction.Payment, privateKey string) (*transaction.SignedPayment, error) {
	s, err := c.signer(privateKey)
	if err != nil {
		return nil, err
	}
	return c.SignPaymentWith(s, p)
}

// SignPaymentWith signs p with s.
func (c *Client) SignPaymentWith(s crypto.Signer, p *transaction.Payment) (*transaction.SignedPayment, error) {
	sig, err := s.Sign(p, c.network)
	if err != nil {
		c.logger.Debug("sign failed", "op", "sign_payment", "err", err)
		return nil, err
	}
	signed := &transaction.SignedPayment{Signature: sig, Data: *p}
	if c.journal != nil {
		id, err := c.HashPayment(signed)
		if err != nil {
			return nil, err
		}
		rec := store.Record{
			ID:        id,
			Kind:      store.KindPayment,
			Network:   c.network,
			Signer:    p.From.Address(),
			Signature: sig.Hex(),
			Command:   signed.SignedCommandJSON(),
		}
		if err := c.journal.Put(context.Background(), rec); err != nil {
			c.logger.Debug("journal write failed", "op", "sign_payment", "id", id, "err", err)
			return nil, err
		}
	}
	return signed, nil
}

// VerifyPayment checks sp against its sender.
func (c *Client) VerifyPayment(sp *transaction.SignedPayment) bool {
	if sp == nil || sp.Signature == nil {
		return false
	}
	pub, err := sp.Data.From.Decompress()
	if err != nil {
		c.logger.Debug("verify failed", "op", "verify_payment", "err", err)
		return false
	}
	return c.schnorr.Verify(&sp.Data, sp.Signature, pub, c.network)
}

// SignStakeDelegation signs d with privateKey.
func (c *Client) SignStakeDelegation(d *transaction.StakeDelegation, privateKey string) (*transaction.SignedStakeDelegation, error) {
	s, err := c.signer(privateKey)
	if err != nil {
		return nil, err
	}
	return c.SignStakeDelegationWith(s, d)
}

// SignStakeDelegationWith signs d with s.
func (c *Client) SignStakeDelegationWith(s crypto.Signer, d *transaction.StakeDelegation) (*transaction.SignedStakeDelegation, error) {
	sig, err := s.Sign(d, c.network)
	if err != nil {
		c.logger.Debug("sign failed", "op", "sign_stake_delegation", "err", err)
		return nil, err
	}
	signed := &transaction.SignedStakeDelegation{Signature: sig, Data: *d}
	if c.journal != nil {
		id, err := c.HashStakeDelegation(signed)
		if err != nil {
			return nil, err
		}
		rec := store.Record{
			ID:        id,
			Kind:      store.KindStakeDelegation,
			Network:   c.network,
			Signer:    d.From.Address(),
			Signature: sig.Hex(),
			Command:   signed.SignedCommandJSON(),
		}
		if err := c.journal.Put(context.Background(), rec); err != nil {
			c.logger.Debug("journal write failed", "op", "sign_stake_delegation", "id", id, "err", err)
			return nil, err
		}
	}
	return signed, nil
}

// VerifyStakeDelegation checks sd against its delegator.
func (c *Client) VerifyStakeDelegation(sd *transaction.SignedStakeDelegation) bool {
	if sd == nil || sd.Signature == nil {
		return false
	}
	pub, err := sd.Data.From.Decompress()
	if err != nil {
		c.logger.Debug("verify failed", "op", "verify_stake_delegation", "err", err)
		return false
	}
	return c.schnorr.Verify(&sd.Data, sd.Signature, pub, c.network)
}

// HashPayment returns the transaction id of sp. It depends only on the
// payload and the network.
func (c *Client) HashPayment(sp *transaction.SignedPayment) (string, error) {
	if sp == nil {
		return "", fmt.Errorf("%w: nil signed payment", types.ErrMalformedInput)
	}
	return transaction.HashPayment(c.hasher, &sp.Data, c.network)
}

// HashStakeDelegation returns the transaction id of sd.
func (c *Client) HashStakeDelegation(sd *transaction.SignedStakeDelegation) (string, error) {
	if sd == nil {
		return "", fmt.Errorf("%w: nil signed stake delegation", types.ErrMalformedInput)
	}
	return transaction.HashStakeDelegation(c.hasher, &sd.Data, c.network)
}

// SignedRosettaTransactionToSignedCommand converts a Rosetta signed
// transaction into the canonical signed-command JSON.
func (c *Client) SignedRosettaTransactionToSignedCommand(signedRosettaTxn string) (string, error) {
	out, err := rosetta.SignedTransactionToSignedCommand([]byte(signedRosettaTxn))
	if err != nil {
		c.logger.Debug("rosetta conversion failed", "err", err)
		return "", err
	}
	return string(out), nil
}
