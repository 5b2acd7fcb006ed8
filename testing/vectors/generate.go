package vectors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/blockberries/mina-signer-go/client"
	"github.com/blockberries/mina-signer-go/crypto"
	"github.com/blockberries/mina-signer-go/transaction"
)

// TestKey is a well-known keypair.
// SECURITY: These keys are for testing ONLY. Never use in production.
type TestKey struct {
	Name       string
	PrivateKey string
	PublicKey  string
}

// PublishedTestKey is the key used by the published Mina signer examples.
var PublishedTestKey = TestKey{
	Name:       "published",
	PrivateKey: "EKFKgDtU3rcuFTVSEpmpXSkukjmX4cKefYREi6Sdsk7E7wsT7KRw",
	PublicKey:  "B62qiy32p8kAKnny8ZFwoMhYpBppM1DWVCqAPBYNcXnsAHhnfAAuXgg",
}

// Receiver is the fixed counterparty of every payment and delegation vector.
const Receiver = "B62qnsHmPQpZSKnrp978ZHFYwCJFBZtY1qE3UD97dd7taQarEV6ZpuG"

// SeededTestKey derives a key from BLAKE2b-256("mina-signer-go-test-vector-seed-" + name).
func SeededTestKey(name string) (TestKey, error) {
	seed := blake2b.Sum256([]byte("mina-signer-go-test-vector-seed-" + name))
	sk, err := crypto.GeneratePrivateKeyFrom(bytes.NewReader(seed[:]))
	if err != nil {
		return TestKey{}, err
	}
	defer sk.Zeroize()
	return TestKey{Name: name, PrivateKey: sk.Base58(), PublicKey: sk.PublicKey().Address()}, nil
}

// WellKnownTestKeys returns the published key followed by two seeded keys.
func WellKnownTestKeys() ([]TestKey, error) {
	keys := []TestKey{PublishedTestKey}
	for _, name := range []string{"alice", "bob"} {
		k, err := SeededTestKey(name)
		if err != nil {
			return nil, fmt.Errorf("seeded key %s: %w", name, err)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func strPtr(s string) *string { return &s }

// GenerateTestVectors creates the complete test vector file by signing every
// input with this implementation.
func GenerateTestVectors() (*TestVectorFile, error) {
	keys, err := WellKnownTestKeys()
	if err != nil {
		return nil, err
	}

	var inputs []namedInput
	inputs = append(inputs, keyInputs(keys)...)
	inputs = append(inputs, paymentInputs(keys[0])...)
	inputs = append(inputs, stakeDelegationInputs(keys[0])...)
	inputs = append(inputs, messageInputs(keys)...)
	inputs = append(inputs, edgeCaseInputs(keys[1])...)

	vectors := make([]TestVector, 0, len(inputs))
	for _, in := range inputs {
		expected, err := Compute(in.input)
		if err != nil {
			return nil, fmt.Errorf("vector %s: %w", in.name, err)
		}
		vectors = append(vectors, TestVector{
			Name:        in.name,
			Description: in.description,
			Category:    in.category,
			Input:       in.input,
			Expected:    *expected,
		})
	}

	return &TestVectorFile{
		Version:     "1.0",
		Generated:   time.Now().UTC(),
		Description: "Cross-implementation test vectors for the Mina legacy signer",
		Vectors:     vectors,
	}, nil
}

type namedInput struct {
	name        string
	description string
	category    string
	input       TestVectorInput
}

func payment(k TestKey, network string, fee, amount, nonce uint64, validUntil string, memo *string) TestVectorInput {
	return TestVectorInput{
		Kind:       KindPayment,
		Network:    network,
		PrivateKey: k.PrivateKey,
		From:       k.PublicKey,
		To:         Receiver,
		Fee:        strconv.FormatUint(fee, 10),
		Amount:     strconv.FormatUint(amount, 10),
		Nonce:      strconv.FormatUint(nonce, 10),
		ValidUntil: validUntil,
		Memo:       memo,
	}
}

func delegation(k TestKey, network string, fee, nonce uint64, validUntil string, memo *string) TestVectorInput {
	return TestVectorInput{
		Kind:       KindStakeDelegation,
		Network:    network,
		PrivateKey: k.PrivateKey,
		From:       k.PublicKey,
		To:         Receiver,
		Fee:        strconv.FormatUint(fee, 10),
		Nonce:      strconv.FormatUint(nonce, 10),
		ValidUntil: validUntil,
		Memo:       memo,
	}
}

func message(k TestKey, network, msg string) TestVectorInput {
	return TestVectorInput{
		Kind:       KindMessage,
		Network:    network,
		PrivateKey: k.PrivateKey,
		Message:    msg,
	}
}

func keyInputs(keys []TestKey) []namedInput {
	out := make([]namedInput, 0, len(keys))
	for _, k := range keys {
		out = append(out, namedInput{
			name:        "key_" + k.Name,
			description: "public key derivation and signing of a fixed message",
			category:    CategoryKey,
			input:       message(k, "mainnet", "key"),
		})
	}
	return out
}

func paymentInputs(k TestKey) []namedInput {
	var out []namedInput
	for _, network := range []string{"mainnet", "testnet"} {
		out = append(out,
			namedInput{
				name:        "payment_memo_" + network,
				description: "payment with a short memo and the default valid_until",
				category:    CategoryPayment,
				input:       payment(k, network, 1, 1, 3, "", strPtr("memo")),
			},
			namedInput{
				name:        "payment_realistic_" + network,
				description: "payment with realistic fee and amount",
				category:    CategoryPayment,
				input:       payment(k, network, 200100000, 16640000000000, 1, "1000", nil),
			},
		)
	}
	return out
}

func stakeDelegationInputs(k TestKey) []namedInput {
	var out []namedInput
	for _, network := range []string{"mainnet", "testnet"} {
		out = append(out, namedInput{
			name:        "stake_delegation_" + network,
			description: "stake delegation with a short memo",
			category:    CategoryStakeDelegation,
			input:       delegation(k, network, 1, 3, "", strPtr("memo")),
		})
	}
	return out
}

func messageInputs(keys []TestKey) []namedInput {
	var out []namedInput
	for _, network := range []string{"mainnet", "testnet"} {
		out = append(out, namedInput{
			name:        "message_sample_" + network,
			description: "the cross-implementation sample message",
			category:    CategoryMessage,
			input:       message(keys[0], network, "This is a sample message."),
		})
	}
	out = append(out,
		namedInput{
			name:        "message_empty",
			description: "empty message",
			category:    CategoryMessage,
			input:       message(keys[2], "mainnet", ""),
		},
		namedInput{
			name:        "message_unicode",
			description: "multi-byte UTF-8 message",
			category:    CategoryMessage,
			input:       message(keys[2], "mainnet", "Mina ☃ 🌍"),
		},
	)
	return out
}

func edgeCaseInputs(k TestKey) []namedInput {
	return []namedInput{
		{
			name:        "payment_zero_values",
			description: "fee, amount and nonce of zero",
			category:    CategoryEdgeCase,
			input:       payment(k, "mainnet", 0, 0, 0, "", nil),
		},
		{
			name:        "payment_max_values",
			description: "u64 fee and amount, u32 nonce and valid_until at their maxima",
			category:    CategoryEdgeCase,
			input:       payment(k, "mainnet", 1<<64-1, 1<<64-1, 1<<32-1, "4294967295", nil),
		},
		{
			name:        "payment_above_float",
			description: "amount 2^53+1, exact only without float64",
			category:    CategoryEdgeCase,
			input:       payment(k, "testnet", 1, 1<<53+1, 7, "", nil),
		},
		{
			name:        "payment_full_memo",
			description: "memo of exactly 32 bytes",
			category:    CategoryEdgeCase,
			input:       payment(k, "mainnet", 10, 10, 10, "", strPtr("0123456789abcdef0123456789abcdef")),
		},
		{
			name:        "payment_unicode_memo",
			description: "memo with multi-byte UTF-8, no normalisation",
			category:    CategoryEdgeCase,
			input:       payment(k, "mainnet", 10, 10, 11, "", strPtr("Café ☕")),
		},
		{
			name:        "stake_delegation_zero_valid_until",
			description: "delegation that expired at slot zero",
			category:    CategoryEdgeCase,
			input:       delegation(k, "testnet", 0, 0, "0", strPtr("")),
		},
	}
}

// Compute signs in with a client for its network and returns every output.
func Compute(in TestVectorInput) (*TestVectorExpected, error) {
	c, err := client.NewWithNetwork(in.Network)
	if err != nil {
		return nil, err
	}
	pub, err := c.DerivePublicKey(in.PrivateKey)
	if err != nil {
		return nil, err
	}
	raw, err := c.PublicKeyToRaw(pub)
	if err != nil {
		return nil, err
	}
	out := &TestVectorExpected{PublicKey: pub, RawPublicKey: raw}

	var sig *crypto.Signature
	switch in.Kind {
	case KindPayment:
		p, err := transaction.ParsePayment(in.From, in.To, in.Fee, in.Amount, in.Nonce, in.ValidUntil, in.Memo)
		if err != nil {
			return nil, err
		}
		signed, err := c.SignPayment(p, in.PrivateKey)
		if err != nil {
			return nil, err
		}
		if out.TransactionID, err = c.HashPayment(signed); err != nil {
			return nil, err
		}
		sig = signed.Signature
		out.SignedCommand = signed.SignedCommandJSON()
	case KindStakeDelegation:
		d, err := transaction.ParseStakeDelegation(in.From, in.To, in.Fee, in.Nonce, in.ValidUntil, in.Memo)
		if err != nil {
			return nil, err
		}
		signed, err := c.SignStakeDelegation(d, in.PrivateKey)
		if err != nil {
			return nil, err
		}
		if out.TransactionID, err = c.HashStakeDelegation(signed); err != nil {
			return nil, err
		}
		sig = signed.Signature
		out.SignedCommand = signed.SignedCommandJSON()
	case KindMessage:
		signed, err := c.SignMessage(in.Message, in.PrivateKey)
		if err != nil {
			return nil, err
		}
		sig = signed.Signature.Signature
	default:
		return nil, fmt.Errorf("unknown vector kind %q", in.Kind)
	}

	out.SignatureHex = sig.Hex()
	j := sig.JSON()
	out.SignatureField, out.SignatureScalar = j.Field, j.Scalar
	if in.Kind != KindMessage {
		out.SignatureBase58 = sig.Base58()
	}
	return out, nil
}

// Verify checks that expected verifies under its public key. It does not
// require signature equality, only acceptance.
func Verify(in TestVectorInput, expected TestVectorExpected) (bool, error) {
	c, err := client.NewWithNetwork(in.Network)
	if err != nil {
		return false, err
	}
	sig, err := crypto.SignatureFromHex(expected.SignatureHex)
	if err != nil {
		return false, err
	}
	switch in.Kind {
	case KindPayment:
		p, err := transaction.ParsePayment(in.From, in.To, in.Fee, in.Amount, in.Nonce, in.ValidUntil, in.Memo)
		if err != nil {
			return false, err
		}
		return c.VerifyPayment(&transaction.SignedPayment{Signature: sig, Data: *p}), nil
	case KindStakeDelegation:
		d, err := transaction.ParseStakeDelegation(in.From, in.To, in.Fee, in.Nonce, in.ValidUntil, in.Memo)
		if err != nil {
			return false, err
		}
		return c.VerifyStakeDelegation(&transaction.SignedStakeDelegation{Signature: sig, Data: *d}), nil
	case KindMessage:
		m := transaction.Message{PublicKey: expected.PublicKey, Message: in.Message}
		return c.VerifyMessage(transaction.NewSignedMessage(m, sig)), nil
	default:
		return false, fmt.Errorf("unknown vector kind %q", in.Kind)
	}
}

// Marshal renders f as indented JSON.
func Marshal(f *TestVectorFile) ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}
