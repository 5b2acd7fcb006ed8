package transaction

import (
	"encoding/json"
	"fmt"

	"github.com/blockberries/mina-signer-go/crypto"
	"github.com/blockberries/mina-signer-go/hasher"
	"github.com/blockberries/mina-signer-go/types"
)

// Message is an arbitrary string signed by PublicKey.
type Message struct {
	PublicKey string `json:"publicKey"`
	Message   string `json:"message"`
}

// StringMessage hashes a string alone, bytes in order, each byte's bits most
// significant first.
type StringMessage string

var (
	_ hasher.Hashable = StringMessage("")
	_ hasher.Hashable = (*Message)(nil)
)

// ToROInput implements hasher.Hashable.
func (m StringMessage) ToROInput() *hasher.ROInput {
	in := hasher.NewROInput()
	for i := 0; i < len(m); i++ {
		c := m[i]
		for j := 7; j >= 0; j-- {
			in.AddBool(c>>uint(j)&1 == 1)
		}
	}
	return in
}

// ToROInput hashes the message text; the public key is bound through the
// signature challenge, not the input.
func (m *Message) ToROInput() *hasher.ROInput {
	return StringMessage(m.Message).ToROInput()
}

// Signer decodes the public key.
func (m *Message) Signer() (*crypto.PublicKey, error) {
	return crypto.ParsePublicKey(m.PublicKey)
}

// SignatureWrapper repeats the message and signer next to the signature.
type SignatureWrapper struct {
	String    string            `json:"string"`
	Signer    string            `json:"signer"`
	Signature *crypto.Signature `json:"signature"`
}

// SignedMessage is a message with its signature.
type SignedMessage struct {
	Signature SignatureWrapper `json:"signature"`
	Data      Message          `json:"data"`
}

// NewSignedMessage wraps sig over m.
func NewSignedMessage(m Message, sig *crypto.Signature) *SignedMessage {
	return &SignedMessage{
		Signature: SignatureWrapper{
			String:    m.Message,
			Signer:    m.PublicKey,
			Signature: sig,
		},
		Data: m,
	}
}

// UnmarshalJSON requires a signature and a public key.
func (s *SignedMessage) UnmarshalJSON(data []byte) error {
	type plain SignedMessage
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return wrapJSONError("signed message", err)
	}
	if p.Signature.Signature == nil {
		return fmt.Errorf("%w: signed message has no signature", types.ErrMalformedInput)
	}
	if p.Data.PublicKey == "" {
		return fmt.Errorf("%w: signed message has no public key", types.ErrMalformedInput)
	}
	*s = SignedMessage(p)
	return nil
}
