// Package transaction encodes Mina legacy user commands (payments and stake
// delegations) and string messages as random-oracle inputs, and computes
// their transaction ids.
package transaction

import (
	"fmt"

	"github.com/blockberries/mina-signer-go/crypto"
	"github.com/blockberries/mina-signer-go/types"
)

const (
	// MemoLength is the size of the encoded memo.
	MemoLength = 34

	// MaxMemoBytes bounds the UTF-8 text a memo can carry.
	MaxMemoBytes = MemoLength - 2

	// memoTagBytes marks the memo as carrying raw bytes.
	memoTagBytes byte = 0x01

	// VersionMemo is the base58check version of memos in signed-command JSON.
	VersionMemo byte = 0x14
)

// Memo is the fixed-width memo field: tag, length, then the text zero-padded.
type Memo [MemoLength]byte

// EmptyMemo is the memo of a command that carries no text.
var EmptyMemo = Memo{0: memoTagBytes}

// NewMemo encodes s. Text is taken byte for byte, with no Unicode
// normalisation. More than MaxMemoBytes bytes is malformed input.
func NewMemo(s string) (Memo, error) {
	if len(s) > MaxMemoBytes {
		return Memo{}, fmt.Errorf("%w: memo is %d bytes, max %d", types.ErrMalformedInput, len(s), MaxMemoBytes)
	}
	m := EmptyMemo
	m[1] = byte(len(s))
	copy(m[2:], s)
	return m, nil
}

// NewOptionalMemo encodes s, with nil meaning no memo.
func NewOptionalMemo(s *string) (Memo, error) {
	if s == nil {
		return EmptyMemo, nil
	}
	return NewMemo(*s)
}

// Text returns the memo text, or nil when the memo is empty.
func (m Memo) Text() *string {
	n := int(m[1])
	if n == 0 || n > MaxMemoBytes {
		return nil
	}
	s := string(m[2 : 2+n])
	return &s
}

// Base58 returns the base58check form used in signed-command JSON.
func (m Memo) Base58() string {
	return crypto.EncodeBase58Check(VersionMemo, m[:])
}

// MemoFromBase58 decodes the base58check form.
func MemoFromBase58(s string) (Memo, error) {
	payload, err := crypto.DecodeBase58Check(s, VersionMemo)
	if err != nil {
		return Memo{}, fmt.Errorf("%w: memo: %v", types.ErrMalformedInput, err)
	}
	if len(payload) != MemoLength || payload[0] != memoTagBytes || int(payload[1]) > MaxMemoBytes {
		return Memo{}, fmt.Errorf("%w: memo payload is malformed", types.ErrMalformedInput)
	}
	var m Memo
	copy(m[:], payload)
	return m, nil
}
