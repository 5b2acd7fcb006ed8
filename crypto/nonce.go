package crypto

import (
	"golang.org/x/crypto/blake2b"

	"github.com/blockberries/mina-signer-go/field"
	"github.com/blockberries/mina-signer-go/hasher"
	"github.com/blockberries/mina-signer-go/types"
)

// deriveNonce generates the deterministic Schnorr nonce k for signing input
// with key d under network. Signing the same input with the same key on the
// same network always yields the same k, so no entropy is needed at sign time.
//
// The derivation is:
//  1. Extend the input with the public key coordinates (as fields), the
//     scalar d (255 bits) and the network byte (0x01 mainnet, 0x00 testnet).
//  2. Serialise with ROInput.ToBytes and hash with BLAKE2b-256.
//  3. Clear the top two bits of the last byte and read little-endian.
//
// The result is below 2^254 and so below q. A zero result (probability
// 2^-254) is re-derived with an extra counter byte appended.
func deriveNonce(input *hasher.ROInput, pub *PublicKey, d field.Element, network types.NetworkID) field.Element {
	p := pub.Point()
	base := input.Clone().
		AddField(p.X, p.Y).
		AddScalar(d).
		AddBytes([]byte{network.Byte()})

	for counter := 0; ; counter++ {
		msg := base
		if counter > 0 {
			msg = base.Clone().AddBytes([]byte{byte(counter)})
		}
		buf := msg.ToBytes()
		sum := blake2b.Sum256(buf)
		Zeroize(buf)

		k := nonceFromDigest(sum)
		Zeroize(sum[:])
		if !k.IsZero() {
			return k
		}
	}
}

// nonceFromDigest clears the top two bits of byte 31 and reads the digest as
// a little-endian integer.
func nonceFromDigest(sum [32]byte) field.Element {
	sum[31] &= 0x3f
	var be [32]byte
	for i := 0; i < 32; i++ {
		be[i] = sum[31-i]
	}
	var k field.Element
	k.SetBytes32(be[:])
	return k
}
