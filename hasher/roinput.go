// Package hasher packs structured data into random-oracle inputs and hashes
// them under a domain-separated Poseidon sponge.
package hasher

import (
	"github.com/blockberries/mina-signer-go/field"
)

const (
	// FieldBits is the number of bits a field element occupies in ToBytes.
	FieldBits = 255

	// PackedBits is the number of bits packed into one field element by ToFields.
	PackedBits = 254
)

// ROInput is an ordered collection of field elements followed by a bit string.
// The zero value is empty and ready to use. Add methods append in place and
// return the receiver for chaining.
type ROInput struct {
	fields []field.Element
	bits   []bool
}

// Hashable is implemented by values with a canonical random-oracle encoding.
type Hashable interface {
	ToROInput() *ROInput
}

// NewROInput returns an empty input.
func NewROInput() *ROInput {
	return &ROInput{}
}

// Clone returns a deep copy of r.
func (r *ROInput) Clone() *ROInput {
	return &ROInput{
		fields: append([]field.Element(nil), r.fields...),
		bits:   append([]bool(nil), r.bits...),
	}
}

// Fields returns the field elements appended so far.
func (r *ROInput) Fields() []field.Element { return r.fields }

// Bits returns the bit string appended so far.
func (r *ROInput) Bits() []bool { return r.bits }

// AddField appends field elements.
func (r *ROInput) AddField(xs ...field.Element) *ROInput {
	r.fields = append(r.fields, xs...)
	return r
}

// AddBool appends bits.
func (r *ROInput) AddBool(bs ...bool) *ROInput {
	r.bits = append(r.bits, bs...)
	return r
}

func (r *ROInput) addUint(v uint64, n int) *ROInput {
	for i := 0; i < n; i++ {
		r.bits = append(r.bits, (v>>uint(i))&1 == 1)
	}
	return r
}

// AddUint64 appends v as 64 little-endian bits.
func (r *ROInput) AddUint64(v uint64) *ROInput { return r.addUint(v, 64) }

// AddUint32 appends v as 32 little-endian bits.
func (r *ROInput) AddUint32(v uint32) *ROInput { return r.addUint(uint64(v), 32) }

// AddBytes appends every byte as 8 bits, least significant first.
func (r *ROInput) AddBytes(b []byte) *ROInput {
	for _, c := range b {
		r.addUint(uint64(c), 8)
	}
	return r
}

// AddScalar appends the low 255 bits of an Fq element, least significant first.
func (r *ROInput) AddScalar(x field.Element) *ROInput {
	for i := 0; i < FieldBits; i++ {
		r.bits = append(r.bits, field.Bit(x, i) == 1)
	}
	return r
}

// Append adds the fields and bits of o after those of r.
func (r *ROInput) Append(o *ROInput) *ROInput {
	r.fields = append(r.fields, o.fields...)
	r.bits = append(r.bits, o.bits...)
	return r
}

// ToFields returns the fields followed by the bit string packed into 254-bit
// little-endian chunks. The final chunk may be shorter.
func (r *ROInput) ToFields() []field.Element {
	out := make([]field.Element, 0, len(r.fields)+(len(r.bits)+PackedBits-1)/PackedBits)
	out = append(out, r.fields...)
	for start := 0; start < len(r.bits); start += PackedBits {
		end := start + PackedBits
		if end > len(r.bits) {
			end = len(r.bits)
		}
		var x field.Element
		for i, b := range r.bits[start:end] {
			if b {
				x[i/64] |= 1 << (uint(i) % 64)
			}
		}
		out = append(out, x)
	}
	return out
}

// ToBytes serialises each field as 255 bits, then the bit string, packing the
// whole sequence least significant bit first.
func (r *ROInput) ToBytes() []byte {
	total := len(r.fields)*FieldBits + len(r.bits)
	out := make([]byte, (total+7)/8)
	pos := 0
	set := func(b bool) {
		if b {
			out[pos/8] |= 1 << (uint(pos) % 8)
		}
		pos++
	}
	for _, x := range r.fields {
		for i := 0; i < FieldBits; i++ {
			set(field.Bit(x, i) == 1)
		}
	}
	for _, b := range r.bits {
		set(b)
	}
	return out
}
