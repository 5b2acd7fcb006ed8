package types

import (
	"bytes"
	"strconv"

	"github.com/blockberries/cramberry/pkg/cramberry"
)

// ObjectWriter emits a JSON object with keys in insertion order. The signed
// command formats fix their key order, which encoding/json only offers for
// structs; the writer covers the nested and nullable shapes in between.
//
// Not safe for concurrent use.
type ObjectWriter struct {
	buf   bytes.Buffer
	count int
}

// NewObjectWriter starts an object.
func NewObjectWriter() *ObjectWriter {
	w := &ObjectWriter{}
	w.buf.WriteByte('{')
	return w
}

func (w *ObjectWriter) key(k string) {
	if w.count > 0 {
		w.buf.WriteByte(',')
	}
	w.count++
	w.buf.WriteString(cramberry.EscapeJSONString(k))
	w.buf.WriteByte(':')
}

// String writes a string member.
func (w *ObjectWriter) String(k, v string) *ObjectWriter {
	w.key(k)
	w.buf.WriteString(cramberry.EscapeJSONString(v))
	return w
}

// OptionalString writes v, or null when v is nil.
func (w *ObjectWriter) OptionalString(k string, v *string) *ObjectWriter {
	if v == nil {
		return w.Null(k)
	}
	return w.String(k, *v)
}

// Uint writes v as a decimal string.
func (w *ObjectWriter) Uint(k string, v uint64) *ObjectWriter {
	return w.String(k, strconv.FormatUint(v, 10))
}

// Null writes a null member.
func (w *ObjectWriter) Null(k string) *ObjectWriter {
	w.key(k)
	w.buf.WriteString("null")
	return w
}

// Raw writes pre-encoded JSON. The caller guarantees it is valid.
func (w *ObjectWriter) Raw(k string, v []byte) *ObjectWriter {
	w.key(k)
	w.buf.Write(v)
	return w
}

// Object writes a nested object.
func (w *ObjectWriter) Object(k string, o *ObjectWriter) *ObjectWriter {
	return w.Raw(k, o.Bytes())
}

// Bytes returns the encoding of the members written so far.
func (w *ObjectWriter) Bytes() []byte {
	out := make([]byte, 0, w.buf.Len()+1)
	out = append(out, w.buf.Bytes()...)
	return append(out, '}')
}
