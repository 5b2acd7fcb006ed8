package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectWriter(t *testing.T) {
	memo := "a\"b"
	inner := NewObjectWriter().Uint("fee", 18446744073709551615).OptionalString("memo", nil)
	out := NewObjectWriter().
		String("z", "first").
		String("a", "second").
		OptionalString("memo", &memo).
		Object("inner", inner).
		Raw("list", []byte(`[1,2]`)).
		Null("none").
		Bytes()

	assert.Equal(t, `{"z":"first","a":"second","memo":"a\"b","inner":{"fee":"18446744073709551615","memo":null},"list":[1,2],"none":null}`, string(out))
	assert.True(t, json.Valid(out))
}

func TestObjectWriter_Empty(t *testing.T) {
	assert.Equal(t, `{}`, string(NewObjectWriter().Bytes()))
}

func TestObjectWriter_Escaping(t *testing.T) {
	tests := []string{
		"plain",
		"quote\"inside",
		"back\\slash",
		"new\nline",
		"tab\tand\x01control",
		"unicode ☃ and 🌍",
	}
	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			out := NewObjectWriter().String("k", s).Bytes()
			require.True(t, json.Valid(out), string(out))
			var got map[string]string
			require.NoError(t, json.Unmarshal(out, &got))
			assert.Equal(t, s, got["k"])
		})
	}
}

// Bytes can be called repeatedly while the object grows.
func TestObjectWriter_BytesSnapshot(t *testing.T) {
	w := NewObjectWriter().String("a", "1")
	first := w.Bytes()
	w.String("b", "2")
	assert.Equal(t, `{"a":"1"}`, string(first))
	assert.Equal(t, `{"a":"1","b":"2"}`, string(w.Bytes()))
}

func FuzzObjectWriter(f *testing.F) {
	for _, s := range []string{"", "memo", `"quoted"`, "line1\nline2", "null\x00byte", " ", "café", "\xff\xfe"} {
		f.Add("k", s)
	}
	f.Fuzz(func(t *testing.T, k, v string) {
		out := NewObjectWriter().String(k, v).Null("n").Bytes()
		if !json.Valid(out) {
			t.Fatalf("invalid JSON for %q=%q: %s", k, v, out)
		}
		again := NewObjectWriter().String(k, v).Null("n").Bytes()
		if string(out) != string(again) {
			t.Fatalf("non-deterministic output: %s vs %s", out, again)
		}
	})
}
