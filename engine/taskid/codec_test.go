package taskid

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	t.Run("Should encode refs as base64url JSON", func(t *testing.T) {
		id, err := Encode([]string{"abc"})
		require.NoError(t, err)
		raw, err := base64.RawURLEncoding.DecodeString(id)
		require.NoError(t, err)
		assert.JSONEq(t, `{"taskIds":["abc"]}`, string(raw))
		assert.NotContains(t, id, "=")
	})

	t.Run("Should reject an empty ref list", func(t *testing.T) {
		_, err := Encode(nil)
		assert.ErrorIs(t, err, ErrEmptyRefs)
	})
}

func TestDecode(t *testing.T) {
	t.Run("Should round-trip any non-empty ref list", func(t *testing.T) {
		cases := [][]string{
			{"a"},
			{"0002", "1", "0"},
			{"x/y", "<&>", "ünïcode", ""},
		}
		for _, refs := range cases {
			id, err := Encode(refs)
			require.NoError(t, err)
			got, err := Decode(id)
			require.NoError(t, err)
			assert.Equal(t, refs, got)
		}
	})

	t.Run("Should flatten compound identifiers in order", func(t *testing.T) {
		a := MustEncode([]string{"x"})
		b := MustEncode([]string{"y", "z"})
		got, err := Decode(Join(a, b))
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y", "z"}, got)
	})

	t.Run("Should accept padded segments", func(t *testing.T) {
		padded := base64.URLEncoding.EncodeToString([]byte(`{"taskIds":["p"]}`))
		got, err := Decode(padded)
		require.NoError(t, err)
		assert.Equal(t, []string{"p"}, got)
	})

	t.Run("Should keep numeric refs in literal form", func(t *testing.T) {
		id := base64.RawURLEncoding.EncodeToString([]byte(`{"taskIds":[12,"a"]}`))
		got, err := Decode(id)
		require.NoError(t, err)
		assert.Equal(t, []string{"12", "a"}, got)
	})

	t.Run("Should fail with DecodeIDError on malformed input", func(t *testing.T) {
		enc := base64.RawURLEncoding.EncodeToString
		bad := []string{
			"",
			"not-valid-base64!!",
			"+",
			MustEncode([]string{"a"}) + "+",
			enc([]byte(`[1,2]`)),
			enc([]byte(`{"taskIds":[]}`)),
			enc([]byte(`{"taskIds":"a"}`)),
			enc([]byte(`{"taskIds":null}`)),
			enc([]byte(`{"other":["a"]}`)),
			enc([]byte(`{"taskIds":[{"a":1}]}`)),
		}
		for _, id := range bad {
			t.Run(fmt.Sprintf("id=%q", id), func(t *testing.T) {
				got, err := Decode(id)
				require.Error(t, err)
				assert.Nil(t, got)
				var decodeErr *DecodeIDError
				require.ErrorAs(t, err, &decodeErr)
				assert.Equal(t, 4001, decodeErr.Code())
				assert.Equal(t, http.StatusBadRequest, decodeErr.StatusCode())
				assert.True(t, IsDecodeIDError(err))
			})
		}
	})
}

func TestAppend(t *testing.T) {
	t.Run("Should concatenate refs of every identifier", func(t *testing.T) {
		a := MustEncode([]string{"x"})
		b := MustEncode([]string{"y"})
		id, err := Append(a, b)
		require.NoError(t, err)
		got, err := Decode(id)
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, got)
		assert.NotContains(t, id, Separator)
	})

	t.Run("Should accept compound inputs", func(t *testing.T) {
		a := MustEncode([]string{"x"})
		b := MustEncode([]string{"y"})
		c := MustEncode([]string{"z"})
		id, err := Append(Join(a, b), c)
		require.NoError(t, err)
		got, err := Decode(id)
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y", "z"}, got)
	})

	t.Run("Should return the decode error of a bad argument", func(t *testing.T) {
		_, err := Append(MustEncode([]string{"x"}), "%%%")
		assert.True(t, IsDecodeIDError(err))
	})
}
