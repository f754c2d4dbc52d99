package task

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestACL(t *testing.T) {
	t.Run("Should make anonymous first submissions public", func(t *testing.T) {
		acl := NewACL(nil)
		assert.True(t, acl.Public)
		assert.Empty(t, acl.UIDs)
	})

	t.Run("Should keep authenticated first submissions private", func(t *testing.T) {
		acl := NewACL(&Auth{UID: "a"})
		assert.False(t, acl.Public)
		assert.Equal(t, map[string]bool{"a": true}, acl.UIDs)
	})

	t.Run("Should only grow on grant", func(t *testing.T) {
		acl := NewACL(&Auth{UID: "a"})
		acl.Grant(&Auth{UID: "b"})
		assert.ElementsMatch(t, []string{"a", "b"}, acl.UIDList())
		acl.Grant(nil)
		assert.True(t, acl.Public)
		acl.Grant(&Auth{UID: "c"})
		assert.True(t, acl.Public)
		assert.Len(t, acl.UIDs, 3)
	})

	t.Run("Should clone independently", func(t *testing.T) {
		acl := NewACL(&Auth{UID: "a"})
		c := acl.Clone()
		c.Grant(&Auth{UID: "b"})
		assert.Len(t, acl.UIDs, 1)
		assert.Nil(t, (*ACL)(nil).Clone())
	})
}

func TestCodeHash(t *testing.T) {
	t.Run("Should be stable across equal content", func(t *testing.T) {
		a, err := CodeHash("0002", map[string]any{"x": 1, "y": []any{"z"}})
		require.NoError(t, err)
		b, err := CodeHash("0002", map[string]any{"y": []any{"z"}, "x": 1})
		require.NoError(t, err)
		assert.Equal(t, a, b)
		assert.Len(t, a, 64)
	})

	t.Run("Should differ by language", func(t *testing.T) {
		a, _ := CodeHash("0001", "print 1..")
		b, _ := CodeHash("0002", "print 1..")
		assert.NotEqual(t, a, b)
	})
}

func TestValidate(t *testing.T) {
	t.Run("Should accept a well-formed task", func(t *testing.T) {
		assert.NoError(t, Validate(&Task{Lang: "0002", Code: "print 1.."}, &Auth{UID: "u"}))
		assert.NoError(t, Validate(&Task{Lang: "0002", Code: nil}, nil))
	})

	t.Run("Should reject missing or reserved languages", func(t *testing.T) {
		for _, lang := range []string{"", "0"} {
			err := Validate(&Task{Lang: lang, Code: "x"}, nil)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "task.lang", verr.Field)
			assert.Equal(t, http.StatusBadRequest, verr.StatusCode())
		}
	})

	t.Run("Should reject a nil task", func(t *testing.T) {
		assert.True(t, IsValidationError(Validate(nil, nil)))
	})

	t.Run("Should reject an auth without uid", func(t *testing.T) {
		err := Validate(&Task{Lang: "1", Code: "x"}, &Auth{})
		assert.True(t, IsValidationError(err))
	})

	t.Run("Should reject code that cannot be serialized", func(t *testing.T) {
		err := Validate(&Task{Lang: "1", Code: make(chan int)}, nil)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "code", verr.Field)
	})
}
