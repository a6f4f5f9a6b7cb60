package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "estekhdam/pkg/domain-errors"
)

func TestParseCaseID(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"zero", "0"},
		{"negative", "-4"},
		{"letters", "12a"},
		{"leading space", " 12"},
		{"explicit plus", "+12"},
		{"overflow", "99999999999999999999"},
		{"injection", "1; DROP TABLE hiring_cases"},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			_, err := ParseCaseID(tt.input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}

	t.Run("accepts positive integer", func(t *testing.T) {
		id, err := ParseCaseID("42")
		require.NoError(t, err)
		assert.Equal(t, CaseID(42), id)
		assert.Equal(t, "42", id.String())
	})
}

func TestParseSessionID(t *testing.T) {
	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseSessionID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := ParseSessionID("not-a-uuid")
		require.Error(t, err)
	})

	t.Run("round trips", func(t *testing.T) {
		sid := NewSessionID()
		parsed, err := ParseSessionID(sid.String())
		require.NoError(t, err)
		assert.Equal(t, sid, parsed)
		assert.False(t, parsed.IsNil())
	})

	t.Run("encodes as text in JSON", func(t *testing.T) {
		sid := NewSessionID()
		raw, err := json.Marshal(struct {
			ID SessionID `json:"id"`
		}{sid})
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"`+sid.String()+`"}`, string(raw))

		var decoded struct {
			ID SessionID `json:"id"`
		}
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, sid, decoded.ID)
	})
}
