package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDigits(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"persian", "۰۹۱۲۳۴۵۶۷۸۹", "09123456789"},
		{"arabic-indic", "٠١٢٣٤٥٦٧٨٩", "0123456789"},
		{"fullwidth", "１２３", "123"},
		{"mixed", "nid ۱2٣", "nid 123"},
		{"ascii untouched", "cand42", "cand42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Digits(tt.in))
		})
	}
}

func TestQuery(t *testing.T) {
	assert.Equal(t, "علی", Query("  علي "))
	assert.Equal(t, "0012345678", Query("۰۰۱۲۳۴۵۶۷۸"))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "علی رضایی", Fold("علي رضايي"))
	assert.Equal(t, "کریم", Fold("كريم"))
	assert.Equal(t, "زین العابدین", Fold("زین\u200cالعابدین"))
	assert.Equal(t, Query("  علي\u200cرضا "), Fold("علی رضا"))
}

func TestNumeric(t *testing.T) {
	assert.Equal(t, "09121234567", Numeric(" ۰۹۱۲-۱۲۳ ۴۵۶۷ "))
}
