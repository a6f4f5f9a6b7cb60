package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	id "estekhdam/pkg/domain"
)

func TestCandidateUsername(t *testing.T) {
	assert.Equal(t, "cand17", CandidateUsername(id.UserID(17)))
}
