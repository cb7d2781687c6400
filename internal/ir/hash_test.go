package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashDeterminism(t *testing.T) {
	obj := O("kind", "Constant", "value", 1)

	h1, err := Hash(DomainExpression, obj)
	require.NoError(t, err)
	h2, err := Hash(DomainExpression, obj)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64, "SHA-256 hex is 64 characters")
}

func TestHashDomainSeparation(t *testing.T) {
	obj := O("ID", 1)
	assert.NotEqual(t, MustHash(DomainExpression, obj), MustHash(DomainRecord, obj))
}

func TestHashIgnoresKeyInsertionOrder(t *testing.T) {
	a := IRObject{"x": IRInt(1), "y": IRInt(2)}
	b := IRObject{"y": IRInt(2), "x": IRInt(1)}
	assert.Equal(t, MustHash(DomainRecord, a), MustHash(DomainRecord, b))
}

func TestHashRejectsFloats(t *testing.T) {
	_, err := Hash(DomainRecord, 1.5)
	require.Error(t, err)
}
