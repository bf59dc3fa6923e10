package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvalidValueError(t *testing.T) {
	err := NewInvalidValue("RoleName")

	assert.Equal(t, "invalid value for RoleName", err.Error())
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.NotErrorIs(t, err, ErrPersistence)

	wrapped := fmt.Errorf("parse role: %w", err)
	var iv *InvalidValueError
	require.ErrorAs(t, wrapped, &iv)
	assert.Equal(t, "RoleName", iv.Name)
}

func TestPersistenceError_UnwrapsCause(t *testing.T) {
	cause := errors.New("db down")
	err := NewPersistence(cause)

	assert.Equal(t, "persistence error: db down", err.Error())
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, cause)
}

func TestForbiddenError(t *testing.T) {
	err := NewForbidden("missing privilege")

	assert.Equal(t, "forbidden: missing privilege", err.Error())
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAsPersistence(t *testing.T) {
	assert.NoError(t, AsPersistence(nil))

	cause := errors.New("boom")
	once := AsPersistence(cause)
	assert.ErrorIs(t, once, ErrPersistence)
	assert.ErrorIs(t, once, cause)

	twice := AsPersistence(fmt.Errorf("tx: %w", once))
	var pe *PersistenceError
	require.ErrorAs(t, twice, &pe)
	assert.Same(t, cause, pe.Err, "must not double wrap")
}
