package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mesh-intelligence/tnr/pkg/types"
)

func TestErrors(t *testing.T) {
	var v Errors
	assert.NoError(t, v.Err())

	v.Check(true, "never recorded")
	v.Check(false, "email is required")
	v.Add("password must have at least %d characters", 8)

	err := v.Err()
	assert.ErrorIs(t, err, types.ErrInvalidData)
	assert.Equal(t, "email is required; password must have at least 8 characters", err.Error())
}
