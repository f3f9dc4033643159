package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestUnavailableIsClassifiable(t *testing.T) {
	err := fmt.Errorf("query: %w", Unavailable("acquire conn", errors.New("dial tcp: refused")))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "dial tcp")
}

func TestToGRPCStatus(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{fmt.Errorf("x: %w", ErrNotFound), codes.NotFound},
		{NewAppError(CodeInvalidArgument, "bad", nil), codes.InvalidArgument},
		{Unavailable("down", nil), codes.Unavailable},
		{errors.New("boom"), codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, status.Code(ToGRPCStatus(tt.err)), tt.err.Error())
	}
	assert.NoError(t, ToGRPCStatus(nil))
}

func TestValidatorRules(t *testing.T) {
	qty := 0
	err := NewValidator().
		Field("name", "  ", Required).
		Field("note", "abcdef", MaxLength(3)).
		Field("quantity", &qty, PositiveInt).
		Field("id", "not-a-uuid", UUID).
		Err()
	assert.ErrorIs(t, err, ErrInvalidArgument)
	for _, f := range []string{"'name'", "'note'", "'quantity'", "'id'"} {
		assert.Contains(t, err.Error(), f)
	}
	assert.NoError(t, NewValidator().Field("name", "ok", Required).Err())
}
