package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeCode(t *testing.T) {
	tests := []struct {
		name     string
		service  int
		category int
		sequence int
		expected int
	}{
		{name: "common request", service: 0, category: 1, sequence: 1, expected: 1001},
		{name: "qa request", service: 20, category: 1, sequence: 1, expected: 2001001},
		{name: "qa not found", service: 20, category: 4, sequence: 1, expected: 2004001},
		{name: "llm network", service: 90, category: 10, sequence: 3, expected: 9010003},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MakeCode(tt.service, tt.category, tt.sequence))
		})
	}
}

func TestParseCode(t *testing.T) {
	service, category, sequence := ParseCode(2004001)
	assert.Equal(t, ServiceQA, service)
	assert.Equal(t, CategoryResource, category)
	assert.Equal(t, 1, sequence)
}

func TestClientServerErrorClassification(t *testing.T) {
	assert.True(t, IsClientError(ErrQAInvalidRequest.Code))
	assert.True(t, IsClientError(ErrQATenantNotFound.Code))
	assert.False(t, IsClientError(ErrQAStoreFailed.Code))

	assert.True(t, IsServerError(ErrQAStoreFailed.Code))
	assert.True(t, IsServerError(ErrTranscribeFailed.Code))
	assert.False(t, IsServerError(ErrQABadTimestamp.Code))

	assert.True(t, IsSuccess(OK.Code))
}

func TestErrnoWithCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := ErrQAStoreFailed.WithCause(cause)

	assert.ErrorIs(t, err, ErrQAStoreFailed)
	assert.ErrorContains(t, err, "connection refused")
	assert.Equal(t, ErrQAStoreFailed.Code, err.Code)

	// WithCause 不修改原始定义
	assert.NoError(t, ErrQAStoreFailed.Unwrap())
}

func TestErrnoWithMessage(t *testing.T) {
	err := ErrQAInvalidRequest.WithMessage("tenant is required")
	assert.Equal(t, "tenant is required", err.MessageEN)
	assert.Equal(t, ErrQAInvalidRequest.Code, err.Code)
	assert.Equal(t, "Invalid request parameters", ErrQAInvalidRequest.MessageEN)
}

func TestErrnoHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, ErrQATenantNotFound.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, ErrQADimensionMismatch.HTTPStatus())
	assert.Equal(t, http.StatusBadGateway, ErrLLMEmbeddingFailed.HTTPStatus())

	// HTTP 未设置时回退 500
	e := &Errno{Code: 1, MessageEN: "x"}
	assert.Equal(t, http.StatusInternalServerError, e.HTTPStatus())
}

func TestErrnoMessageLanguage(t *testing.T) {
	assert.Equal(t, "租户不存在", ErrQATenantNotFound.Message("zh"))
	assert.Equal(t, "Tenant not found", ErrQATenantNotFound.Message("en"))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	e := FromError(ErrQANoResults)
	assert.Same(t, ErrQANoResults, e)

	wrapped := FromError(errors.New("boom"))
	require.NotNil(t, wrapped)
	assert.Equal(t, ErrInternal.Code, wrapped.Code)
	assert.ErrorContains(t, wrapped, "boom")
}

func TestLookup(t *testing.T) {
	e, ok := Lookup(ErrQABadTimestamp.Code)
	require.True(t, ok)
	assert.Same(t, ErrQABadTimestamp, e)

	_, ok = Lookup(9999999)
	assert.False(t, ok)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		Register(New(ErrQAInvalidRequest.Code, 400, "dup", ""))
	})
}
