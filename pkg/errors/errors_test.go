package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(InvalidInput, "bad argument")
	assert.Equal(t, InvalidInput, err.Code())
	assert.Equal(t, "invalid_input: bad argument", err.Error())
	assert.Nil(t, err.Unwrap())
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(cause, DownloadFailed, "snapshot download failed")

	assert.Equal(t, DownloadFailed, err.Code())
	assert.Contains(t, err.Error(), "snapshot download failed")
	assert.Contains(t, err.Error(), "boom")
	assert.True(t, Is(err, cause))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, Unknown, "ignored"))
}

func TestWithFields(t *testing.T) {
	err := WithFields(
		New(ResourceNotFound, "model not found"),
		Fields{"model": "damo/test-model"},
	)

	require.NotNil(t, err)
	assert.Equal(t, ResourceNotFound, err.Code())
	assert.Equal(t, "damo/test-model", err.Fields()["model"])
}

func TestWithFieldsMerges(t *testing.T) {
	err := WithFields(New(ValidationFailed, "missing keys"), Fields{"task": "t"})
	err = WithFields(err, Fields{"missing_keys": []string{"scores"}})

	assert.Equal(t, "t", err.Fields()["task"])
	assert.Equal(t, []string{"scores"}, err.Fields()["missing_keys"])
	assert.Equal(t, ValidationFailed, err.Code())
}

func TestWithFieldsPlainError(t *testing.T) {
	err := WithFields(stderrors.New("plain"), Fields{"key": "value"})

	require.NotNil(t, err)
	assert.Equal(t, Unknown, err.Code())
	assert.Equal(t, "value", err.Fields()["key"])
}

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"coded error", New(InvalidInput, "x"), InvalidInput},
		{"wrapped coded error", Wrap(New(ValidationFailed, "x"), Unknown, "outer").Unwrap(), ValidationFailed},
		{"plain error", stderrors.New("x"), Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}
