package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "direct", err: New(MissingConnection, "no identity"), want: MissingConnection},
		{name: "wrapped by fmt", err: fmt.Errorf("outer: %w", New(OperationTimeout, "slow")), want: OperationTimeout},
		{name: "plain error", err: stderrors.New("boom"), want: VendorExecution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(OperationTimeout, "click #submit", context.DeadlineExceeded)

	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, "operation_timeout: click #submit: context deadline exceeded", err.Error())
	assert.True(t, Is(err, OperationTimeout))
	assert.False(t, Is(nil, OperationTimeout))
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, "boom", Message(stderrors.New("boom")))
	assert.Equal(t, "Unsupported MongoDB operation: shard", Message(New(UnsupportedOperation, "Unsupported MongoDB operation: shard")))
	assert.Equal(t, "find: connect: refused",
		Message(Wrap(VendorExecution, "find", Wrap(ConnectionFailed, "connect", stderrors.New("refused")))))
}
