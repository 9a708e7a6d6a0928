package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTernary(t *testing.T) {
	assert.Equal(t, "kafka", Ternary(true, "kafka", "memory"))
	assert.Equal(t, 2, Ternary(false, 1, 2))
}

func TestUnmarshalAndHandle(t *testing.T) {
	type payload struct {
		ID int64 `json:"id"`
	}
	log := zap.NewNop()

	var got int64
	ok := UnmarshalAndHandle[payload](log, "post.created", json.RawMessage(`{"id":42}`), func(p payload) { got = p.ID })
	assert.True(t, ok)
	assert.Equal(t, int64(42), got)

	called := false
	assert.False(t, UnmarshalAndHandle[payload](log, "post.created", json.RawMessage(`{"id":"x"}`), func(payload) { called = true }))
	assert.False(t, UnmarshalAndHandle[payload](log, "post.created", nil, func(payload) { called = true }))
	assert.False(t, called)
}
