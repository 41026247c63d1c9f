package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID     string `json:"id"`
	Amount string `json:"amount"`
}

func TestJSONCodec(t *testing.T) {
	codec := jsonCodec{}
	assert.Equal(t, "json", codec.Name())

	var got sample
	require.NoError(t, codec.Unmarshal([]byte(`{"id":"s1","amount":"1.50"}`), &got))
	assert.Equal(t, sample{ID: "s1", Amount: "1.50"}, got)

	assert.Error(t, codec.Unmarshal([]byte(`{"id":"s1","amout":"1.50"}`), &got), "unknown fields are rejected")

	var empty sample
	require.NoError(t, codec.Unmarshal(nil, &empty))
	assert.Equal(t, sample{}, empty)
}
