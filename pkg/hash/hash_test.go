package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeHash(t *testing.T) {
	assert.Empty(t, ComputeHash([]byte("x"), ""))

	h := ComputeHash([]byte(`{"temperature":21.5}`), "secret")
	assert.Len(t, h, 64)
	assert.Equal(t, h, ComputeHash([]byte(`{"temperature":21.5}`), "secret"))
	assert.NotEqual(t, h, ComputeHash([]byte(`{"temperature":21.5}`), "other"))
	assert.NotEqual(t, h, ComputeHash([]byte(`{"temperature":21.6}`), "secret"))
}

func TestValidateHash(t *testing.T) {
	data := []byte("payload")
	valid := ComputeHash(data, "secret")

	tests := []struct {
		name string
		key  string
		hash string
		want bool
	}{
		{name: "valid", key: "secret", hash: valid, want: true},
		{name: "no key", key: "", hash: "anything", want: true},
		{name: "missing hash", key: "secret", hash: "", want: false},
		{name: "wrong hash", key: "secret", hash: "deadbeef", want: false},
		{name: "wrong key", key: "other", hash: valid, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateHash(data, tt.key, tt.hash))
		})
	}
}

func BenchmarkComputeHash(b *testing.B) {
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i % 256)
	}
	for b.Loop() {
		ComputeHash(data, "secret-key")
	}
}

func BenchmarkValidateHash(b *testing.B) {
	data := []byte("test data")
	valid := ComputeHash(data, "secret-key")
	for b.Loop() {
		ValidateHash(data, "secret-key", valid)
	}
}
