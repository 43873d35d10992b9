package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty string",
			input: "",
			want:  "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:  "simple string",
			input: "abc",
			want:  "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HashString(tt.input)
			assert.Len(t, got, 64)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHashString_Deterministic(t *testing.T) {
	assert.Equal(t, HashString("valid_key_1"), HashString("valid_key_1"))
	assert.NotEqual(t, HashString("valid_key_1"), HashString("valid_key_2"))
}
