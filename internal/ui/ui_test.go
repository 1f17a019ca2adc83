package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmDefaultsToNo(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "explicit yes", input: "y\n", want: true},
		{name: "spelled out yes", input: "YES\n", want: true},
		{name: "explicit no", input: "n\n", want: false},
		{name: "blank answer declines", input: "\n", want: false},
		{name: "garbage declines", input: "sure\n", want: false},
		{name: "eof declines", input: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out strings.Builder
			term := New(strings.NewReader(tt.input), &out)
			assert.Equal(t, tt.want, term.Confirm("Release?"))
			assert.Contains(t, out.String(), "[y/N]")
		})
	}
}

func TestChoose(t *testing.T) {
	var out strings.Builder
	term := New(strings.NewReader("2\n"), &out)

	idx, err := term.Choose("Pick an environment:", []string{"staging", "production"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Contains(t, out.String(), "1) staging")
	assert.Contains(t, out.String(), "2) production")
}

func TestChooseRepromptsOnInvalidInput(t *testing.T) {
	var out strings.Builder
	term := New(strings.NewReader("zero\n9\n1\n"), &out)

	idx, err := term.Choose("Pick:", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Contains(t, out.String(), "Invalid choice.")
}

func TestChooseEOF(t *testing.T) {
	term := New(strings.NewReader(""), &strings.Builder{})
	_, err := term.Choose("Pick:", []string{"a"})
	assert.Error(t, err)
}

func TestChooseNoOptions(t *testing.T) {
	term := New(strings.NewReader("1\n"), &strings.Builder{})
	_, err := term.Choose("Pick:", nil)
	assert.Error(t, err)
}
