package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRunHashesArguments(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(&out, strings.NewReader(""), []string{"correct horse battery"}, bcrypt.MinCost))

	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse battery")))
}

func TestRunReadsStdin(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("first-password-1\nsecond-password-2\n")
	require.NoError(t, run(&out, in, nil, bcrypt.MinCost))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(lines[1]), []byte("second-password-2")))
}

func TestRunRejectsShortPassword(t *testing.T) {
	var out bytes.Buffer
	err := run(&out, strings.NewReader(""), []string{"short"}, bcrypt.MinCost)
	assert.Error(t, err)
	assert.Empty(t, out.String())
}
