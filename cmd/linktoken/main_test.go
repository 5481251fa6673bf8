package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tempizhere/linkpulse/internal/identity"
)

func TestRun_IssuesVerifiableToken(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-secret", "s3cret", "-sub", "partner-42", "-ttl", "1h"}, &out))

	token := strings.TrimSpace(out.String())
	key, err := identity.NewJWTVerifier("s3cret", issuer).Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "jwt:partner-42", key)

	_, err = identity.NewJWTVerifier("other", issuer).Verify(context.Background(), token)
	assert.ErrorIs(t, err, identity.ErrInvalidCredential)
}

func TestRun_SecretFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")

	var out bytes.Buffer
	require.NoError(t, run([]string{"-sub", "alice"}, &out))

	verifier := identity.NewJWTVerifier("from-env", issuer)
	_, err := verifier.Verify(context.Background(), strings.TrimSpace(out.String()))
	assert.NoError(t, err)
}

func TestRun_Invalid(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing secret", args: []string{"-sub", "alice"}},
		{name: "missing subject", args: []string{"-secret", "s3cret"}},
		{name: "non-positive ttl", args: []string{"-secret", "s3cret", "-sub", "alice", "-ttl", (-time.Hour).String()}},
		{name: "unknown flag", args: []string{"-bogus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Error(t, run(tt.args, &out))
			assert.Empty(t, out.String())
		})
	}
}
