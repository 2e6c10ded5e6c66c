package docker

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryHost(t *testing.T) {
	tests := []struct {
		ref      string
		expected string
	}{
		{"postgres:11.2-alpine", "docker.io"},
		{"library/postgres", "docker.io"},
		{"ghcr.io/acme/postgres:15", "ghcr.io"},
		{"localhost:5000/postgres", "localhost:5000"},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			host, err := RegistryHost(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, host)
		})
	}

	for _, bad := range []string{"postgres:", "Postgres"} {
		_, err := RegistryHost(bad)
		assert.Error(t, err, bad)
	}
}

func decodeAuth(t *testing.T, encoded string) map[string]string {
	t.Helper()
	raw, err := base64.URLEncoding.DecodeString(encoded)
	require.NoError(t, err)
	var out map[string]string
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestEncodeAuth(t *testing.T) {
	t.Run("anonymous", func(t *testing.T) {
		encoded, err := encodeAuth("ghcr.io", "", "")
		require.NoError(t, err)
		assert.Empty(t, encoded)
	})

	t.Run("user and password", func(t *testing.T) {
		encoded, err := encodeAuth("ghcr.io", "bot", "s3cret")
		require.NoError(t, err)

		auth := decodeAuth(t, encoded)
		assert.Equal(t, "bot", auth["username"])
		assert.Equal(t, "s3cret", auth["password"])
		assert.Equal(t, "ghcr.io", auth["serveraddress"])
	})

	t.Run("identity token", func(t *testing.T) {
		encoded, err := encodeAuth("myregistry.azurecr.io", "", "token")
		require.NoError(t, err)

		auth := decodeAuth(t, encoded)
		assert.Equal(t, "token", auth["identitytoken"])
		assert.Empty(t, auth["username"])
	})
}
