package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/Team-SSOK/ssok-auth-client/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewWithWriter(&buf, "warn", "ssok", "PROD")

	log.Info().Msg("dropped")
	log.Warn().Str("k", "v").Msg("kept")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "kept", entry["message"])
	require.Equal(t, "ssok", entry["app"])
	require.Equal(t, "PROD", entry["env"])
	require.Equal(t, "v", entry["k"])
}

func TestFingerprint(t *testing.T) {
	require.Empty(t, logging.Fingerprint(""))
	fp := logging.Fingerprint("secret-token")
	require.Len(t, fp, 12)
	require.Equal(t, fp, logging.Fingerprint("secret-token"))
	require.NotEqual(t, fp, logging.Fingerprint("other-token"))
}

func TestMaskPhone(t *testing.T) {
	require.Equal(t, "*******5678", logging.MaskPhone("01012345678"))
	require.Equal(t, "****", logging.MaskPhone("123"))
}
