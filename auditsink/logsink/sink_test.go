package logsink

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	identity "github.com/MrEthical07/goIdentity"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestEmitWritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	s := New(zerolog.New(&buf))

	require.NoError(t, s.Emit(context.Background(), identity.AuditEvent{
		ID: "e1", Timestamp: time.Now(), Action: identity.AuditMFAVerifyFailed, UserID: "u1",
		EntityType: "mfa_factor", EntityID: "f1", Error: "code_rejected",
		Details: map[string]string{"challenge_id": "c1"},
	}))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "warn", rec["level"])
	require.Equal(t, "audit", rec["component"])
	require.Equal(t, identity.AuditMFAVerifyFailed, rec["action"])
	require.Equal(t, "code_rejected", rec["error_code"])
	require.Equal(t, map[string]any{"challenge_id": "c1"}, rec["details"])
}

func TestEmitSuccessIsInfoWithoutEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(zerolog.New(&buf)).Emit(context.Background(), identity.AuditEvent{
		ID: "e2", Action: identity.AuditPasswordResetRequested, EntityType: "user", Success: true,
	}))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "info", rec["level"])
	require.NotContains(t, rec, "user_id")
	require.NotContains(t, rec, "error_code")
}
