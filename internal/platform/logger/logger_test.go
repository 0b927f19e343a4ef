package logger

import "testing"

func TestSanitizeKVs_RedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{"api_key", "sk-123", "model", "text-embedding-3-small", "Password", "hunter2"})
	if len(out) != 6 {
		t.Fatalf("expected 6 values, got %d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("expected api_key to be redacted, got %v", out[1])
	}
	if out[3] != "text-embedding-3-small" {
		t.Fatalf("expected model to pass through, got %v", out[3])
	}
	if out[5] != "[REDACTED]" {
		t.Fatalf("expected password to be redacted, got %v", out[5])
	}
}

func TestSanitizeKVs_OddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"chunks", 3, "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected output: %v", out)
	}
}
