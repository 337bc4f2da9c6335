package logger

import "testing"

func TestSanitizeKVsRedactsSecretKeys(t *testing.T) {
	out := sanitizeKVs([]interface{}{"db_password", "hunter2", "status", "parsed"})
	if len(out) != 4 {
		t.Fatalf("len: want=4 got=%d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("password: want=[REDACTED] got=%v", out[1])
	}
	if out[3] != "parsed" {
		t.Fatalf("status: want=parsed got=%v", out[3])
	}
}

func TestSanitizeKVsStripsURLPasswords(t *testing.T) {
	out := sanitizeKVs([]interface{}{"target", "postgres://finsights:s3cret@db:5432/finsights"})
	got, _ := out[1].(string)
	if got != "postgres://finsights:xxxxx@db:5432/finsights" {
		t.Fatalf("target: got=%q", got)
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"status", "failed", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("odd kv: got=%v", out)
	}
}
