package security

import "testing"

func TestHashRefreshTokenDeterministic(t *testing.T) {
	a := HashRefreshToken("rt-abc")
	b := HashRefreshToken("rt-abc")
	if a != b {
		t.Errorf("same token hashed to %q and %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("digest length = %d, want 64 hex chars", len(a))
	}
	if HashRefreshToken("rt-xyz") == a {
		t.Error("distinct tokens produced the same digest")
	}
}

func TestRefreshTokenHashEqual(t *testing.T) {
	stored := HashRefreshToken("rt-abc")
	if !RefreshTokenHashEqual("rt-abc", stored) {
		t.Error("matching token was rejected")
	}
	if RefreshTokenHashEqual("rt-xyz", stored) {
		t.Error("wrong token was accepted")
	}
	if RefreshTokenHashEqual("rt-abc", stored[:32]) {
		t.Error("truncated stored digest was accepted")
	}
	if RefreshTokenHashEqual("", "") {
		t.Error("empty digest should never match")
	}
}
