package security

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	digest, err := h.Hash([]byte("correct horse battery"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if digest == "" {
		t.Fatal("Hash returned empty digest")
	}
	if err := h.Compare(digest, []byte("correct horse battery")); err != nil {
		t.Fatalf("Compare with matching password: %v", err)
	}
	if err := h.Compare(digest, []byte("wrong")); err == nil {
		t.Fatal("Compare accepted a wrong password")
	}
}

func TestNewHasherClampsCost(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, bcrypt.DefaultCost},
		{-3, bcrypt.DefaultCost},
		{2, bcrypt.MinCost},
		{12, 12},
		{99, bcrypt.MaxCost},
	}
	for _, tc := range cases {
		if got := NewHasher(tc.in).Cost; got != tc.want {
			t.Errorf("NewHasher(%d).Cost = %d, want %d", tc.in, got, tc.want)
		}
	}
}
