package migrate

import (
	"strings"
	"testing"
)

func TestParseDirection(t *testing.T) {
	cases := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{"up", Up, false},
		{"down", Down, false},
		{"", "", true},
		{"UP", "", true},
		{"sideways", "", true},
	}
	for _, tc := range cases {
		got, err := ParseDirection(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseDirection(%q): want error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseDirection(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestRunRejectsEmptyDSN(t *testing.T) {
	if err := Run("", Up); err == nil {
		t.Fatal("Run with empty DSN should fail")
	}
}

func TestRunRejectsBadDirection(t *testing.T) {
	err := Run("postgres://localhost/erp", Direction("sideways"))
	if err == nil {
		t.Fatal("Run with bad direction should fail")
	}
	if !strings.Contains(err.Error(), "direction") {
		t.Errorf("error %q should name the direction flag", err)
	}
}
