package util

import (
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func TestFormatTokens(t *testing.T) {
	tests := []struct {
		name string
		in   *int
		want string
	}{
		{"nil", nil, "-"},
		{"small", intPtr(500), "500"},
		{"thousands", intPtr(1500), "1.5K"},
		{"millions", intPtr(1500000), "1.5M"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTokens(tt.in); got != tt.want {
				t.Errorf("FormatTokens() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := FormatSeconds(0.25); got != "250ms" {
		t.Errorf("FormatSeconds(0.25) = %q", got)
	}
	if got := FormatSeconds(1.5); got != "1.50s" {
		t.Errorf("FormatSeconds(1.5) = %q", got)
	}
}

func TestFormatDateTime(t *testing.T) {
	if got := FormatDateTime(time.Time{}); got != "-" {
		t.Errorf("zero time = %q", got)
	}
	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	if got := FormatDateTime(ts); got != "2025-03-04 05:06" {
		t.Errorf("FormatDateTime = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hello…"},
		{"  padded  ", 10, "padded"},
		{"héllo", 2, "hé…"},
		{"any", 0, "any"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestDataDirRespectsXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	dir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir failed: %v", err)
	}
	if dir != "/tmp/xdg-data/mlab" {
		t.Errorf("DataDir = %q", dir)
	}

	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	dir, err = ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir failed: %v", err)
	}
	if dir != "/tmp/xdg-config/mlab" {
		t.Errorf("ConfigDir = %q", dir)
	}
}
