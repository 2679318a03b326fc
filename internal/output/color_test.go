package output

import (
	"bytes"
	"testing"
)

func TestResolveColorMode(t *testing.T) {
	tests := []struct {
		name  string
		mode  string
		isTTY bool
		want  bool
	}{
		{name: "never on tty", mode: "never", isTTY: true, want: false},
		{name: "never off tty", mode: "never", isTTY: false, want: false},
		{name: "always on tty", mode: "always", isTTY: true, want: true},
		{name: "always off tty", mode: "always", isTTY: false, want: true},
		{name: "auto on tty", mode: "auto", isTTY: true, want: true},
		{name: "auto off tty", mode: "auto", isTTY: false, want: false},
		{name: "unknown falls back to auto", mode: "sometimes", isTTY: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveColorMode(tt.mode, tt.isTTY); got != tt.want {
				t.Errorf("ResolveColorMode(%q, %v) = %v, want %v", tt.mode, tt.isTTY, got, tt.want)
			}
		})
	}
}

func TestIsTTY_Buffer(t *testing.T) {
	var buf bytes.Buffer
	if IsTTY(&buf) {
		t.Error("IsTTY(buffer) should return false")
	}
}
