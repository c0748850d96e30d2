//go:build unix

package sys

import (
	"os"
	"testing"

	"github.com/creack/pty"
)

func TestIsATTY(t *testing.T) {
	p, tty, err := pty.Open()
	if err != nil {
		t.Skip("no pty:", err)
	}
	defer p.Close()
	defer tty.Close()

	if !IsATTY(tty) {
		t.Errorf("IsATTY(tty) = false, want true")
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()
	if IsATTY(w) {
		t.Errorf("IsATTY(pipe) = true, want false")
	}
}
