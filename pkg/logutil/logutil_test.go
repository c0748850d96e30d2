package logutil

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger(t *testing.T) {
	logger := GetLogger("foo ")
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(io.Discard) })

	logger.Println("out")
	if got := buf.String(); !strings.HasPrefix(got, "foo ") || !strings.HasSuffix(got, "out\n") {
		t.Errorf("got %q, want line with prefix %q and suffix %q", got, "foo ", "out\n")
	}

	// Loggers created later share the output.
	GetLogger("bar ").Println("later")
	if got := buf.String(); !strings.Contains(got, "bar ") {
		t.Errorf("got %q, want it to contain %q", got, "bar ")
	}
}

func TestSetOutputFile(t *testing.T) {
	logger := GetLogger("file ")
	fname := filepath.Join(t.TempDir(), "log")
	if err := SetOutputFile(fname); err != nil {
		t.Fatal(err)
	}
	logger.Println("in file")
	// Switching the output closes the file.
	SetOutputFile("")

	content, err := os.ReadFile(fname)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "in file") {
		t.Errorf("log file has %q, want it to contain %q", content, "in file")
	}
}

func TestSetOutputFile_Error(t *testing.T) {
	err := SetOutputFile(filepath.Join(t.TempDir(), "no", "such", "dir"))
	if err == nil {
		t.Errorf("want error")
	}
}
