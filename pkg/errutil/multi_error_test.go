package errutil

import (
	"errors"
	"testing"
)

var (
	err1 = errors.New("error 1")
	err2 = errors.New("error 2")
	err3 = errors.New("error 3")
)

func TestMulti(t *testing.T) {
	if Multi() != nil {
		t.Errorf("Multi() != nil")
	}
	if Multi(nil, nil) != nil {
		t.Errorf("Multi(nil, nil) != nil")
	}
	if err := Multi(nil, err1); err != err1 {
		t.Errorf("Multi(nil, err1) = %v, want err1", err)
	}

	want := "multiple errors: error 1; error 2; error 3"
	if got := Multi(err1, err2, err3).Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := Multi(Multi(err1, err2), nil, err3).Error(); got != want {
		t.Errorf("nested Multi: got %q, want %q", got, want)
	}
}
