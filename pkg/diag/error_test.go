package diag

import "testing"

func TestError(t *testing.T) {
	err := &Error{
		Type:     "parse error",
		Message:  `Function missing ending ")".`,
		Position: Position{File: "CMakeLists.txt", Line: 2, Column: 5},
		Ranging:  Ranging{From: 10, To: 12},
	}

	wantErrorString := `parse error: CMakeLists.txt:2:5: Function missing ending ")".`
	if got := err.Error(); got != wantErrorString {
		t.Errorf("Error() -> %q, want %q", got, wantErrorString)
	}
	if got := err.Range(); got != (Ranging{10, 12}) {
		t.Errorf("Range() -> %v", got)
	}
	wantShow := "parse error: \033[31;1mFunction missing ending \")\".\033[m\n  at CMakeLists.txt:2:5"
	if got := err.Show(""); got != wantShow {
		t.Errorf("Show() -> %q, want %q", got, wantShow)
	}
}
