package diag

import "testing"

func TestRanging(t *testing.T) {
	a := Ranging{1, 3}
	b := PointRanging(7)
	if b != (Ranging{7, 7}) {
		t.Errorf("PointRanging(7) -> %v", b)
	}
	if got := MixedRanging(a, b); got != (Ranging{1, 7}) {
		t.Errorf("MixedRanging -> %v", got)
	}
}
