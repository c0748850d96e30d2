package state

import "testing"

func TestProperties(t *testing.T) {
	var p Properties
	if _, ok := p.Get("X"); ok {
		t.Errorf("zero Properties has X")
	}
	p.Append("L", "a")
	p.Append("L", "b")
	p.Append("L", "")
	p.AppendString("S", "x")
	p.AppendString("S", "y")
	if v, _ := p.Get("L"); v != "a;b" {
		t.Errorf("L = %q", v)
	}
	if v, _ := p.Get("S"); v != "xy" {
		t.Errorf("S = %q", v)
	}
	p.Remove("S")
	if names := p.Names(); len(names) != 1 || names[0] != "L" {
		t.Errorf("Names = %v", names)
	}
}
