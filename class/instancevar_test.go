package class

import "testing"

func TestInstanceVariableIndexWalksSuperclassChain(t *testing.T) {
	h := newTestHeap(t)
	r := NewRegistry(h)

	pointBuilder, err := r.NewClass("Point", Class{})
	if err != nil {
		t.Fatalf("NewClass Point: %v", err)
	}
	pointBuilder.AddInstanceVariables("x", "y")
	point, err := pointBuilder.Finish()
	if err != nil {
		t.Fatalf("Finish Point: %v", err)
	}

	coloredBuilder, err := r.NewClass("ColoredPoint", point)
	if err != nil {
		t.Fatalf("NewClass ColoredPoint: %v", err)
	}
	coloredBuilder.AddInstanceVariables("color")
	colored, err := coloredBuilder.Finish()
	if err != nil {
		t.Fatalf("Finish ColoredPoint: %v", err)
	}

	cases := []struct {
		name      string
		wantIndex int
	}{
		{"x", 0},
		{"y", 1},
		{"color", 2},
	}
	for _, c := range cases {
		idx, ok := InstanceVariableIndex(h, colored, c.name)
		if !ok {
			t.Errorf("InstanceVariableIndex(%q) not found", c.name)
			continue
		}
		if idx != c.wantIndex {
			t.Errorf("InstanceVariableIndex(%q) = %d, want %d", c.name, idx, c.wantIndex)
		}
	}

	if _, ok := InstanceVariableIndex(h, colored, "nonexistent"); ok {
		t.Errorf("InstanceVariableIndex(%q) unexpectedly found", "nonexistent")
	}

	if got := InstanceVariableCount(h, colored); got != 3 {
		t.Errorf("InstanceVariableCount(ColoredPoint) = %d, want 3", got)
	}
	if got := InstanceVariableCount(h, point); got != 2 {
		t.Errorf("InstanceVariableCount(Point) = %d, want 2", got)
	}
}
