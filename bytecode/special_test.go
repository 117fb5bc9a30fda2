package bytecode

import "testing"

func TestSpecialSelectorIndexFindsKnownSelectors(t *testing.T) {
	cases := []struct {
		selector string
		argCount int
		want     int
	}{
		{"+", 1, 0},
		{"at:put:", 2, 17},
		{"isNil", 0, 27},
	}
	for _, c := range cases {
		idx, ok := SpecialSelectorIndex(c.selector, c.argCount)
		if !ok {
			t.Errorf("SpecialSelectorIndex(%q, %d) not found", c.selector, c.argCount)
			continue
		}
		if idx != c.want {
			t.Errorf("SpecialSelectorIndex(%q, %d) = %d, want %d", c.selector, c.argCount, idx, c.want)
		}
	}
}

func TestSpecialSelectorIndexMissForUnknownArity(t *testing.T) {
	if _, ok := SpecialSelectorIndex("+", 2); ok {
		t.Errorf("SpecialSelectorIndex(\"+\", 2) unexpectedly found")
	}
	if _, ok := SpecialSelectorIndex("frobnicate:", 1); ok {
		t.Errorf("SpecialSelectorIndex(\"frobnicate:\", 1) unexpectedly found")
	}
}

func TestSpecialSelectorsTableMatchesRangeSize(t *testing.T) {
	if len(SpecialSelectors) != SpecialSelector.Size {
		t.Errorf("len(SpecialSelectors) = %d, want %d", len(SpecialSelectors), SpecialSelector.Size)
	}
}
