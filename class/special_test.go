package class

import (
	"testing"

	"github.com/lodtalk-go/vm/object"
)

func TestClassIndexOfValueForImmediates(t *testing.T) {
	cases := []struct {
		name string
		v    object.Value
		want uint32
	}{
		{"SmallInteger", object.EncodeSmallInteger(7), SpecialSmallInteger},
		{"Character", object.EncodeCharacter('a'), SpecialCharacter},
	}
	for _, c := range cases {
		if got := ClassIndexOfValue(c.v); got != c.want {
			t.Errorf("%s: ClassIndexOfValue = %d, want %d", c.name, got, c.want)
		}
	}

	if f, ok := object.EncodeSmallFloat(3.5); ok {
		if got := ClassIndexOfValue(f); got != SpecialSmallFloat {
			t.Errorf("SmallFloat: ClassIndexOfValue = %d, want %d", got, SpecialSmallFloat)
		}
	}
}
