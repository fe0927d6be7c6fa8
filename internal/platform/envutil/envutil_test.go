package envutil

import (
	"reflect"
	"testing"
	"time"
)

func TestString(t *testing.T) {
	t.Setenv("ENVUTIL_STR", "  value ")
	if got := String("ENVUTIL_STR", "def", nil); got != "value" {
		t.Fatalf("String: want=%q got=%q", "value", got)
	}
	t.Setenv("ENVUTIL_STR", "")
	if got := String("ENVUTIL_STR", "def", nil); got != "def" {
		t.Fatalf("String empty: want=%q got=%q", "def", got)
	}
}

func TestInt(t *testing.T) {
	t.Setenv("ENVUTIL_INT", "42")
	if got := Int("ENVUTIL_INT", 7, nil); got != 42 {
		t.Fatalf("Int: want=42 got=%d", got)
	}
	t.Setenv("ENVUTIL_INT", "forty")
	if got := Int("ENVUTIL_INT", 7, nil); got != 7 {
		t.Fatalf("Int invalid: want=7 got=%d", got)
	}
}

func TestBool(t *testing.T) {
	for raw, want := range map[string]bool{"true": true, "ON": true, "1": true, "no": false, "0": false} {
		t.Setenv("ENVUTIL_BOOL", raw)
		if got := Bool("ENVUTIL_BOOL", !want, nil); got != want {
			t.Fatalf("Bool(%q): want=%v got=%v", raw, want, got)
		}
	}
	t.Setenv("ENVUTIL_BOOL", "maybe")
	if got := Bool("ENVUTIL_BOOL", true, nil); got != true {
		t.Fatalf("Bool invalid: want default")
	}
}

func TestDuration(t *testing.T) {
	t.Setenv("ENVUTIL_DUR", "90")
	if got := Duration("ENVUTIL_DUR", time.Second, nil); got != 90*time.Second {
		t.Fatalf("Duration seconds: got=%s", got)
	}
	t.Setenv("ENVUTIL_DUR", "5m")
	if got := Duration("ENVUTIL_DUR", time.Second, nil); got != 5*time.Minute {
		t.Fatalf("Duration string: got=%s", got)
	}
	t.Setenv("ENVUTIL_DUR", "soon")
	if got := Duration("ENVUTIL_DUR", time.Second, nil); got != time.Second {
		t.Fatalf("Duration invalid: got=%s", got)
	}
}

func TestList(t *testing.T) {
	t.Setenv("ENVUTIL_LIST", "a, b,,c ")
	if got := List("ENVUTIL_LIST", nil, nil); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("List: got=%v", got)
	}
	t.Setenv("ENVUTIL_LIST", " , ")
	if got := List("ENVUTIL_LIST", []string{"x"}, nil); !reflect.DeepEqual(got, []string{"x"}) {
		t.Fatalf("List blank: got=%v", got)
	}
}

func TestFloat(t *testing.T) {
	t.Setenv("ENVUTIL_FLOAT", "0.25")
	if got := Float("ENVUTIL_FLOAT", 1, nil); got != 0.25 {
		t.Fatalf("Float: got=%v", got)
	}
	t.Setenv("ENVUTIL_FLOAT", "half")
	if got := Float("ENVUTIL_FLOAT", 1, nil); got != 1 {
		t.Fatalf("Float invalid: got=%v", got)
	}
}
