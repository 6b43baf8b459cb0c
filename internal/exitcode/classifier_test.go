package exitcode

import (
	"strings"
	"testing"
)

func TestClassifyBuiltInPolicies(t *testing.T) {
	c := NewClassifier()
	tests := []struct {
		kind    Kind
		code    int
		success bool
	}{
		{KindMirror, 0, true},
		{KindMirror, 1, true},
		{KindMirror, 2, false},
		{KindMirror, 3, false},
		{KindMirror, 8, false},
		{KindGeneric, 0, true},
		{KindGeneric, 1, false},
		{KindGit, 0, true},
		{KindGit, 128, false},
		{KindRsync, 0, true},
		{KindRsync, 24, true},
		{KindRsync, 23, false},
		{KindBuild, 0, true},
		{KindBuild, 1, false},
		{Kind("unknown"), 0, true},
		{Kind("unknown"), 1, false},
	}
	for _, tt := range tests {
		got := c.Classify(tt.kind, tt.code)
		if got.Success != tt.success {
			t.Fatalf("Classify(%s, %d) success=%v, want %v", tt.kind, tt.code, got.Success, tt.success)
		}
	}
}

func TestMirrorFailureNoteNamesProblem(t *testing.T) {
	got := Mirror(9)
	if got.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(got.Note, "copy failures") || !strings.Contains(got.Note, "files copied") {
		t.Fatalf("unexpected note: %q", got.Note)
	}
	if note := Mirror(1).Note; note != "files copied" {
		t.Fatalf("unexpected success note: %q", note)
	}
}

func TestNegativeCodeIsAlwaysFailure(t *testing.T) {
	c := NewClassifier()
	c.Register(Kind("lenient"), func(int) Verdict { return Verdict{Success: true} })
	if got := c.Classify(Kind("lenient"), -1); got.Success {
		t.Fatal("expected local-action sentinel to fail")
	}
}

func TestRegisterDoesNotAffectOtherKinds(t *testing.T) {
	c := NewClassifier()
	c.Register(KindGeneric, func(code int) Verdict { return Verdict{Success: code <= 3} })

	if !c.Classify(KindGeneric, 3).Success {
		t.Fatal("expected replaced generic policy to accept 3")
	}
	if c.Classify(KindMirror, 3).Success {
		t.Fatal("mirror policy must be unaffected")
	}
	if c.Classify(KindGit, 1).Success {
		t.Fatal("git policy must be unaffected")
	}
	c.Register(KindGit, nil)
	if !c.Classify(KindGit, 0).Success {
		t.Fatal("nil policy must be ignored")
	}
}

func TestNilClassifierUsesGeneric(t *testing.T) {
	var c *Classifier
	if !c.Classify(KindMirror, 0).Success || c.Classify(KindMirror, 1).Success {
		t.Fatal("nil classifier should fall back to generic policy")
	}
}
