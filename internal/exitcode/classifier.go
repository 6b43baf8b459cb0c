package exitcode

import (
	"fmt"
	"sync"
)

// Kind identifies the exit-code convention of an external command.
type Kind string

const (
	KindGeneric Kind = "generic"
	KindGit     Kind = "git"
	KindMirror  Kind = "mirror"
	KindRsync   Kind = "rsync"
	KindBuild   Kind = "build"
)

// Verdict is the classification of one exit code.
type Verdict struct {
	Success bool
	Note    string
}

// Policy classifies exit codes for a single Kind.
type Policy func(code int) Verdict

// Classifier is a lookup of policies keyed by Kind. Unknown kinds fall back to
// the generic zero-is-success policy.
type Classifier struct {
	mu       sync.RWMutex
	policies map[Kind]Policy
}

// NewClassifier returns a classifier preloaded with the built-in policies.
func NewClassifier() *Classifier {
	return &Classifier{
		policies: map[Kind]Policy{
			KindGeneric: Generic,
			KindGit:     Git,
			KindMirror:  Mirror,
			KindRsync:   Rsync,
			KindBuild:   Generic,
		},
	}
}

// Register installs or replaces the policy for kind.
func (c *Classifier) Register(kind Kind, policy Policy) {
	if policy == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.policies == nil {
		c.policies = make(map[Kind]Policy)
	}
	c.policies[kind] = policy
}

// Classify returns the verdict for code under the policy registered for kind.
// Negative codes are the local-action failure sentinel and never succeed.
func (c *Classifier) Classify(kind Kind, code int) Verdict {
	if code < 0 {
		return Verdict{Success: false, Note: fmt.Sprintf("local action failed (%d)", code)}
	}
	policy := Generic
	if c != nil {
		c.mu.RLock()
		if p, ok := c.policies[kind]; ok {
			policy = p
		}
		c.mu.RUnlock()
	}
	return policy(code)
}

// Generic treats 0 as success and anything else as failure.
func Generic(code int) Verdict {
	if code == 0 {
		return Verdict{Success: true}
	}
	return Verdict{}
}

// Git is the generic policy with a hint pointing at the git output.
func Git(code int) Verdict {
	if code == 0 {
		return Verdict{Success: true}
	}
	return Verdict{Note: fmt.Sprintf("git exited with %d, check the output for conflicts or rejected refs", code)}
}

// Mirror follows the robocopy bit field: 0 and 1 are success, any value with
// bit 1 (mismatch), 2 (failure) or 3 (fatal) set is a problem the operator
// must inspect.
func Mirror(code int) Verdict {
	switch code {
	case 0:
		return Verdict{Success: true, Note: "no changes"}
	case 1:
		return Verdict{Success: true, Note: "files copied"}
	}
	return Verdict{Note: fmt.Sprintf("copy was not perfect (%s), check the output for possible problems", mirrorFlags(code))}
}

func mirrorFlags(code int) string {
	labels := []string{"files copied", "extra files", "mismatched files", "copy failures", "fatal error"}
	var out string
	for bit, label := range labels {
		if code&(1<<bit) == 0 {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += label
	}
	if out == "" {
		return fmt.Sprintf("code %d", code)
	}
	return out
}

// Rsync treats 0 as success and 24 (source files vanished) as success with a
// note; everything else fails.
func Rsync(code int) Verdict {
	switch code {
	case 0:
		return Verdict{Success: true}
	case 24:
		return Verdict{Success: true, Note: "some source files vanished before they could be transferred"}
	}
	return Verdict{Note: fmt.Sprintf("rsync exited with %d, check the output for possible problems", code)}
}
