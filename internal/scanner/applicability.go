package scanner

import (
	"bytes"
	"strings"
)

// Predicate decides whether a scanner applies to a project.
type Predicate func(sc *Context) bool

// HasFiles is satisfied when any file matches any of the globs.
func HasFiles(patterns ...string) Predicate {
	return func(sc *Context) bool {
		if len(patterns) == 0 {
			return false
		}
		return sc.Files().HasAny(patterns...)
	}
}

// HasDependency is satisfied when an earlier scanner reported a dependency
// whose artifact, group or group/artifact path contains one of the needles.
func HasDependency(needles ...string) Predicate {
	return func(sc *Context) bool {
		for _, d := range sc.Previous().Dependencies() {
			full := d.ArtifactID
			if d.GroupID != "" {
				full = d.GroupID + "/" + d.ArtifactID
			}
			for _, n := range needles {
				if n != "" && strings.Contains(strings.ToLower(full), strings.ToLower(n)) {
					return true
				}
			}
		}
		return false
	}
}

// FileContains is satisfied when a file matching pattern contains needle.
func FileContains(pattern, needle string) Predicate {
	return func(sc *Context) bool {
		files, err := sc.FindFiles(pattern)
		if err != nil {
			return false
		}
		for _, f := range files {
			data, err := sc.ReadFile(f)
			if err == nil && bytes.Contains(data, []byte(needle)) {
				return true
			}
		}
		return false
	}
}

// All is satisfied when every predicate is.
func All(preds ...Predicate) Predicate {
	return func(sc *Context) bool {
		for _, p := range preds {
			if !p(sc) {
				return false
			}
		}
		return true
	}
}

// Any is satisfied when at least one predicate is.
func Any(preds ...Predicate) Predicate {
	return func(sc *Context) bool {
		for _, p := range preds {
			if p(sc) {
				return true
			}
		}
		return false
	}
}

func Not(p Predicate) Predicate {
	return func(sc *Context) bool { return !p(sc) }
}
