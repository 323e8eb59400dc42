package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nmadhukar/jsonlogic-rules-engine-sub000/ir"
)

const stepPrefix = "$."

// stepKey extracts the step key from a "$.<key>.<rest>" path.
func stepKey(path string) (string, bool) {
	if !strings.HasPrefix(path, stepPrefix) {
		return "", false
	}
	key, _, _ := strings.Cut(path[len(stepPrefix):], ".")
	return key, true
}

func referenceSet(n ir.Node) map[string]bool {
	refs := map[string]bool{}
	ir.Walk(n, func(n ir.Node) bool {
		if path, ok := ir.VarPath(n); ok {
			if key, ok := stepKey(path); ok {
				refs[key] = true
			}
		}
		return true
	})
	return refs
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ReferencedSteps returns the keys of the steps whose outputs n reads, sorted.
func ReferencedSteps(n ir.Node) []string {
	return sortedKeys(referenceSet(n))
}

// ValidateStepReferences reports every step referenced by n that is not in available.
func ValidateStepReferences(n ir.Node, available map[string]bool) []string {
	var errs []string
	for _, key := range ReferencedSteps(n) {
		if !available[key] {
			errs = append(errs, fmt.Sprintf("Reference to unknown step: $.%s", key))
		}
	}
	return errs
}
