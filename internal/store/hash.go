package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// ComputeFingerprint hashes a run's issues independent of their order.
// Two runs with the same fingerprint found exactly the same problems.
func ComputeFingerprint(issues []Issue) string {
	keys := make([]string, len(issues))
	for i, is := range issues {
		keys[i] = fmt.Sprintf("%s\x00%s\x00%s\x00%s\x00%d", is.Severity, is.Rule, is.Message, is.File, is.Line)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s\n", k)
	}
	return hex.EncodeToString(h.Sum(nil))
}
