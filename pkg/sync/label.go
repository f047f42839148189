package sync

import (
	"regexp"
	"strings"
)

// LabelSync is the generic label attached to every sync pull request.
const LabelSync = "sync"

// labelPrefix prefixes the per-tag idempotency label; the same string is
// used as the sync branch name.
const labelPrefix = "sync/upstream-"

// Label derives the deterministic idempotency marker for an upstream tag.
// The label doubles as the sync branch name.
func Label(tagName string) string {
	return labelPrefix + tagName
}

var branchPattern = regexp.MustCompile(`^sync/upstream-(.+)$`)

// TagFromBranch extracts the upstream tag name embedded in a sync branch
// name. The second return is false for branches that are not sync branches;
// that is a skip condition, not an error.
func TagFromBranch(branch string) (string, bool) {
	m := branchPattern.FindStringSubmatch(strings.TrimSpace(branch))
	if m == nil {
		return "", false
	}
	return m[1], true
}
