package moderation

import (
	"fmt"
	"time"

	"github.com/iamwavecut/tool"
)

const (
	blockedTemplate = `Your message was not delivered because it appears to be {{ .category }}. {{ .policy }} {{ .warning }}`

	suspendedTemplate = `Your account is suspended until {{ .until }} due to repeated policy violations. You cannot send messages during this period. Contact support if you believe this is a mistake.`
)

// BlockedExplanation composes the user-facing message for a blocked
// submission: category, policy statement, and the escalation warning that
// matches the post-strike count.
func BlockedExplanation(policy *Policy, verdict *Verdict, strikeCount int) string {
	return tool.ExecTemplate(blockedTemplate, map[string]any{
		"category": policy.Label(verdict.ViolationType),
		"policy":   policy.PolicyStatement,
		"warning":  escalationWarning(strikeCount),
	})
}

// SuspendedExplanation is used both when the threshold strike lands and when
// a suspended user is short-circuited before classification.
func SuspendedExplanation(until time.Time) string {
	return tool.ExecTemplate(suspendedTemplate, map[string]any{
		"until": until.UTC().Format("January 2, 2006 15:04 MST"),
	})
}

func escalationWarning(strikeCount int) string {
	switch {
	case strikeCount <= 1:
		return "This is your first warning."
	case strikeCount == 2:
		return "This is your second warning - one more violation will suspend your account."
	default:
		return fmt.Sprintf("Your account has been suspended after %d violations and requires manual review.", strikeCount)
	}
}
