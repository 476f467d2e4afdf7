package moderation

// ViolationType is the closed taxonomy the classifier prompt declares.
// Adding a category requires updating resources/policy/moderation.yml in the
// same change, the prompt is rendered from it.
type ViolationType string

const (
	ViolationEmail        ViolationType = "email"
	ViolationPhone        ViolationType = "phone"
	ViolationSocialMedia  ViolationType = "social_media"
	ViolationPaymentLink  ViolationType = "payment_link"
	ViolationExternalLink ViolationType = "external_link"
	ViolationNone         ViolationType = "none"
)

func (v ViolationType) Valid() bool {
	switch v {
	case ViolationEmail, ViolationPhone, ViolationSocialMedia, ViolationPaymentLink, ViolationExternalLink, ViolationNone:
		return true
	}
	return false
}

// Verdict is the classifier's structured judgment about a single message.
// It is transient, only MessageFlag rows derived from it are persisted.
type Verdict struct {
	IsViolation    bool          `json:"isViolation"`
	ViolationType  ViolationType `json:"violationType"`
	Confidence     float64       `json:"confidence"`
	FlaggedContent string        `json:"flaggedContent"`
	Explanation    string        `json:"explanation"`
}
