package moderation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/stagelink/modgate/resources"
)

const policyResource = "policy/moderation.yml"

type (
	// Policy is the moderation rulebook loaded from the embedded resource.
	// The classifier prompt and the user-facing explanations are both
	// rendered from it so the taxonomy lives in exactly one place.
	Policy struct {
		PolicyStatement string                    `yaml:"policy_statement"`
		ViolationTypes  map[string]PolicyCategory `yaml:"violation_types"`
		FalsePositives  string                    `yaml:"false_positives"`
	}

	PolicyCategory struct {
		Label    string `yaml:"label"`
		Guidance string `yaml:"guidance"`
	}
)

func LoadPolicy() (*Policy, error) {
	raw, err := resources.FS.ReadFile(policyResource)
	if err != nil {
		return nil, errors.Wrap(err, "read policy resource")
	}
	policy := &Policy{}
	if err := yaml.Unmarshal(raw, policy); err != nil {
		return nil, errors.Wrap(err, "unmarshal policy resource")
	}
	if err := policy.validate(); err != nil {
		return nil, err
	}
	return policy, nil
}

// validate keeps the YAML taxonomy and the ViolationType enum in lockstep.
func (p *Policy) validate() error {
	if strings.TrimSpace(p.PolicyStatement) == "" {
		return errors.New("policy statement is empty")
	}
	for name, category := range p.ViolationTypes {
		if !ViolationType(name).Valid() || ViolationType(name) == ViolationNone {
			return errors.Errorf("unknown violation type %q in policy resource", name)
		}
		if strings.TrimSpace(category.Label) == "" {
			return errors.Errorf("violation type %q has no label", name)
		}
	}
	for _, known := range []ViolationType{ViolationEmail, ViolationPhone, ViolationSocialMedia, ViolationPaymentLink, ViolationExternalLink} {
		if _, ok := p.ViolationTypes[string(known)]; !ok {
			return errors.Errorf("violation type %q missing from policy resource", known)
		}
	}
	return nil
}

// Types returns the declared violation types in stable order, without "none".
func (p *Policy) Types() []string {
	types := make([]string, 0, len(p.ViolationTypes))
	for name := range p.ViolationTypes {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// Label returns the plain-language description used in user explanations.
func (p *Policy) Label(violationType ViolationType) string {
	if category, ok := p.ViolationTypes[string(violationType)]; ok {
		return category.Label
	}
	return "violating the platform messaging policy"
}

// SystemPrompt renders the classifier instruction from the taxonomy.
func (p *Policy) SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a content moderation system for a booking marketplace chat. ")
	b.WriteString("Analyze the user message for attempts to move contact or payment off the platform.\n\n")
	b.WriteString("Violation categories:\n")
	for _, name := range p.Types() {
		category := p.ViolationTypes[name]
		fmt.Fprintf(&b, "- %s: %s\n", name, strings.TrimSpace(category.Guidance))
	}
	b.WriteString("\nNot violations: ")
	b.WriteString(strings.TrimSpace(p.FalsePositives))
	b.WriteString("\n\nRespond ONLY with a JSON object with these exact fields:\n")
	b.WriteString(`{"isViolation": boolean, "violationType": one of `)
	b.WriteString(`"` + strings.Join(append(p.Types(), string(ViolationNone)), `", "`) + `"`)
	b.WriteString(`, "confidence": number between 0 and 1, "flaggedContent": the offending substring or "", "explanation": short reason}`)
	return b.String()
}
