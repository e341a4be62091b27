// Package tool defines the tool catalog and the trust-tier policy that maps
// each tool to an execution mode.
//
// A trust tier is assigned by the tool's author and treated as a
// security-relevant constant, not configuration. There is no default tier:
// a tool definition without a valid tier is rejected at catalog-load time so
// a missing tier can never silently fall back to the most permissive mode.
package tool

import (
	"github.com/Strob0t/Gatekeeper/internal/domain"
)

// TrustTier classifies how much autonomy a tool is granted before producing
// a side effect.
type TrustTier string

const (
	// TierT1 tools execute immediately with no human checkpoint.
	TierT1 TrustTier = "T1"
	// TierT2 tools execute, then surface a time-limited confirmable notice.
	TierT2 TrustTier = "T2"
	// TierT3 tools never execute directly; a proposal must be confirmed first.
	TierT3 TrustTier = "T3"
)

// ExecutionMode is the decision produced by resolving a tool's trust tier.
type ExecutionMode string

const (
	ModeAuto        ExecutionMode = "auto"
	ModeSoftConfirm ExecutionMode = "soft_confirm"
	ModeHardConfirm ExecutionMode = "hard_confirm"
)

// Tool is a named capability the agent may invoke.
type Tool struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	TrustTier   TrustTier      `json:"trust_tier" yaml:"trust_tier"`
	InputSchema map[string]any `json:"input_schema,omitempty" yaml:"input_schema,omitempty"`
}

// ResolveMode maps a trust tier to its execution mode.
// Unknown or absent tiers are an error, never a fallback.
func ResolveMode(tier TrustTier) (ExecutionMode, error) {
	switch tier {
	case TierT1:
		return ModeAuto, nil
	case TierT2:
		return ModeSoftConfirm, nil
	case TierT3:
		return ModeHardConfirm, nil
	}
	return "", domain.Validationf("invalid trust tier %q", tier)
}

// Mutating reports whether the tool's tier implies side effects that need an
// executor registered at startup (T2 and T3).
func (t Tool) Mutating() bool {
	return t.TrustTier == TierT2 || t.TrustTier == TierT3
}

// Validate checks that a Tool definition is well-formed.
func (t Tool) Validate() error {
	if t.Name == "" {
		return domain.Validationf("tool: name is required")
	}
	if _, err := ResolveMode(t.TrustTier); err != nil {
		return domain.Validationf("tool %q: trust_tier is required and must be one of T1, T2, T3 (got %q)", t.Name, t.TrustTier)
	}
	return nil
}
