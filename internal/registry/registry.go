// Package registry loads and validates the YAML tool registry. The registry
// maps profiles to allowed tools and budget ceilings, and tool names to their
// domain, side-effect class, and input schema. It is read-only after load and
// is the single source of truth for a tool's side-effect classification.
package registry

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cadence-hq/cadence/internal/plan"
	"github.com/cadence-hq/cadence/internal/types"
)

// DefaultBudgetCeiling applies when a profile omits budget_ceiling.
const DefaultBudgetCeiling = 50.0

// Profile scopes which tools a caller may plan with and how much aggregate
// estimated cost a plan may carry.
type Profile struct {
	Description   string   `yaml:"description"`
	AllowedTools  []string `yaml:"allowed_tools"`
	BudgetCeiling float64  `yaml:"budget_ceiling"`
}

// Allows reports whether the profile permits the named tool. An empty
// allow-list permits every registered tool.
func (p Profile) Allows(tool string) bool {
	if len(p.AllowedTools) == 0 {
		return true
	}
	for _, t := range p.AllowedTools {
		if t == tool {
			return true
		}
	}
	return false
}

// ToolDef is the static declaration of a tool: what it does, which domain it
// belongs to, and whether invoking it has side effects.
type ToolDef struct {
	Description string            `yaml:"description"`
	Domain      string            `yaml:"domain"`
	Purpose     string            `yaml:"purpose"`
	SideEffects plan.SideEffect   `yaml:"side_effects"`
	Inputs      map[string]string `yaml:"inputs"`
}

// RequiresApproval reports whether the tool's side-effect class gates it
// behind approval.
func (d ToolDef) RequiresApproval() bool {
	return d.SideEffects.RequiresApproval()
}

// Registry is the parsed, validated registry document.
type Registry struct {
	Profiles map[string]Profile `yaml:"profiles"`
	Tools    map[string]ToolDef `yaml:"tools"`
}

// ToolInfo is a tool definition paired with its name, for presentation to
// planners and decomposers.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Domain      string          `json:"domain"`
	Purpose     string          `json:"purpose,omitempty"`
	SideEffects plan.SideEffect `json:"side_effects"`
	Inputs      []string        `json:"inputs,omitempty"`
}

// Load reads and validates a registry document from disk.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapError(types.REGISTRY_LOAD_FAILED,
			fmt.Sprintf("reading registry file %s", path), err)
	}
	return Parse(data)
}

// Parse decodes and validates a registry document.
func Parse(data []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, types.WrapError(types.REGISTRY_PARSE_FAILED, "decoding registry YAML", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate checks the document's structural invariants. Errors name the
// offending field.
func (r *Registry) Validate() error {
	if len(r.Tools) == 0 {
		return types.NewError(types.REGISTRY_VALIDATION_FAILED, "registry declares no tools")
	}
	if len(r.Profiles) == 0 {
		return types.NewError(types.REGISTRY_VALIDATION_FAILED, "registry declares no profiles")
	}

	for name, tool := range r.Tools {
		if tool.Domain == "" {
			return types.NewError(types.REGISTRY_VALIDATION_FAILED,
				fmt.Sprintf("tools.%s: domain is required", name))
		}
		if tool.SideEffects == "" {
			return types.NewError(types.REGISTRY_VALIDATION_FAILED,
				fmt.Sprintf("tools.%s: side_effects is required", name))
		}
		if !tool.SideEffects.IsValid() {
			return types.NewError(types.REGISTRY_VALIDATION_FAILED,
				fmt.Sprintf("tools.%s: side_effects must be one of read-only, propose, execute; got %q",
					name, tool.SideEffects))
		}
	}

	for name, profile := range r.Profiles {
		if profile.BudgetCeiling < 0 {
			return types.NewError(types.REGISTRY_VALIDATION_FAILED,
				fmt.Sprintf("profiles.%s: budget_ceiling must not be negative", name))
		}
		for _, tool := range profile.AllowedTools {
			if _, ok := r.Tools[tool]; !ok {
				return types.NewError(types.REGISTRY_VALIDATION_FAILED,
					fmt.Sprintf("profiles.%s: allowed tool %q is not declared under tools", name, tool))
			}
		}
	}

	return nil
}

// Profile returns the named profile.
func (r *Registry) Profile(name string) (Profile, error) {
	p, ok := r.Profiles[name]
	if !ok {
		return Profile{}, types.NewError(types.PROFILE_NOT_FOUND,
			fmt.Sprintf("profile %q is not declared in the registry", name))
	}
	return p, nil
}

// Tool returns the named tool definition.
func (r *Registry) Tool(name string) (ToolDef, error) {
	d, ok := r.Tools[name]
	if !ok {
		return ToolDef{}, types.NewError(types.TOOL_NOT_FOUND,
			fmt.Sprintf("tool %q is not declared in the registry", name))
	}
	return d, nil
}

// BudgetCeiling returns the profile's ceiling, falling back to the default
// when unset.
func (r *Registry) BudgetCeiling(profile string) float64 {
	p, err := r.Profile(profile)
	if err != nil || p.BudgetCeiling == 0 {
		return DefaultBudgetCeiling
	}
	return p.BudgetCeiling
}

// AvailableTools returns the tools the profile allows, sorted by name for
// deterministic presentation.
func (r *Registry) AvailableTools(profileName string) ([]ToolInfo, error) {
	profile, err := r.Profile(profileName)
	if err != nil {
		return nil, err
	}

	var out []ToolInfo
	for name, def := range r.Tools {
		if !profile.Allows(name) {
			continue
		}
		inputs := make([]string, 0, len(def.Inputs))
		for input := range def.Inputs {
			inputs = append(inputs, input)
		}
		sort.Strings(inputs)
		out = append(out, ToolInfo{
			Name:        name,
			Description: def.Description,
			Domain:      def.Domain,
			Purpose:     def.Purpose,
			SideEffects: def.SideEffects,
			Inputs:      inputs,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
