package authz

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/fieldflow/fieldflow/internal/domain"
)

//go:embed rules.yaml
var defaultRules []byte

// Compile-time check: Oracle implements domain.AbilityOracle.
var _ domain.AbilityOracle = (*Oracle)(nil)

// rulesFile models rules.yaml.
type rulesFile struct {
	Roles map[string]struct {
		Description string   `yaml:"description"`
		Actions     []string `yaml:"actions"`
	} `yaml:"roles"`
	AssigneeBound []string `yaml:"assignee_bound"`
}

// Oracle answers ability checks from a declarative role/action table,
// plus the assignee-binding rule: actions listed as assignee_bound are
// only granted to technicians and vendors when the work order is
// dispatched to them personally.
type Oracle struct {
	roleActions   map[domain.Role]map[domain.Action]bool
	wildcard      map[domain.Role]bool
	assigneeBound map[domain.Action]bool
}

// NewOracle builds an oracle from the embedded rule set.
func NewOracle() (*Oracle, error) {
	return NewOracleFromYAML(defaultRules)
}

// NewOracleFromYAML builds an oracle from raw YAML rules, for callers
// that ship their own policy.
func NewOracleFromYAML(data []byte) (*Oracle, error) {
	var rules rulesFile
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("invalid ability rules yaml: %w", err)
	}
	if len(rules.Roles) == 0 {
		return nil, fmt.Errorf("ability rules define no roles")
	}

	o := &Oracle{
		roleActions:   make(map[domain.Role]map[domain.Action]bool),
		wildcard:      make(map[domain.Role]bool),
		assigneeBound: make(map[domain.Action]bool),
	}
	for name, role := range rules.Roles {
		actions := make(map[domain.Action]bool, len(role.Actions))
		for _, a := range role.Actions {
			if a == "*" {
				o.wildcard[domain.Role(name)] = true
				continue
			}
			actions[domain.Action(a)] = true
		}
		o.roleActions[domain.Role(name)] = actions
	}
	for _, a := range rules.AssigneeBound {
		o.assigneeBound[domain.Action(a)] = true
	}

	return o, nil
}

// Can reports whether the actor may perform the action on the work
// order. Unknown roles can do nothing.
func (o *Oracle) Can(_ context.Context, actor domain.Actor, action domain.Action, wo domain.WorkOrder) bool {
	actions, known := o.roleActions[actor.Role]
	if !known {
		return false
	}
	if !o.wildcard[actor.Role] && !actions[action] {
		return false
	}

	if o.assigneeBound[action] && isFieldRole(actor.Role) {
		return wo.Assignment != nil && wo.Assignment.AssigneeID == actor.ID
	}

	return true
}

func isFieldRole(r domain.Role) bool {
	return r == domain.RoleTechnician || r == domain.RoleVendor
}
