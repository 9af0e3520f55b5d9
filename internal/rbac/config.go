package rbac

import "fmt"

// Config holds all RBAC configuration
type Config struct {
	Roles             []RoleDefinition
	Permissions       []Permission
	Resources         []ResourceDefinition
	Capabilities      map[Role]map[Resource][]Action
	ActionPermissions []ActionMapping
	Labels            []ActionLabel
}

// Validate checks internal consistency of the Config
func (c *Config) Validate() error {
	if len(c.Roles) == 0 {
		return fmt.Errorf(errConfigRolesEmpty)
	}
	if len(c.Permissions) == 0 {
		return fmt.Errorf(errConfigPermissionsEmpty)
	}
	if len(c.Resources) == 0 {
		return fmt.Errorf(errConfigResourcesEmpty)
	}
	if len(c.Capabilities) == 0 {
		return fmt.Errorf(errConfigCapabilitiesEmpty)
	}
	if len(c.ActionPermissions) == 0 {
		return fmt.Errorf(errConfigActionPermissionsEmpty)
	}

	roleNames := make(map[Role]bool, len(c.Roles))
	roleLevels := make(map[int]Role, len(c.Roles))
	for _, rd := range c.Roles {
		if rd.Name == "" {
			return fmt.Errorf(errConfigRoleNameEmpty)
		}
		if roleNames[rd.Name] {
			return fmt.Errorf(errConfigDuplicateRoleNameFmt, rd.Name)
		}
		if existing, dup := roleLevels[rd.Level]; dup {
			return fmt.Errorf(errConfigDuplicateRoleLevelFmt, rd.Level, existing, rd.Name)
		}
		roleNames[rd.Name] = true
		roleLevels[rd.Level] = rd.Name
	}

	permSet := make(map[Permission]bool, len(c.Permissions))
	for _, p := range c.Permissions {
		if p == "" {
			return fmt.Errorf(errConfigPermissionEmpty)
		}
		if permSet[p] {
			return fmt.Errorf(errConfigDuplicatePermissionFmt, p)
		}
		permSet[p] = true
	}

	vocabulary := make(map[Resource]map[Action]bool, len(c.Resources))
	allActions := make(map[Action]bool)
	for _, rd := range c.Resources {
		if rd.Name == "" {
			return fmt.Errorf(errConfigResourceEmpty)
		}
		if _, dup := vocabulary[rd.Name]; dup {
			return fmt.Errorf(errConfigDuplicateResourceFmt, rd.Name)
		}
		if len(rd.Actions) == 0 {
			return fmt.Errorf(errConfigResourceActionsEmptyFmt, rd.Name)
		}
		acts := make(map[Action]bool, len(rd.Actions))
		for _, a := range rd.Actions {
			if a == "" {
				return fmt.Errorf(errConfigActionEmptyFmt, rd.Name)
			}
			if acts[a] {
				return fmt.Errorf(errConfigDuplicateActionFmt, rd.Name, a)
			}
			acts[a] = true
			allActions[a] = true
		}
		vocabulary[rd.Name] = acts
	}

	for role, resources := range c.Capabilities {
		if !roleNames[role] {
			return fmt.Errorf(errConfigCapabilityUnknownRoleFmt, role)
		}
		for res, actions := range resources {
			acts, ok := vocabulary[res]
			if !ok {
				return fmt.Errorf(errConfigCapabilityUnknownResourceFmt, role, res)
			}
			for _, act := range actions {
				if !acts[act] {
					return fmt.Errorf(errConfigCapabilityUnknownActionFmt, role, res, act)
				}
			}
		}
	}

	mapped := make(map[Action]bool, len(c.ActionPermissions))
	for _, am := range c.ActionPermissions {
		if !allActions[am.Action] {
			return fmt.Errorf(errConfigMappingUnknownActionFmt, am.Action)
		}
		if !permSet[am.Permission] {
			return fmt.Errorf(errConfigMappingUnknownPermissionFmt, am.Permission)
		}
		if mapped[am.Action] {
			return fmt.Errorf(errConfigMappingDuplicateActionFmt, am.Action)
		}
		mapped[am.Action] = true
	}

	labelled := make(map[Action]bool, len(c.Labels))
	for _, l := range c.Labels {
		if !allActions[l.Action] {
			return fmt.Errorf(errConfigLabelUnknownActionFmt, l.Action)
		}
		if labelled[l.Action] {
			return fmt.Errorf(errConfigDuplicateLabelFmt, l.Action)
		}
		labelled[l.Action] = true
	}

	return nil
}
