package rbac

import (
	"fmt"
)

// Checker resolves permissions against a validated Config.
// Every lookup is deny-by-default: anything the table does not grant is false.
type Checker struct {
	config       Config
	roleIndex    map[Role]int
	capabilities map[Role]map[Resource]map[Action]bool
	actionToPerm map[Action]Permission
	labels       map[Action]string
	validPerms   map[Permission]bool
	validRoles   map[Role]bool
}

// New creates a Checker from a validated Config
func New(cfg Config) (*Checker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rc := &Checker{config: cfg}
	rc.buildLookups()
	return rc, nil
}

// MustNew creates a Checker and panics on invalid config
func MustNew(cfg Config) *Checker {
	rc, err := New(cfg)
	if err != nil {
		panic(fmt.Sprintf(errMustNewPanicFmt, err))
	}
	return rc
}

func (rc *Checker) buildLookups() {
	cfg := rc.config

	rc.roleIndex = make(map[Role]int, len(cfg.Roles))
	rc.validRoles = make(map[Role]bool, len(cfg.Roles))
	for _, rd := range cfg.Roles {
		rc.roleIndex[rd.Name] = rd.Level
		rc.validRoles[rd.Name] = true
	}

	rc.capabilities = make(map[Role]map[Resource]map[Action]bool, len(cfg.Capabilities))
	for role, resources := range cfg.Capabilities {
		rc.capabilities[role] = make(map[Resource]map[Action]bool, len(resources))
		for res, actions := range resources {
			rc.capabilities[role][res] = make(map[Action]bool, len(actions))
			for _, act := range actions {
				rc.capabilities[role][res][act] = true
			}
		}
	}

	rc.actionToPerm = make(map[Action]Permission, len(cfg.ActionPermissions))
	for _, am := range cfg.ActionPermissions {
		rc.actionToPerm[am.Action] = am.Permission
	}

	rc.validPerms = make(map[Permission]bool, len(cfg.Permissions))
	for _, p := range cfg.Permissions {
		rc.validPerms[p] = true
	}

	rc.labels = make(map[Action]string, len(cfg.Labels))
	for _, l := range cfg.Labels {
		rc.labels[l.Action] = l.Label
	}
}

// HasPermission reports whether role may perform action on resource.
// Unknown roles, resources and actions are denied.
func (rc *Checker) HasPermission(role Role, resource Resource, action Action) bool {
	resources, ok := rc.capabilities[role]
	if !ok {
		return false
	}
	actions, ok := resources[resource]
	if !ok {
		return false
	}
	return actions[action]
}

// CanAccessResource reports whether role holds at least one action on resource
func (rc *Checker) CanAccessResource(role Role, resource Resource) bool {
	for _, granted := range rc.capabilities[role][resource] {
		if granted {
			return true
		}
	}
	return false
}

// PermissionsFor returns the complete matrix for role. The result holds every
// resource and action of the vocabulary, so a role with no grants (or an
// unknown role) gets an all-false matrix rather than missing entries.
func (rc *Checker) PermissionsFor(role Role) RolePermissions {
	matrix := make(RolePermissions, len(rc.config.Resources))
	for _, rd := range rc.config.Resources {
		actions := make(map[Action]bool, len(rd.Actions))
		for _, act := range rd.Actions {
			actions[act] = rc.HasPermission(role, rd.Name, act)
		}
		matrix[rd.Name] = actions
	}
	return matrix
}

// Authorize checks if the subject can perform an action on a resource
func (rc *Checker) Authorize(subject *AuthSubject, resource Resource, action Action) error {
	if subject == nil {
		return fmt.Errorf(errDeniedNilSubjectFmt, ErrDenied, ErrNilSubject)
	}

	switch subject.Type {
	case AuthTypeSession:
		return rc.authorizeUserRole(subject.UserRole, resource, action)
	default:
		return fmt.Errorf(errDeniedUnknownAuthTypeFmt, ErrDenied, subject.Type)
	}
}

// IsAuthorized returns a boolean version of Authorize
func (rc *Checker) IsAuthorized(subject *AuthSubject, resource Resource, action Action) bool {
	return rc.Authorize(subject, resource, action) == nil
}

// RequireRole checks if the subject has at least the minimum required role
func (rc *Checker) RequireRole(subject *AuthSubject, minRole Role) error {
	if subject == nil {
		return fmt.Errorf(errDeniedNilSubjectFmt, ErrDenied, ErrNilSubject)
	}
	if subject.Type != AuthTypeSession {
		return fmt.Errorf(errDeniedRoleCheckRequiresSession, ErrDenied)
	}
	if !rc.IsRoleElevated(subject.UserRole, minRole) {
		return fmt.Errorf(errDeniedMinRoleRequiredFmt, ErrDenied, minRole, subject.UserRole)
	}
	return nil
}

func (rc *Checker) authorizeUserRole(role Role, resource Resource, action Action) error {
	if role == "" {
		return fmt.Errorf(errDeniedUserRoleEmpty, ErrDenied)
	}
	if !rc.HasPermission(role, resource, action) {
		return fmt.Errorf(errDeniedRoleCannotPerformActionFmt, ErrDenied, role, action, resource)
	}
	return nil
}

// IsRoleElevated checks if role1 has equal or higher privilege than role2
func (rc *Checker) IsRoleElevated(role1, role2 Role) bool {
	level1, exists1 := rc.roleIndex[role1]
	level2, exists2 := rc.roleIndex[role2]
	if !exists1 || !exists2 {
		return false
	}
	return level1 >= level2
}

// ValidateRole validates a role string against configured roles
func (rc *Checker) ValidateRole(role string) (Role, error) {
	r := Role(role)
	if rc.validRoles[r] {
		return r, nil
	}
	return "", fmt.Errorf(errInvalidRoleFmt, ErrInvalidRole, role)
}

// Roles returns the configured roles ordered as declared
func (rc *Checker) Roles() []RoleDefinition {
	out := make([]RoleDefinition, len(rc.config.Roles))
	copy(out, rc.config.Roles)
	return out
}

// Resources returns the resource vocabulary ordered as declared
func (rc *Checker) Resources() []ResourceDefinition {
	out := make([]ResourceDefinition, len(rc.config.Resources))
	copy(out, rc.config.Resources)
	return out
}

// ValidatePermissions validates an array of API key permissions
func (rc *Checker) ValidatePermissions(permissions []Permission) error {
	if len(permissions) == 0 {
		return fmt.Errorf(errInvalidPermissionEmptyFmt, ErrInvalidPermission)
	}
	for _, perm := range permissions {
		if !rc.validPerms[perm] {
			return fmt.Errorf(errInvalidPermissionFmt, ErrInvalidPermission, perm)
		}
	}
	return nil
}

// IsValidResource reports whether resource belongs to the vocabulary
func (rc *Checker) IsValidResource(resource Resource) bool {
	for _, rd := range rc.config.Resources {
		if rd.Name == resource {
			return true
		}
	}
	return false
}

// ActionToPermission maps an action to the API key permission covering it
func (rc *Checker) ActionToPermission(action Action) Permission {
	return rc.actionToPerm[action]
}

// ActionLabel returns the display label for action, falling back to the
// action name when no label is configured.
func (rc *Checker) ActionLabel(action Action) string {
	if label, ok := rc.labels[action]; ok {
		return label
	}
	return string(action)
}
