package rbac

// AuthType represents the authentication method used
type AuthType string

const (
	AuthTypeSession AuthType = "session"
	AuthTypeAPIKey  AuthType = "api_key"
)

// Role represents a team member's role (hierarchical)
type Role string

// Permission represents a coarse API key permission
type Permission string

// Resource represents a CRM area guarded by the permission table
type Resource string

// Action represents an operation on a resource
type Action string

// AuthSubject represents the entity performing an action
type AuthSubject struct {
	Type     AuthType
	UserID   string
	UserRole Role
}

// RoleDefinition defines a role and its privilege level
type RoleDefinition struct {
	Name  Role
	Level int
}

// ResourceDefinition declares a resource together with its closed action vocabulary
type ResourceDefinition struct {
	Name    Resource
	Actions []Action
}

// ActionMapping maps a role-level action onto the API key permission that covers it.
// Several actions may map to the same permission.
type ActionMapping struct {
	Action     Action
	Permission Permission
}

// ActionLabel is the display label of an action
type ActionLabel struct {
	Action Action
	Label  string
}

// RolePermissions is the full resource/action matrix of one role.
// Every resource and action of the vocabulary is present.
type RolePermissions map[Resource]map[Action]bool

// Allows reports whether the matrix grants action on resource
func (rp RolePermissions) Allows(resource Resource, action Action) bool {
	actions, ok := rp[resource]
	if !ok {
		return false
	}
	return actions[action]
}
