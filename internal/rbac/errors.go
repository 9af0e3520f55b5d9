package rbac

import "errors"

var (
	ErrDenied            = errors.New("authorization denied")
	ErrNilSubject        = errors.New("subject is nil")
	ErrInvalidRole       = errors.New("invalid role")
	ErrInvalidPermission = errors.New("invalid permission")
)

const (
	errConfigRolesEmpty                   = "rbac config: roles must not be empty"
	errConfigPermissionsEmpty             = "rbac config: permissions must not be empty"
	errConfigResourcesEmpty               = "rbac config: resources must not be empty"
	errConfigCapabilitiesEmpty            = "rbac config: capabilities must not be empty"
	errConfigActionPermissionsEmpty       = "rbac config: action-to-permission map must not be empty"
	errConfigRoleNameEmpty                = "rbac config: role name must not be empty"
	errConfigDuplicateRoleNameFmt         = "rbac config: duplicate role name: %s"
	errConfigDuplicateRoleLevelFmt        = "rbac config: duplicate role level %d (roles %s and %s)"
	errConfigPermissionEmpty              = "rbac config: permission must not be empty"
	errConfigDuplicatePermissionFmt       = "rbac config: duplicate permission: %s"
	errConfigResourceEmpty                = "rbac config: resource must not be empty"
	errConfigDuplicateResourceFmt         = "rbac config: duplicate resource: %s"
	errConfigResourceActionsEmptyFmt      = "rbac config: resource %s declares no actions"
	errConfigActionEmptyFmt               = "rbac config: resource %s declares an empty action"
	errConfigDuplicateActionFmt           = "rbac config: resource %s declares duplicate action: %s"
	errConfigCapabilityUnknownRoleFmt     = "rbac config: capability references unknown role: %s"
	errConfigCapabilityUnknownResourceFmt = "rbac config: capability for role %s references unknown resource: %s"
	errConfigCapabilityUnknownActionFmt   = "rbac config: capability for role %s on resource %s references unknown action: %s"
	errConfigMappingUnknownActionFmt      = "rbac config: permission mapping references unknown action: %s"
	errConfigMappingUnknownPermissionFmt  = "rbac config: permission mapping references unknown permission: %s"
	errConfigMappingDuplicateActionFmt    = "rbac config: duplicate action in mapping: %s"
	errConfigLabelUnknownActionFmt        = "rbac config: label references unknown action: %s"
	errConfigDuplicateLabelFmt            = "rbac config: duplicate label for action: %s"
	errMustNewPanicFmt                    = "rbac.MustNew: %v"
	errDeniedUnknownAuthTypeFmt           = "%w: unknown auth type: %s"
	errDeniedRoleCheckRequiresSession     = "%w: role check requires session authentication"
	errDeniedMinRoleRequiredFmt           = "%w: requires minimum role '%s', but user has role '%s'"
	errDeniedUserRoleEmpty                = "%w: user role is empty"
	errDeniedRoleCannotPerformActionFmt   = "%w: role '%s' cannot perform action '%s' on resource '%s'"
	errDeniedNilSubjectFmt                = "%w: %w"
	errInvalidRoleFmt                     = "%w: %s"
	errInvalidPermissionFmt               = "%w: %s"
	errInvalidPermissionEmptyFmt          = "%w: permissions array cannot be empty"
)
