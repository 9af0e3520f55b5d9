package presets

import "crm-service/internal/rbac"

const (
	RoleAdmin   rbac.Role = "admin"
	RoleManager rbac.Role = "manager"
	RoleSales   rbac.Role = "sales"

	PermissionRead   rbac.Permission = "read"
	PermissionWrite  rbac.Permission = "write"
	PermissionDelete rbac.Permission = "delete"
	PermissionAdmin  rbac.Permission = "admin"

	ResourceContacts rbac.Resource = "contacts"
	ResourceDeals    rbac.Resource = "deals"
	ResourceTasks    rbac.Resource = "tasks"
	ResourceEmails   rbac.Resource = "emails"
	ResourceReports  rbac.Resource = "reports"
	ResourceAPI      rbac.Resource = "api"
	ResourceTeam     rbac.Resource = "team"

	ActionView            rbac.Action = "view"
	ActionCreate          rbac.Action = "create"
	ActionEdit            rbac.Action = "edit"
	ActionDelete          rbac.Action = "delete"
	ActionViewAll         rbac.Action = "viewAll"
	ActionExportData      rbac.Action = "exportData"
	ActionImportData      rbac.Action = "importData"
	ActionAssign          rbac.Action = "assign"
	ActionCompose         rbac.Action = "compose"
	ActionSend            rbac.Action = "send"
	ActionManageTemplates rbac.Action = "manageTemplates"
	ActionExport          rbac.Action = "export"
	ActionCreateKeys      rbac.Action = "createKeys"
	ActionRevokeKeys      rbac.Action = "revokeKeys"
	ActionManageWebhooks  rbac.Action = "manageWebhooks"
	ActionInvite          rbac.Action = "invite"
	ActionRemove          rbac.Action = "remove"
	ActionChangeRoles     rbac.Action = "changeRoles"
)

// CRM returns the role permission table of the CRM.
func CRM() rbac.Config {
	resources := []rbac.ResourceDefinition{
		{Name: ResourceContacts, Actions: []rbac.Action{ActionView, ActionCreate, ActionEdit, ActionDelete, ActionViewAll, ActionExportData, ActionImportData}},
		{Name: ResourceDeals, Actions: []rbac.Action{ActionView, ActionCreate, ActionEdit, ActionDelete, ActionViewAll, ActionExportData}},
		{Name: ResourceTasks, Actions: []rbac.Action{ActionView, ActionCreate, ActionEdit, ActionDelete, ActionViewAll, ActionAssign}},
		{Name: ResourceEmails, Actions: []rbac.Action{ActionView, ActionCompose, ActionSend, ActionViewAll, ActionManageTemplates}},
		{Name: ResourceReports, Actions: []rbac.Action{ActionView, ActionViewAll, ActionExport}},
		{Name: ResourceAPI, Actions: []rbac.Action{ActionView, ActionCreateKeys, ActionRevokeKeys, ActionManageWebhooks}},
		{Name: ResourceTeam, Actions: []rbac.Action{ActionView, ActionInvite, ActionEdit, ActionRemove, ActionChangeRoles}},
	}

	admin := make(map[rbac.Resource][]rbac.Action, len(resources))
	for _, rd := range resources {
		admin[rd.Name] = rd.Actions
	}

	return rbac.Config{
		Roles: []rbac.RoleDefinition{
			{Name: RoleAdmin, Level: 3},
			{Name: RoleManager, Level: 2},
			{Name: RoleSales, Level: 1},
		},
		Permissions: []rbac.Permission{
			PermissionRead,
			PermissionWrite,
			PermissionDelete,
			PermissionAdmin,
		},
		Resources: resources,
		Capabilities: map[rbac.Role]map[rbac.Resource][]rbac.Action{
			RoleAdmin: admin,
			RoleManager: {
				ResourceContacts: {ActionView, ActionCreate, ActionEdit, ActionDelete, ActionViewAll, ActionExportData, ActionImportData},
				ResourceDeals:    {ActionView, ActionCreate, ActionEdit, ActionDelete, ActionViewAll, ActionExportData},
				ResourceTasks:    {ActionView, ActionCreate, ActionEdit, ActionDelete, ActionViewAll, ActionAssign},
				ResourceEmails:   {ActionView, ActionCompose, ActionSend, ActionViewAll, ActionManageTemplates},
				ResourceReports:  {ActionView, ActionViewAll, ActionExport},
				ResourceAPI:      {ActionView, ActionManageWebhooks},
				ResourceTeam:     {ActionView, ActionInvite, ActionEdit},
			},
			RoleSales: {
				ResourceContacts: {ActionView, ActionCreate, ActionEdit, ActionExportData},
				ResourceDeals:    {ActionView, ActionCreate, ActionEdit},
				ResourceTasks:    {ActionView, ActionCreate, ActionEdit},
				ResourceEmails:   {ActionView, ActionCompose, ActionSend},
				ResourceReports:  {ActionView},
				ResourceTeam:     {ActionView},
			},
		},
		ActionPermissions: []rbac.ActionMapping{
			{Action: ActionView, Permission: PermissionRead},
			{Action: ActionViewAll, Permission: PermissionRead},
			{Action: ActionExportData, Permission: PermissionRead},
			{Action: ActionExport, Permission: PermissionRead},
			{Action: ActionCreate, Permission: PermissionWrite},
			{Action: ActionEdit, Permission: PermissionWrite},
			{Action: ActionImportData, Permission: PermissionWrite},
			{Action: ActionAssign, Permission: PermissionWrite},
			{Action: ActionCompose, Permission: PermissionWrite},
			{Action: ActionSend, Permission: PermissionWrite},
			{Action: ActionDelete, Permission: PermissionDelete},
			{Action: ActionRemove, Permission: PermissionDelete},
			{Action: ActionManageTemplates, Permission: PermissionAdmin},
			{Action: ActionCreateKeys, Permission: PermissionAdmin},
			{Action: ActionRevokeKeys, Permission: PermissionAdmin},
			{Action: ActionManageWebhooks, Permission: PermissionAdmin},
			{Action: ActionInvite, Permission: PermissionAdmin},
			{Action: ActionChangeRoles, Permission: PermissionAdmin},
		},
		Labels: []rbac.ActionLabel{
			{Action: ActionView, Label: "View"},
			{Action: ActionCreate, Label: "Create"},
			{Action: ActionEdit, Label: "Edit"},
			{Action: ActionDelete, Label: "Delete"},
			{Action: ActionViewAll, Label: "View all"},
			{Action: ActionExportData, Label: "Export data"},
			{Action: ActionImportData, Label: "Import data"},
			{Action: ActionAssign, Label: "Assign"},
			{Action: ActionCompose, Label: "Compose"},
			{Action: ActionSend, Label: "Send"},
			{Action: ActionManageTemplates, Label: "Manage templates"},
			{Action: ActionExport, Label: "Export"},
			{Action: ActionCreateKeys, Label: "Create keys"},
			{Action: ActionRevokeKeys, Label: "Revoke keys"},
			{Action: ActionManageWebhooks, Label: "Manage webhooks"},
			{Action: ActionInvite, Label: "Invite"},
			{Action: ActionRemove, Label: "Remove"},
			{Action: ActionChangeRoles, Label: "Change roles"},
		},
	}
}
