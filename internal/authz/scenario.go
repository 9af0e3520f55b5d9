package authz

import (
	"net/http"

	"crm-service/internal/domain/apikey"
	"crm-service/internal/rbac"
	"crm-service/internal/rbac/presets"
)

// Scenario describes a hypothetical request used to exercise an API key
type Scenario struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	Method             string            `json:"method"`
	Endpoint           string            `json:"endpoint"`
	Resource           rbac.Resource     `json:"resource"`
	RequiredPermission apikey.Permission `json:"requiredPermission"`
	ExamplePayload     map[string]any    `json:"examplePayload,omitempty"`
}

var scenarios = []Scenario{
	{
		ID: "list-contacts", Name: "List contacts", Description: "Read the contact list",
		Method: http.MethodGet, Endpoint: "/v1/contacts",
		Resource: presets.ResourceContacts, RequiredPermission: apikey.PermissionRead,
	},
	{
		ID: "create-contact", Name: "Create contact", Description: "Add a contact",
		Method: http.MethodPost, Endpoint: "/v1/contacts",
		Resource: presets.ResourceContacts, RequiredPermission: apikey.PermissionWrite,
		ExamplePayload: map[string]any{"name": "Ada Lovelace", "email": "ada@example.com", "company": "Analytical Engines"},
	},
	{
		ID: "delete-contact", Name: "Delete contact", Description: "Remove a contact",
		Method: http.MethodDelete, Endpoint: "/v1/contacts/c_123",
		Resource: presets.ResourceContacts, RequiredPermission: apikey.PermissionDelete,
	},
	{
		ID: "list-deals", Name: "List deals", Description: "Read the pipeline",
		Method: http.MethodGet, Endpoint: "/v1/deals",
		Resource: presets.ResourceDeals, RequiredPermission: apikey.PermissionRead,
	},
	{
		ID: "update-deal", Name: "Update deal stage", Description: "Move a deal to another stage",
		Method: http.MethodPut, Endpoint: "/v1/deals/d_42",
		Resource: presets.ResourceDeals, RequiredPermission: apikey.PermissionWrite,
		ExamplePayload: map[string]any{"stage": "negotiation", "value": 12000},
	},
	{
		ID: "delete-deal", Name: "Delete deal", Description: "Remove a deal",
		Method: http.MethodDelete, Endpoint: "/v1/deals/d_42",
		Resource: presets.ResourceDeals, RequiredPermission: apikey.PermissionDelete,
	},
	{
		ID: "list-tasks", Name: "List tasks", Description: "Read open tasks",
		Method: http.MethodGet, Endpoint: "/v1/tasks",
		Resource: presets.ResourceTasks, RequiredPermission: apikey.PermissionRead,
	},
	{
		ID: "create-task", Name: "Create task", Description: "Schedule a follow-up",
		Method: http.MethodPost, Endpoint: "/v1/tasks",
		Resource: presets.ResourceTasks, RequiredPermission: apikey.PermissionWrite,
		ExamplePayload: map[string]any{"title": "Call back", "dueDate": "2026-11-01", "priority": "high"},
	},
	{
		ID: "send-email", Name: "Send email", Description: "Queue an outbound email",
		Method: http.MethodPost, Endpoint: "/v1/emails",
		Resource: presets.ResourceEmails, RequiredPermission: apikey.PermissionWrite,
		ExamplePayload: map[string]any{"to": "lead@example.com", "subject": "Following up"},
	},
	{
		ID: "read-reports", Name: "Read reports", Description: "Fetch pipeline analytics",
		Method: http.MethodGet, Endpoint: "/v1/reports",
		Resource: presets.ResourceReports, RequiredPermission: apikey.PermissionRead,
	},
}

// Scenarios returns the built-in scenario catalogue. The slice is a copy.
func Scenarios() []Scenario {
	out := make([]Scenario, len(scenarios))
	copy(out, scenarios)
	return out
}

// ScenarioByID looks up a built-in scenario
func ScenarioByID(id string) (Scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return Scenario{}, false
}
