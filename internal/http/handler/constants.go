package handler

const (
	jsonKeyError     = "error"
	jsonKeyMessage   = "message"
	jsonKeyRequestID = "request_id"

	paramID       = "id"
	paramResource = "resource"

	queryResource = "resource"
	queryAction   = "action"
)

const (
	msgContentTypeJSONRequired = "content type must be application/json"
	msgInvalidRequestBody      = "invalid request body"
	msgInvalidCredentials      = "invalid email or password"
	msgLoggedOut               = "logged out"
	msgLoginFail               = "failed to log in"
	msgLogoutFail              = "failed to log out"
	msgUserNotFound            = "user not found"

	msgInvalidAPIKeyID    = "invalid API key ID"
	msgAPIKeyNotFound     = "API key not found"
	msgAPIKeyDeleted      = "API key deleted"
	msgCreateAPIKeyFail   = "failed to create API key"
	msgListAPIKeysFail    = "failed to list API keys"
	msgRevokeAPIKeyFail   = "failed to revoke API key"
	msgDeleteAPIKeyFail   = "failed to delete API key"
	msgUnknownResourceFmt = "unknown resource: %s"
	msgUnknownScenarioFmt = "unknown scenario: %s"
	msgRunTestsFail       = "failed to run API key tests"

	msgResourceRequired  = "resource and action are required"
	msgUnknownActionFmt  = "unknown action %s for resource %s"
	msgUnsupportedMethod = "method not supported"

	msgInvalidMemberID     = "invalid member ID"
	msgMemberNotFound      = "team member not found"
	msgMemberRemoved       = "team member removed"
	msgInvalidRole         = "invalid role"
	msgRoleAboveOwn        = "cannot assign a role above your own"
	msgMemberAboveOwn      = "cannot manage a member with a role above your own"
	msgCannotChangeSelf    = "cannot change your own role"
	msgCannotRemoveSelf    = "cannot remove yourself"
	msgListMembersFail     = "failed to list team members"
	msgInviteMemberFail    = "failed to invite team member"
	msgUpdateMemberFail    = "failed to update team member"
	msgRemoveMemberFail    = "failed to remove team member"
	msgEmailAlreadyExists  = "email already exists"
	msgPasswordProcessFail = "failed to process password"
)
