package routes

const (
	// Health
	Health = "/health"

	// API key endpoints
	ApiKeys      = "/apikeys/"
	ApiKeyByID   = "/apikeys/{id}"
	ApiKeyRevoke = "/apikeys/revoke/{id}"
)
