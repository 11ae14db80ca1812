package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

const docBase = "https://routeagent.dev/docs/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Adapter and Agent Errors (E100-E109)
	// ============================================

	"E100": {
		Category: CategoryAdapter,
		Message:  "History adapter unavailable",
		Detail:   "The agent could not bind a navigation history. In a browser build this means window.history is missing; on the server it means the session has no connection to write to.",
		DocURL:   docBase + "E100",
	},
	"E101": {
		Category: CategoryAgent,
		Message:  "Route state type mismatch",
		Detail:   "A registry already hosts an agent for a different route state type. Every subscriber sharing a registry must use the same state type.",
		DocURL:   docBase + "E101",
	},
	"E102": {
		Category: CategoryAgent,
		Message:  "Route agent closed",
		Detail:   "The request was sent after the agent shut down. Subscribers must reconnect through the registry.",
		DocURL:   docBase + "E102",
	},

	// ============================================
	// Config Errors (E110-E119)
	// ============================================

	"E110": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "A value in routeagent.json or the environment is out of range or malformed.",
		DocURL:   docBase + "E110",
	},
	"E111": {
		Category: CategoryConfig,
		Message:  "Configuration file unreadable",
		Detail:   "routeagent.json exists but could not be read or parsed as JSON.",
		DocURL:   docBase + "E111",
	},
	"E112": {
		Category: CategoryRouting,
		Message:  "Invalid route expression",
		Detail:   "A route rule's when expression failed to compile or does not evaluate to a bool.",
		DocURL:   docBase + "E112",
	},
	"E113": {
		Category: CategoryRouting,
		Message:  "Routing failed",
		Detail:   "No route option matched and no default case was provided.",
		DocURL:   docBase + "E113",
	},

	// ============================================
	// Snapshot Errors (E120-E129)
	// ============================================

	"E120": {
		Category: CategorySnapshot,
		Message:  "Snapshot backend failure",
		Detail:   "The history snapshot store returned an error. Check the backend address and credentials.",
		DocURL:   docBase + "E120",
	},
	"E121": {
		Category: CategorySnapshot,
		Message:  "Snapshot store closed",
		Detail:   "The snapshot store was used after Close.",
		DocURL:   docBase + "E121",
	},

	// ============================================
	// Protocol Errors (E130-E139)
	// ============================================

	"E130": {
		Category: CategoryProtocol,
		Message:  "Handshake failed",
		Detail:   "The client did not send a valid hello frame before the handshake deadline.",
		DocURL:   docBase + "E130",
	},
	"E131": {
		Category: CategoryProtocol,
		Message:  "Invalid frame",
		Detail:   "The received frame could not be decoded or failed validation.",
		DocURL:   docBase + "E131",
	},

	// ============================================
	// CLI Errors (E140-E149)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Nothing to navigate to",
		Detail:   "The history has no entry in the requested direction.",
		DocURL:   docBase + "E140",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
