package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// Registered codes referenced from code.
const (
	CodeDialFailed       = "E001"
	CodeConnectionClosed = "E002"
	CodeWriteFailed      = "E003"
	CodeNotConnected     = "E004"
	CodeAlreadyConnected = "E005"

	CodeMalformedPacket = "E100"
	CodeUnknownPacket   = "E101"

	CodeLoginRejected = "E200"
	CodeLoginTimeout  = "E201"

	CodeSpectateRejected = "E300"
	CodeMapMissing       = "E301"
	CodeNotSpectating    = "E302"

	CodeEngineFailed   = "E400"
	CodeDownloadFailed = "E401"
	CodeMapIndexFailed = "E402"

	CodeConfigNotFound = "E500"
	CodeConfigInvalid  = "E501"
	CodeConfigEnv      = "E502"

	CodeMissingCredentials = "E600"
	CodeInvalidArgument    = "E601"
)

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Transport Errors (E001-E099)
	// ============================================

	CodeDialFailed: {
		Category:   CategoryTransport,
		Message:    "Could not connect to the server",
		Detail:     "The websocket handshake with the server failed.",
		Suggestion: "Check server_url in kiai.json and that the server is reachable.",
	},
	CodeConnectionClosed: {
		Category: CategoryTransport,
		Message:  "Connection closed",
		Detail:   "The server closed the connection or the network dropped it.",
	},
	CodeWriteFailed: {
		Category: CategoryTransport,
		Message:  "Failed to send packet",
		Detail:   "Writing to the websocket failed; the connection has been closed.",
	},
	CodeNotConnected: {
		Category: CategoryTransport,
		Message:  "Not connected",
		Detail:   "The operation requires a live connection to the server.",
	},
	CodeAlreadyConnected: {
		Category:   CategoryTransport,
		Message:    "Already connected",
		Detail:     "A session holds exactly one connection.",
		Suggestion: "Call Disconnect before connecting again.",
	},

	// ============================================
	// Protocol Errors (E100-E199)
	// ============================================

	CodeMalformedPacket: {
		Category: CategoryProtocol,
		Message:  "Malformed packet",
		Detail:   "A packet could not be decoded; the rest of its message was dropped.",
	},
	CodeUnknownPacket: {
		Category: CategoryProtocol,
		Message:  "Unknown packet kind",
		Detail:   "The server sent a packet kind this client does not understand.",
	},

	// ============================================
	// Auth Errors (E200-E299)
	// ============================================

	CodeLoginRejected: {
		Category: CategoryAuth,
		Message:  "Login rejected",
		Detail:   "The server refused the supplied credentials.",
	},
	CodeLoginTimeout: {
		Category:   CategoryAuth,
		Message:    "Login timed out",
		Detail:     "The server did not answer the login request in time.",
		Suggestion: "Retry, or raise login_timeout in kiai.json.",
	},

	// ============================================
	// Spectator Errors (E300-E399)
	// ============================================

	CodeSpectateRejected: {
		Category: CategorySpectator,
		Message:  "Spectate request rejected",
	},
	CodeMapMissing: {
		Category:   CategorySpectator,
		Message:    "You do not have the map",
		Detail:     "The host is playing a map that is not in the local library.",
		Suggestion: "Run 'kiai maps scan' after downloading the map.",
	},
	CodeNotSpectating: {
		Category: CategorySpectator,
		Message:  "Not spectating",
	},

	// ============================================
	// Resource Errors (E400-E499)
	// ============================================

	CodeEngineFailed: {
		Category: CategoryResource,
		Message:  "Failed to start playback",
		Detail:   "The gameplay engine could not be created for this map.",
	},
	CodeDownloadFailed: {
		Category: CategoryResource,
		Message:  "Map download failed",
	},
	CodeMapIndexFailed: {
		Category:   CategoryResource,
		Message:    "Map index unavailable",
		Detail:     "The local map index could not be opened or queried.",
		Suggestion: "Check map_index in kiai.json.",
	},

	// ============================================
	// Config Errors (E500-E599)
	// ============================================

	CodeConfigNotFound: {
		Category:   CategoryConfig,
		Message:    "Config file not found",
		Detail:     "No kiai.json was found in the current directory or its parents.",
		Suggestion: "Run 'kiai config init' to create one.",
	},
	CodeConfigInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
	},
	CodeConfigEnv: {
		Category: CategoryConfig,
		Message:  "Invalid environment override",
		Detail:   "A KIAI_* environment variable could not be parsed.",
	},

	// ============================================
	// CLI Errors (E600-E699)
	// ============================================

	CodeMissingCredentials: {
		Category:   CategoryCLI,
		Message:    "Missing credentials",
		Detail:     "A username and password are required to log in.",
		Suggestion: "Set KIAI_USERNAME and KIAI_PASSWORD, or pass --username.",
	},
	CodeInvalidArgument: {
		Category: CategoryCLI,
		Message:  "Invalid argument",
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
