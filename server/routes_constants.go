package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Login widget redirect and dashboard session
	RouteAuth   = "/auth"
	RouteMe     = "/me"
	RouteLogout = "/logout"

	// Access workflow
	RouteRequestAccess = "/request-access"
	RouteCheckStatus   = "/check-status/{userId}"
	RouteStatusStream  = "/ws/status/{userId}"

	// Bot sessions
	RouteStartBot  = "/start-bot"
	RouteStopBot   = "/stop-bot"
	RouteBotStatus = "/bot-status/{userId}"

	RouteHealth = "/healthz"
)
