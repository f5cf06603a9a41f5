package server

func (s *Server) initRoutes() {
	// Dashboard files
	s.RegisterRouteHandler("GET /", ChainMiddleware(s.fileServer.ServeHTTP, s.HTMLMiddleWare(s.CacheMiddleware)...))
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.RecoverMiddleware))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteAuth, ChainMiddleware(s.LoginHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireSession)...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// Access workflow
	s.RegisterRouteHandler("POST "+RouteRequestAccess, ChainMiddleware(s.RequestAccessHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteCheckStatus, ChainMiddleware(s.CheckStatusHandler(), s.APIMiddleware()...))
	if s.deps.Status != nil {
		s.RegisterRouteHandler("GET "+RouteStatusStream, ChainMiddleware(s.StatusStreamHandler(), s.LoggingMiddleware, s.RecoverMiddleware))
	}

	// Bot sessions
	s.RegisterRouteHandler("POST "+RouteStartBot, ChainMiddleware(s.StartBotHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteStopBot, ChainMiddleware(s.StopBotHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteBotStatus, ChainMiddleware(s.BotStatusHandler(), s.APIMiddleware()...))

	// CORS preflight for every API route
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
}
