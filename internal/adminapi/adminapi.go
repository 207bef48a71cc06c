package adminapi

import "sync"

var initOnce sync.Once

// Init registers every admin API route with the web server. It must run
// before webserver.NewAdminServer.
func Init() {
	initOnce.Do(func() {
		registerAuthRoutes()
		registerProductRoutes()
		registerTransferRoutes()
		registerUserRoutes()
		registerChatRoutes()
		registerSystemRoutes()
	})
}
