package main

import (
	"net/http"
	"net/http/pprof"

	_ "github.com/jeamon/bookshelf/docs"
	"github.com/julienschmidt/httprouter"
	httpswagger "github.com/swaggo/http-swagger/v2"
)

// SetupRoutes injects book and ops related endpoints if required.
func (api *APIHandler) SetupRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.NotFound = api.NotFound()
	router.GlobalOPTIONS = http.HandlerFunc(Preflight)
	api.SetupBookRoutes(router, m)
	if api.config.OpsEndpointsEnable {
		api.SetupOpsRoutes(router, m)
	}
	router.GET("/swagger/*any", m.public(api.OpsHandlerWrapper(httpswagger.WrapHandler)))
	return router
}

// SetupBookRoutes injects book related the api endpoints.
func (api *APIHandler) SetupBookRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.GET("/", m.public(api.Index))
	router.GET("/status", m.public(api.Status))
	router.GET("/books", m.public(api.GetAllBooks))
	router.POST("/books", m.public(api.CreateBook))
	router.GET("/books/:id", m.public(api.GetOneBook))
	router.POST("/books/:id/reviews", m.public(api.AddBookReview))
	return router
}

// SetupOpsRoutes injects internal operations related endpoints.
func (h *BaseHandler) SetupOpsRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.GET("/ops/configs", m.ops(h.GetConfigs))
	router.GET("/ops/stats", m.ops(h.GetStatistics))
	router.GET("/ops/maintenance", m.ops(h.Maintenance))
	router.GET("/ops/debug/vars", m.ops(GetMemStats))
	router.GET("/ops/debug/gc", m.ops(h.RunGC))
	router.GET("/ops/debug/fos", m.ops(h.FreeOSMemory))

	if h.config.ProfilerEndpointsEnable {
		router.GET("/ops/debug/pprof/", m.ops(h.OpsHandlerWrapper(http.HandlerFunc(pprof.Index))))
		router.GET("/ops/debug/pprof/profile", m.ops(h.GetCPUProfile))
		router.GET("/ops/debug/pprof/trace", m.ops(h.GetTraceProfile))
		router.GET("/ops/debug/pprof/symbol", m.ops(h.GetSymbol))
		router.GET("/ops/debug/pprof/cmdline", m.ops(h.GetCmdLine))
		router.GET("/ops/debug/pprof/heap", m.ops(h.OpsHandlerWrapper(pprof.Handler("heap"))))
		router.GET("/ops/debug/pprof/allocs", m.ops(h.OpsHandlerWrapper(pprof.Handler("allocs"))))
		router.GET("/ops/debug/pprof/goroutine", m.ops(h.OpsHandlerWrapper(pprof.Handler("goroutine"))))
		router.GET("/ops/debug/pprof/threadcreate", m.ops(h.OpsHandlerWrapper(pprof.Handler("threadcreate"))))
		router.GET("/ops/debug/pprof/block", m.ops(h.OpsHandlerWrapper(pprof.Handler("block"))))
		router.GET("/ops/debug/pprof/mutex", m.ops(h.OpsHandlerWrapper(pprof.Handler("mutex"))))
	}

	return router
}

// Preflight answers CORS preflight requests for any registered route.
func Preflight(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w.Header())
	w.WriteHeader(http.StatusNoContent)
}
