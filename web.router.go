package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// SetupRoutes injects the page, the proxy and the ops endpoints.
func (wh *WebHandler) SetupRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.NotFound = wh.NotFound()
	router.GlobalOPTIONS = http.HandlerFunc(Preflight)

	router.GET("/", m.public(wh.Home))
	router.GET("/status", m.public(wh.Status))
	router.POST("/ui/new-book/toggle", m.public(wh.ToggleNewBook))
	router.POST("/ui/books", m.public(wh.CreateBook))
	router.POST("/ui/books/:id/reviews/toggle", m.public(wh.ToggleReview))
	router.POST("/ui/books/:id/reviews", m.public(wh.SubmitReview))
	router.POST("/ui/reload", m.public(wh.Reload))

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		router.Handle(method, "/api/*path", m.public(wh.proxy.Forward))
	}

	if wh.config.OpsEndpointsEnable {
		wh.SetupOpsRoutes(router, m)
	}
	return router
}
