package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hairizuanbinnoorazman/pageagent/apitoken"
	"github.com/hairizuanbinnoorazman/pageagent/cmd/backend/handlers"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
)

const widgetPrefix = "/api/v1/widget/"

// routeDeps collects what the router needs. MetricsHandler may be nil.
type routeDeps struct {
	Analysis       *handlers.AnalysisHandler
	Agents         *handlers.AgentHandler
	Widget         *handlers.WidgetHandler
	Tokens         *handlers.APITokenHandler
	TokenStore     apitoken.Store
	APIKeyHash     string
	AllowedOrigin  string
	MetricsHandler http.Handler
	Version        string
	Logger         logger.Logger
}

// newRouter wires the public widget API and the operator API.
func newRouter(d routeDeps) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", handlers.NewHealthHandler(d.Version)).Methods("GET")
	if d.MetricsHandler != nil {
		router.Handle("/metrics", d.MetricsHandler).Methods("GET")
	}

	// Public widget routes
	widgetRouter := router.PathPrefix("/api/v1/widget").Subrouter()
	widgetRouter.Use(handlers.WidgetHeaders)
	widgetRouter.HandleFunc("/{code}/config", d.Widget.Config).Methods("GET")
	widgetRouter.HandleFunc("/{code}/chat", d.Widget.Chat).Methods("POST")
	widgetRouter.HandleFunc("/{code}/chat", d.Widget.Page).Methods("GET")

	// Operator routes
	apiKeyMiddleware := handlers.NewAPIKeyMiddleware(d.APIKeyHash, d.TokenStore, d.Logger)
	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(apiKeyMiddleware.Handler)

	apiRouter.HandleFunc("/analysis/page", d.Analysis.Page).Methods("POST")
	apiRouter.HandleFunc("/analysis/screenshot", d.Analysis.Screenshot).Methods("POST")
	apiRouter.HandleFunc("/analysis/screenshots/{name}", d.Analysis.ScreenshotFile).Methods("GET")
	apiRouter.HandleFunc("/analysis/context", d.Analysis.Context).Methods("POST")
	apiRouter.HandleFunc("/analysis/automate", d.Analysis.Automate).Methods("POST")

	agentRouter := apiRouter.PathPrefix("/agents").Subrouter()
	agentRouter.Use(handlers.WriteScopeMiddleware)
	agentRouter.HandleFunc("", d.Agents.List).Methods("GET")
	agentRouter.HandleFunc("", d.Agents.Create).Methods("POST")
	agentRouter.HandleFunc("/{id}", d.Agents.GetByID).Methods("GET")
	agentRouter.HandleFunc("/{id}", d.Agents.Update).Methods("PUT")
	agentRouter.HandleFunc("/{id}", d.Agents.Delete).Methods("DELETE")
	agentRouter.HandleFunc("/{id}/conversations", d.Agents.Conversations).Methods("GET")
	agentRouter.HandleFunc("/{id}/widget-code", d.Agents.WidgetCode).Methods("GET")
	agentRouter.HandleFunc("/{id}/activate", d.Agents.Activate).Methods("POST")

	tokenRouter := apiRouter.PathPrefix("/tokens").Subrouter()
	tokenRouter.Use(handlers.WriteScopeMiddleware)
	tokenRouter.HandleFunc("", d.Tokens.List).Methods("GET")
	tokenRouter.HandleFunc("", d.Tokens.Create).Methods("POST")
	tokenRouter.HandleFunc("/{token_id}", d.Tokens.Revoke).Methods("DELETE")

	var h http.Handler = router
	h = handlers.CORSMiddleware(d.AllowedOrigin, widgetPrefix)(h)
	h = handlers.LoggingMiddleware(d.Logger)(h)
	return h
}
