package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Registrar attaches a related set of routes to a versioned API group.
type Registrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router collects registrars and mounts them under /api/<version>.
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []Registrar
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithAPIVersion overrides the default "v1" path segment.
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter wraps a gin engine with versioned route registration.
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues a registrar. Nothing is mounted until Setup runs.
func (r *Router) Register(reg Registrar) *Router {
	r.registrars = append(r.registrars, reg)
	return r
}

// Setup mounts every queued registrar under the versioned API group.
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	for _, reg := range r.registrars {
		reg.RegisterRoutes(api)
	}
}

// DomainGroup declares the routes of one bounded context up front, so
// handlers are wired in one place without touching the engine directly.
type DomainGroup struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewDomainGroup creates a named group mounted at prefix.
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware applied to every route in the group.
func (g *DomainGroup) Use(mw ...gin.HandlerFunc) *DomainGroup {
	g.middleware = append(g.middleware, mw...)
	return g
}

func (g *DomainGroup) handle(method, path string, handlers []gin.HandlerFunc) *DomainGroup {
	g.routes = append(g.routes, route{method: method, path: path, handlers: handlers})
	return g
}

// GET declares a GET route relative to the group prefix.
func (g *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.handle(http.MethodGet, path, handlers)
}

// POST declares a POST route relative to the group prefix.
func (g *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.handle(http.MethodPost, path, handlers)
}

// PUT declares a PUT route relative to the group prefix.
func (g *DomainGroup) PUT(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.handle(http.MethodPut, path, handlers)
}

// DELETE declares a DELETE route relative to the group prefix.
func (g *DomainGroup) DELETE(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	return g.handle(http.MethodDelete, path, handlers)
}

// RegisterRoutes implements Registrar.
func (g *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	grp := rg.Group(g.prefix)
	if len(g.middleware) > 0 {
		grp.Use(g.middleware...)
	}
	for _, rt := range g.routes {
		grp.Handle(rt.method, rt.path, rt.handlers...)
	}
}

// Name reports the group name.
func (g *DomainGroup) Name() string {
	return g.name
}
