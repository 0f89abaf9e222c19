package server

import (
	"sync"
	"time"
)

const (
	StatusOK              = 200
	StatusNotFound        = 404
	StatusTooManyRequests = 429
)

// reasons holds the status line text for each status the server sends
var reasons = map[int]string{
	StatusOK:              "OK",
	StatusNotFound:        "NOT FOUND",
	StatusTooManyRequests: "TOO MANY REQUESTS",
}

// Reason returns the status line text for a status code
func Reason(status int) string {
	if reason, ok := reasons[status]; ok {
		return reason
	}
	return "UNKNOWN"
}

// Route describes the canned response for one path. Delay, when set, is slept
// on the worker before the response is written.
type Route struct {
	Path   string
	Status int
	Page   string
	Delay  time.Duration
}

// Router maps literal request paths to routes
type Router struct {
	routes   map[string]Route
	notFound Route
	mu       sync.RWMutex
}

// NewRouter creates the default route table: "/" answers immediately,
// "/sleep" answers after sleepDelay, everything else is not found.
func NewRouter(sleepDelay time.Duration) *Router {
	r := &Router{
		routes: make(map[string]Route),
		notFound: Route{
			Status: StatusNotFound,
			Page:   NotFoundPage,
		},
	}
	r.Handle(Route{Path: "/", Status: StatusOK, Page: HomePage})
	r.Handle(Route{Path: "/sleep", Status: StatusOK, Page: HomePage, Delay: sleepDelay})
	return r
}

// Handle adds a route, replacing any route with the same path
func (r *Router) Handle(route Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[route.Path] = route
}

// Match returns the route for a request. Only "GET <path> HTTP/1.1" with an
// exact, case-sensitive path can match; anything else, including a nil
// request, gets the not-found route.
func (r *Router) Match(req *Request) Route {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if req == nil || req.Method != "GET" || req.Version != "HTTP/1.1" {
		return r.notFound
	}
	if route, ok := r.routes[req.Target]; ok {
		return route
	}
	return r.notFound
}
