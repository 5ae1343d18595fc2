// Package handler exposes routing decisions and router state over HTTP.
//
// DecisionHandler answers each request with the backend the router picked for
// it, leaving connection establishment to the caller. The admin handlers report
// liveness and the active route table.
package handler
