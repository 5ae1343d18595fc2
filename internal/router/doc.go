// Package router turns an inbound request's destination into a routing decision.
//
// ExtractHost derives the hostname and port from the Host header or the request
// authority. Router looks the hostname up in the active route table and asks
// the upstream's load balancer for a healthy backend. It never dials or
// forwards; the caller's transport acts on the returned Decision.
package router
