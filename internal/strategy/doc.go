// Package strategy defines how a load balancer picks the next candidate
// backend from an upstream's fixed backend list:
//
//   - Round Robin: shared atomic cursor, reduced modulo the backend count
//   - Random: uniform random pick per inspection
//
// A strategy only proposes candidates. Skipping unhealthy backends and
// bounding the number of inspections is the load balancer's job, so every
// strategy must be safe for concurrent use without locks.
package strategy
