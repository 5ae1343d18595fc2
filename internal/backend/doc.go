// Package backend models a single upstream endpoint: a network address with
// a health flag and a consecutive probe failure counter. Both are atomics so
// request-path reads never contend with the health checker's writes.
package backend
