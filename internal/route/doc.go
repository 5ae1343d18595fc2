// Package route maps destination hostnames to the load balancer of the
// upstream that serves them. A Table is built once per configuration
// generation and is read-only afterwards, so lookups need no locking.
package route
