// Package healthcheck probes backend addresses and updates their health flags.
//
// Checker wakes on a fixed interval, reads the active configuration snapshot
// once, and probes every backend of each upstream whose probe frequency has
// elapsed. Probes are TCP connection attempts bounded by a timeout and run
// with limited concurrency. A backend's flag follows its latest probe.
package healthcheck
