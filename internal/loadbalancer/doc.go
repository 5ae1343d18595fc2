// Package loadbalancer holds one upstream group's backends and picks a live
// one per request.
//
// A LoadBalancer is created per (upstream, configuration generation) and is
// never reconfigured: a reload builds fresh instances. Only backend health
// flags change after construction, which keeps Select lock-free.
//
// Select inspects at most MaxProbeIter candidates, so a group where most or
// all backends are down returns promptly instead of spinning.
package loadbalancer
