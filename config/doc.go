// Package config turns the routing configuration document into an immutable
// Snapshot.
//
// Parse decodes and structurally validates the YAML document (viper +
// ozzo-validation) into a RawConfig. Resolve checks the RawConfig against
// the filesystem and the upstream catalogue and builds the route table with
// fresh load balancers. Watcher reports changes to the file so the caller
// can run the pair again and swap the result in.
package config
