// Package config holds the command line flags shared by the peerindex
// commands and turns them into server and peer configurations.
//
// Every flag is bound to viper, so it can also be set from a config file
// (--config) or from the environment. Environment variables use the
// PEERINDEX_ prefix with dots replaced by underscores, for example
// PEERINDEX_LOG_LEVEL or PEERINDEX_PEER_REQUEST_TIMEOUT.
package config
