package config

import (
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/opd-ai/peerindex/peer"
	"github.com/opd-ai/peerindex/server"
)

const (
	// CfgConfigFile is the flag used to specify a config file.
	CfgConfigFile = "config"

	// CfgLogLevel is the minimum level of emitted log entries.
	CfgLogLevel = "log.level"
	// CfgLogFormat is the log output format, text or json.
	CfgLogFormat = "log.format"
	// CfgMetricsAddress is the address of the Prometheus endpoint, empty
	// disables it.
	CfgMetricsAddress = "metrics.address"

	// CfgRendezvousAddress is the index server IP.
	CfgRendezvousAddress = "rendezvous.address"
	// CfgRendezvousPort is the index server UDP port.
	CfgRendezvousPort = "rendezvous.port"

	CfgPeerRequestTimeout       = "peer.request_timeout"
	CfgPeerRegistrationAttempts = "peer.registration_attempts"
	CfgPeerRegistrationBackoff  = "peer.registration_backoff"
	CfgPeerDeliveryInterval     = "peer.delivery_interval"
	CfgPeerQueueCapacity        = "peer.queue_capacity"
	CfgPeerCacheCapacity        = "peer.cache_capacity"

	CfgServerCapacity = "server.capacity"
	CfgServerEntryTTL = "server.entry_ttl"
)

var (
	// CommonFlags has the flags shared by all commands.
	CommonFlags = flag.NewFlagSet("", flag.ContinueOnError)
	// ServerFlags has the rendezvous server flags.
	ServerFlags = flag.NewFlagSet("", flag.ContinueOnError)
	// PeerFlags has the peer flags.
	PeerFlags = flag.NewFlagSet("", flag.ContinueOnError)
)

func init() {
	peerDefaults := peer.DefaultConfig()
	serverDefaults := server.DefaultConfig()

	CommonFlags.String(CfgConfigFile, "", "config file")
	CommonFlags.String(CfgLogLevel, "info", "log level (trace, debug, info, warn, error)")
	CommonFlags.String(CfgLogFormat, FormatText, "log format (text, json)")
	CommonFlags.String(CfgMetricsAddress, "", "Prometheus metrics address, empty to disable")
	CommonFlags.String(CfgRendezvousAddress, serverDefaults.Address, "rendezvous server IP address")
	CommonFlags.Uint16(CfgRendezvousPort, serverDefaults.Port, "rendezvous server UDP port")

	ServerFlags.Int(CfgServerCapacity, serverDefaults.Capacity, "maximum number of registered peers")
	ServerFlags.Duration(CfgServerEntryTTL, serverDefaults.EntryTTL, "registration lifetime, 0 to keep entries until evicted")

	PeerFlags.Duration(CfgPeerRequestTimeout, peerDefaults.RequestTimeout, "rendezvous request timeout")
	PeerFlags.Int(CfgPeerRegistrationAttempts, peerDefaults.RegistrationAttempts, "registration attempts before giving up")
	PeerFlags.Duration(CfgPeerRegistrationBackoff, peerDefaults.RegistrationBackoff, "initial delay between registration attempts")
	PeerFlags.Duration(CfgPeerDeliveryInterval, peerDefaults.DeliveryInterval, "inbound queue delivery interval")
	PeerFlags.Int(CfgPeerQueueCapacity, peerDefaults.QueueCapacity, "inbound queue capacity, 0 for unbounded")
	PeerFlags.Int(CfgPeerCacheCapacity, peerDefaults.CacheCapacity, "discovery cache capacity")

	bindFlags()
}

func bindFlags() {
	for _, fs := range []*flag.FlagSet{CommonFlags, ServerFlags, PeerFlags} {
		_ = viper.BindPFlags(fs)
	}
}

// MetricsAddress returns the configured metrics address.
func MetricsAddress() string {
	return viper.GetString(CfgMetricsAddress)
}
