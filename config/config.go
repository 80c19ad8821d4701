package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/opd-ai/peerindex/peer"
	"github.com/opd-ai/peerindex/server"
)

// EnvPrefix is the prefix of environment variables read by viper.
const EnvPrefix = "PEERINDEX"

// InitConfig enables environment overrides and reads cfgFile when set.
func InitConfig(cfgFile string) error {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile == "" {
		return nil
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file %s: %w", cfgFile, err)
	}
	return nil
}

// RendezvousHostPort returns the index server's host:port.
func RendezvousHostPort() string {
	return net.JoinHostPort(viper.GetString(CfgRendezvousAddress), strconv.Itoa(viper.GetInt(CfgRendezvousPort)))
}

// ServerConfig builds a rendezvous server configuration from the flags.
func ServerConfig() (*server.Config, error) {
	port, err := portValue(CfgRendezvousPort)
	if err != nil {
		return nil, err
	}

	config := server.DefaultConfig()
	config.Address = viper.GetString(CfgRendezvousAddress)
	config.Port = port
	config.Capacity = viper.GetInt(CfgServerCapacity)
	config.EntryTTL = viper.GetDuration(CfgServerEntryTTL)
	config.Logger = logrus.WithField("component", "rendezvous")

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// PeerConfig builds a peer configuration listening on port from the flags.
func PeerConfig(port uint16) (*peer.Config, error) {
	rendezvousPort, err := portValue(CfgRendezvousPort)
	if err != nil {
		return nil, err
	}
	if rendezvousPort == 0 {
		return nil, fmt.Errorf("invalid %s: peers need a non-zero rendezvous port", CfgRendezvousPort)
	}

	config := peer.DefaultConfig()
	config.Port = port
	config.RendezvousAddress = RendezvousHostPort()
	config.RequestTimeout = viper.GetDuration(CfgPeerRequestTimeout)
	config.RegistrationAttempts = viper.GetInt(CfgPeerRegistrationAttempts)
	config.RegistrationBackoff = viper.GetDuration(CfgPeerRegistrationBackoff)
	config.DeliveryInterval = viper.GetDuration(CfgPeerDeliveryInterval)
	config.QueueCapacity = viper.GetInt(CfgPeerQueueCapacity)
	config.CacheCapacity = viper.GetInt(CfgPeerCacheCapacity)
	config.Logger = logrus.WithField("component", "peer")

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// ParsePort parses a UDP port in the range 1-65535.
func ParsePort(s string) (uint16, error) {
	port, err := strconv.ParseUint(s, 10, 16)
	if err != nil || port == 0 {
		return 0, fmt.Errorf("invalid port %q: must be between 1 and 65535", s)
	}
	return uint16(port), nil
}

func portValue(key string) (uint16, error) {
	port := viper.GetInt(key)
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("invalid %s %d: must be between 0 and 65535", key, port)
	}
	return uint16(port), nil
}
