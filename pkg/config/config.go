package config

import (
	"fmt"
	"github.com/ghjm/tuntap/pkg/tuntap"
	"gopkg.in/yaml.v3"
	"os"
)

type Config struct {
	// DefaultInterface is used by profiles that do not name an interface
	DefaultInterface string               `yaml:"default_interface"`
	Interfaces       map[string]Interface `yaml:"interfaces"`
}

// Interface is a named interface profile
type Interface struct {
	Name            string `yaml:"name"`
	Mode            string `yaml:"mode"`
	ReadSize        int    `yaml:"read_size"`
	StripPacketInfo *bool  `yaml:"strip_packet_info"`
	MTU             int    `yaml:"mtu"`
	Up              bool   `yaml:"up"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	config := &Config{}
	err := yaml.Unmarshal(data, config)
	if err != nil {
		return nil, err
	}
	for name, iface := range config.Interfaces {
		_, err = tuntap.ParseMode(iface.Mode)
		if err != nil {
			return nil, fmt.Errorf("interface %s: %w", name, err)
		}
		if iface.ReadSize < 0 {
			return nil, fmt.Errorf("interface %s: read_size must not be negative", name)
		}
		if iface.MTU < 0 {
			return nil, fmt.Errorf("interface %s: mtu must not be negative", name)
		}
	}
	return config, nil
}

// Profile returns the named interface profile
func (c *Config) Profile(name string) (Interface, error) {
	iface, ok := c.Interfaces[name]
	if !ok {
		return Interface{}, fmt.Errorf("interface %s not found in config file", name)
	}
	return iface, nil
}

// Options converts the profile to options for tuntap.Open
func (i Interface) Options() ([]tuntap.Option, error) {
	mode, err := tuntap.ParseMode(i.Mode)
	if err != nil {
		return nil, err
	}
	opts := []tuntap.Option{tuntap.WithMode(mode)}
	if i.ReadSize > 0 {
		opts = append(opts, tuntap.WithReadSize(i.ReadSize))
	}
	if i.StripPacketInfo != nil {
		opts = append(opts, tuntap.WithStripPacketInfo(*i.StripPacketInfo))
	}
	if i.MTU > 0 || i.Up {
		var linkOpts []func(*tuntap.LinkOptions)
		if i.MTU > 0 {
			linkOpts = append(linkOpts, tuntap.WithMTU(i.MTU))
		}
		if i.Up {
			linkOpts = append(linkOpts, tuntap.WithLinkUp())
		}
		opts = append(opts, tuntap.WithLinkSetup(linkOpts...))
	}
	return opts, nil
}
