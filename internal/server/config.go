package server

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/summitcards/summit/internal/cluster"
)

// Config represents the complete node configuration
type Config struct {
	Node    NodeSettings    `hcl:"node,block"`
	Cluster ClusterSettings `hcl:"cluster,block"`
}

// NodeSettings contains node-level configuration
type NodeSettings struct {
	ID       string `hcl:"id,optional"`
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// ClusterSettings contains shard layout and peer seeding
type ClusterSettings struct {
	Shards int      `hcl:"shards,optional"`
	Peers  []string `hcl:"peers,optional"`
}

// DefaultConfig returns default node configuration. The node id is random
// per process so two unconfigured nodes never collide.
func DefaultConfig() *Config {
	return &Config{
		Node: NodeSettings{
			ID:       "node-" + uuid.NewString()[:8],
			Address:  "localhost",
			Port:     9190,
			LogLevel: "info",
		},
		Cluster: ClusterSettings{
			Shards: cluster.DefaultConfig().Shards,
		},
	}
}

// LoadConfig loads node configuration from an HCL file. A missing file
// yields the defaults.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	defaults := DefaultConfig()
	if config.Node.ID == "" {
		config.Node.ID = defaults.Node.ID
	}
	if config.Node.Address == "" {
		config.Node.Address = defaults.Node.Address
	}
	if config.Node.Port == 0 {
		config.Node.Port = defaults.Node.Port
	}
	if config.Node.LogLevel == "" {
		config.Node.LogLevel = defaults.Node.LogLevel
	}
	if config.Cluster.Shards == 0 {
		config.Cluster.Shards = defaults.Cluster.Shards
	}

	return &config, nil
}

// Validate validates the node configuration
func (c *Config) Validate() error {
	if c.Node.ID == "" {
		return fmt.Errorf("node id must not be empty")
	}
	if c.Node.Port < 1 || c.Node.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Node.Port)
	}
	if c.Cluster.Shards < 1 {
		return fmt.Errorf("shard count must be positive: %d", c.Cluster.Shards)
	}
	for _, peer := range c.Cluster.Peers {
		if peer == "" {
			return fmt.Errorf("peer address must not be empty")
		}
	}
	return nil
}

// ListenAddress returns the host:port the node binds
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Node.Address, c.Node.Port)
}

// ShardConfig returns the cluster layout shared by every entity on this node
func (c *Config) ShardConfig() cluster.Config {
	cfg := cluster.DefaultConfig()
	cfg.Shards = c.Cluster.Shards
	return cfg
}
