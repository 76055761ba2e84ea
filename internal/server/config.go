package server

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config represents the complete server configuration. One process hosts one
// table; shard by table for horizontal scale.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Table  TableSettings  `hcl:"table,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Listen     string `hcl:"listen,optional"`
	LogLevel   string `hcl:"log_level,optional"`
	DBPath     string `hcl:"db_path,optional"`
	AuthURL    string `hcl:"auth_url,optional"`
	AuthSecret string `hcl:"auth_secret,optional"`
}

// TableSettings defines the hosted table
type TableSettings struct {
	ID                string `hcl:"id,optional"`
	Seats             int    `hcl:"seats,optional"`
	SmallBlind        int    `hcl:"small_blind"`
	BigBlind          int    `hcl:"big_blind"`
	StartingStack     int    `hcl:"starting_stack,optional"`
	MinPlayers        int    `hcl:"min_players,optional"`
	ActionTimeoutMs   int    `hcl:"action_timeout_ms,optional"`
	ReconnectWindowMs int    `hcl:"reconnect_window_ms,optional"`
	NextHandDelayMs   int    `hcl:"next_hand_delay_ms,optional"`
}

// ActionTimeout returns the per-decision budget as a duration.
func (t TableSettings) ActionTimeout() time.Duration {
	return time.Duration(t.ActionTimeoutMs) * time.Millisecond
}

// ReconnectWindow returns the seat reclaim window as a duration.
func (t TableSettings) ReconnectWindow() time.Duration {
	return time.Duration(t.ReconnectWindowMs) * time.Millisecond
}

// NextHandDelay returns the pause between hands as a duration.
func (t TableSettings) NextHandDelay() time.Duration {
	return time.Duration(t.NextHandDelayMs) * time.Millisecond
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Listen:   "localhost:8080",
			LogLevel: "info",
			DBPath:   "holdemd.db",
		},
		Table: TableSettings{
			ID:                uuid.NewString(),
			Seats:             6,
			SmallBlind:        1,
			BigBlind:          2,
			StartingStack:     200,
			MinPlayers:        2,
			ActionTimeoutMs:   30000,
			ReconnectWindowMs: 60000,
			NextHandDelayMs:   2000,
		},
	}
}

// LoadConfig loads configuration from an HCL file. A missing file yields the
// defaults.
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

	// Apply defaults for missing values
	if config.Server.Listen == "" {
		config.Server.Listen = "localhost:8080"
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}
	if config.Server.DBPath == "" {
		config.Server.DBPath = "holdemd.db"
	}
	if config.Table.ID == "" {
		config.Table.ID = uuid.NewString()
	}
	if config.Table.Seats == 0 {
		config.Table.Seats = 6
	}
	if config.Table.StartingStack == 0 {
		config.Table.StartingStack = config.Table.BigBlind * 100
	}
	if config.Table.MinPlayers == 0 {
		config.Table.MinPlayers = 2
	}
	if config.Table.ActionTimeoutMs == 0 {
		config.Table.ActionTimeoutMs = 30000
	}
	if config.Table.ReconnectWindowMs == 0 {
		config.Table.ReconnectWindowMs = 60000
	}
	if config.Table.NextHandDelayMs == 0 {
		config.Table.NextHandDelayMs = 2000
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return fmt.Errorf("listen address must be set")
	}
	t := c.Table
	if t.SmallBlind <= 0 {
		return fmt.Errorf("table %s: small blind must be positive", t.ID)
	}
	if t.BigBlind <= t.SmallBlind {
		return fmt.Errorf("table %s: big blind must be greater than small blind", t.ID)
	}
	if t.Seats < 2 || t.Seats > 10 {
		return fmt.Errorf("table %s: seats must be between 2 and 10", t.ID)
	}
	if t.MinPlayers < 2 || t.MinPlayers > t.Seats {
		return fmt.Errorf("table %s: min players must be between 2 and %d", t.ID, t.Seats)
	}
	if t.StartingStack < t.BigBlind {
		return fmt.Errorf("table %s: starting stack must cover the big blind", t.ID)
	}
	if t.ActionTimeoutMs <= 0 || t.ReconnectWindowMs < 0 || t.NextHandDelayMs < 0 {
		return fmt.Errorf("table %s: timers must not be negative", t.ID)
	}
	return nil
}
