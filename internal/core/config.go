package core

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config contains all of the configuration options available to the server.
type Config struct {
	// Hostname or IP address on which the server will listen for connections.
	Hostname string `mapstructure:"hostname"`
	// Full path to file to which logs will be written. Blank will write to stdout.
	LogFilePath string `mapstructure:"log_file_path"`
	// Minimum level of a log required to be written. Options: debug, info, warn, error
	LogLevel string `mapstructure:"log_level"`

	GameServer struct {
		// Port on which the game server will listen for TCP connections.
		Port int `mapstructure:"port"`
		// Minimum number of milliseconds allowed between two accepted moves
		// from the same player before the move is treated as automated play.
		MinMoveIntervalMs int `mapstructure:"min_move_interval_ms"`
	} `mapstructure:"game_server"`

	WebSocket struct {
		// Serve the same protocol over WebSocket in addition to raw TCP.
		Enabled bool `mapstructure:"enabled"`
		// Port on which the WebSocket endpoint will listen.
		Port int `mapstructure:"port"`
	} `mapstructure:"websocket"`

	Bans struct {
		// File in which the set of banned addresses is persisted.
		File string `mapstructure:"file"`
		// Number of minutes a banned address stays banned without an explicit unban.
		ExpiryMinutes int `mapstructure:"expiry_minutes"`
	} `mapstructure:"bans"`

	Archive struct {
		// Directory to which one replay file per completed game is written.
		ReplaysDir string `mapstructure:"replays_dir"`
		// Directory to which one chat transcript per completed game is written.
		ChatLogsDir string `mapstructure:"chat_logs_dir"`
	} `mapstructure:"archive"`

	Database struct {
		// Database engine backing the game index. Options: sqlite, postgres
		Engine string `mapstructure:"engine"`
		// Path to the sqlite database file (sqlite engine only).
		Filename string `mapstructure:"filename"`
		// Hostname of the Postgres database instance.
		Host string `mapstructure:"host"`
		// Port on db_host on which the Postgres instance is accepting connections.
		Port int `mapstructure:"port"`
		// Name of the database in Postgres.
		Name string `mapstructure:"name"`
		// Username and password of a user with full RW privileges to ${db_name}.
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		// Set to verify-full if the Postgres instance supports SSL.
		SSLMode string `mapstructure:"sslmode"`
	} `mapstructure:"database"`

	Debugging struct {
		// Log every decoded frame to stdout.
		FrameLoggingEnabled bool `mapstructure:"frame_logging_enabled"`
		//  Enable database-level query logging.
		DatabaseLoggingEnabled bool `mapstructure:"database_logging_enabled"`
	} `mapstructure:"debugging"`
}

const envVarPrefix = "GOMOKU"

// LoadConfig initializes Viper with the contents of the config file under configPath.
func LoadConfig(configPath string) *Config {
	viper.AddConfigPath(configPath)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix(envVarPrefix)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if errors.Is(err, viper.ConfigFileNotFoundError{}) {
			fmt.Printf("error reading config file: no config file in path %s", configPath)
		} else {
			fmt.Printf("error reading config file: %v", err)
		}
		os.Exit(1)
	}

	// This allows us to set nested yaml config options through environment
	// variables. For example, database.host can be set using: <envVarPrefix>_DATABASE_HOST
	for _, k := range viper.AllKeys() {
		envVar := strings.ReplaceAll(strings.ToUpper(k), ".", "_")
		if err := viper.BindEnv(k, envVarPrefix+"_"+envVar); err != nil {
			fmt.Printf("error binding %s to %s", k, envVarPrefix+"_"+envVar)
			os.Exit(1)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		fmt.Printf("error unmarshaling config object: %v", err)
		os.Exit(1)
	}
	return config
}

// GameAddress returns the full TCP listen address for the game server.
func (c *Config) GameAddress() string {
	return fmt.Sprintf("%s:%v", c.Hostname, c.GameServer.Port)
}

// WebSocketAddress returns the full listen address for the WebSocket endpoint.
func (c *Config) WebSocketAddress() string {
	return fmt.Sprintf("%s:%v", c.Hostname, c.WebSocket.Port)
}

// MinMoveInterval returns the shortest allowed time between two accepted
// moves from the same player.
func (c *Config) MinMoveInterval() time.Duration {
	return time.Duration(c.GameServer.MinMoveIntervalMs) * time.Millisecond
}

// BanExpiry returns the duration after which a banned address is
// automatically unbanned.
func (c *Config) BanExpiry() time.Duration {
	return time.Duration(c.Bans.ExpiryMinutes) * time.Minute
}

const databaseURITemplate = "host=%s port=%d dbname=%s user=%s password=%s sslmode=%s"

// DatabaseURL returns a postgres connection URL generated from the provided
// config values.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		databaseURITemplate,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.Username,
		c.Database.Password,
		c.Database.SSLMode,
	)
}
