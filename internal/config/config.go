// Package config loads the server's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Listener holds the bind address and TCP accept parameters for one
// client-facing endpoint (§4.7).
type Listener struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`
	Backlog     int    `yaml:"backlog"` // listen(2) backlog, default 8
}

// Pools holds the fixed sizes of the process's named buffer pools (§4.1).
type Pools struct {
	GramSize       int `yaml:"gram_size"`        // SendQueue page size, default 512
	PacketBufSize  int `yaml:"packet_buf_size"`  // pooled compiled-packet buffer size, default 4096
	CompressorSize int `yaml:"compressor_size"`  // Huffman scratch buffer size, default 65536
	FilePageSize   int `yaml:"file_page_size"`   // SequentialFileWriter page size, default 65536
}

// Caps holds the per-connection resource caps of §4.8.
type Caps struct {
	GumpCap       int `yaml:"gump_cap"`
	HuePickerCap  int `yaml:"hue_picker_cap"`
	MenuCap       int `yaml:"menu_cap"`
	SecureTradeCap int `yaml:"secure_trade_cap"`
}

// SaveStrategy selects and parameterizes the World persistence pipeline (§4.11).
type SaveStrategy struct {
	Kind             string `yaml:"kind"`              // "standard", "dual", "parallel", "dynamic", "adaptive"
	Parallelism      int    `yaml:"parallelism"`       // worker count for parallel/dynamic
	BackgroundWrites bool   `yaml:"background_writes"` // allow async SequentialFileWriter
	SaveDirectory    string `yaml:"save_directory"`    // where .idx/.tdb/.bin live
}

// Server holds all configuration for the UO-protocol game server.
type Server struct {
	Listener Listener `yaml:"listener"`
	Pools    Pools    `yaml:"pools"`
	Caps     Caps     `yaml:"caps"`
	Save     SaveStrategy `yaml:"save"`

	// ActivityTimeout disconnects a NetState once it has been idle this long (§4.8, §5).
	ActivityTimeout time.Duration `yaml:"activity_timeout"`

	// LoginTimerInterval is the period of the per-connection login timer (§4.8 step 6).
	LoginTimerInterval time.Duration `yaml:"login_timer_interval"`

	// DisposalSweepInterval is the period of the minutely inactivity sweep (§5).
	DisposalSweepInterval time.Duration `yaml:"disposal_sweep_interval"`

	// DisposalBatchSize bounds how many disposed NetStates are drained per sweep pass (§4.8).
	DisposalBatchSize int `yaml:"disposal_batch_size"`

	// SendQueueCapacity is SendQueue's pending-bytes cap in bytes (§4.6, default 256KB).
	SendQueueCapacity int `yaml:"send_queue_capacity"`

	LogLevel string `yaml:"log_level"`
}

// Default returns a Server config with sensible defaults (coalesce page
// 512B, 4KB packet buffers, 256KB send cap, 90s activity timeout, 1s
// login timer, minutely disposal sweep, 200/pass).
func Default() Server {
	return Server{
		Listener: Listener{
			BindAddress: "0.0.0.0",
			Port:        2593,
			Backlog:     8,
		},
		Pools: Pools{
			GramSize:       512,
			PacketBufSize:  4096,
			CompressorSize: 65536,
			FilePageSize:   65536,
		},
		Caps: Caps{
			GumpCap:        512,
			HuePickerCap:   512,
			MenuCap:        512,
			SecureTradeCap: 1,
		},
		Save: SaveStrategy{
			Kind:             "standard",
			Parallelism:      1,
			BackgroundWrites: false,
			SaveDirectory:    "saves",
		},
		ActivityTimeout:       90 * time.Second,
		LoginTimerInterval:    1 * time.Second,
		DisposalSweepInterval: 1 * time.Minute,
		DisposalBatchSize:     200,
		SendQueueCapacity:     256 * 1024,
		LogLevel:              "info",
	}
}

// Load reads a YAML config file, falling back to Default() when the file
// does not exist.
func Load(path string) (Server, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}
