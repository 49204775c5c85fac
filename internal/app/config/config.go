package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/kioskbridge/internal/adapters/transport/line"
	"github.com/ghalamif/kioskbridge/internal/adapters/transport/rosbridge"
	"github.com/ghalamif/kioskbridge/internal/app/supervisor"
	"github.com/ghalamif/kioskbridge/internal/logger"
)

const (
	ProtocolRosbridge = "rosbridge"
	ProtocolLine      = "line"

	SurfaceSimulated = "simulated"
	SurfaceExec      = "exec"

	SourceFile     = "file"
	SourcePostgres = "postgres"
	SourceMemory   = "memory"
)

type Config struct {
	Bridge   BridgeConfig   `yaml:"bridge"`
	Playback PlaybackConfig `yaml:"playback"`
	Resolver ResolverConfig `yaml:"resolver"`
	Settings SettingsConfig `yaml:"settings"`
	Queue    QueueConfig    `yaml:"queue"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  logger.Config  `yaml:"logging"`
}

type BridgeConfig struct {
	Protocol     string            `yaml:"protocol"`
	Host         string            `yaml:"host"`
	Port         int               `yaml:"port"`
	Path         string            `yaml:"path"`
	InboundTopic string            `yaml:"inbound_topic"`
	MessageType  string            `yaml:"message_type"`
	ResumeTopic  string            `yaml:"resume_topic"`
	ResumeValue  int32             `yaml:"resume_value"`
	DialTimeout  time.Duration     `yaml:"dial_timeout"`
	WriteTimeout time.Duration     `yaml:"write_timeout"`
	Reconnect    supervisor.Policy `yaml:"reconnect"`
}

// Rosbridge projects the bridge block onto the websocket adapter config.
func (b BridgeConfig) Rosbridge() rosbridge.Config {
	return rosbridge.Config{
		Port:         b.Port,
		Path:         b.Path,
		InboundTopic: b.InboundTopic,
		MessageType:  b.MessageType,
		DialTimeout:  b.DialTimeout,
		WriteTimeout: b.WriteTimeout,
	}
}

func (b BridgeConfig) Line() line.Config {
	return line.Config{
		Port:         b.Port,
		DialTimeout:  b.DialTimeout,
		WriteTimeout: b.WriteTimeout,
	}
}

type PlaybackConfig struct {
	IdleAsset               string        `yaml:"idle_asset"`
	SpeakingAsset           string        `yaml:"speaking_asset"`
	Player                  string        `yaml:"player"`
	PlayerCommand           []string      `yaml:"player_command"`
	Speech                  string        `yaml:"speech"`
	SpeechCommand           []string      `yaml:"speech_command"`
	SimulatedClip           time.Duration `yaml:"simulated_clip"`
	SimulatedWordsPerSecond float64       `yaml:"simulated_words_per_second"`
}

type ResolverConfig struct {
	Source         string        `yaml:"source"`
	CatalogPath    string        `yaml:"catalog_path"`
	ConnString     string        `yaml:"conn_string"`
	Table          string        `yaml:"table"`
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

type SettingsConfig struct {
	Path string `yaml:"path"`
}

type QueueConfig struct {
	MaxBatch int `yaml:"max_batch"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a ready-to-use config: rosbridge protocol, simulated
// surfaces, file catalog.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

func (c *Config) ApplyDefaults() {
	b := &c.Bridge
	b.Protocol = strings.ToLower(strings.TrimSpace(b.Protocol))
	if b.Protocol == "" {
		b.Protocol = ProtocolRosbridge
	}
	b.Host = strings.TrimSpace(b.Host)
	if b.Port == 0 {
		if b.Protocol == ProtocolLine {
			b.Port = 5000
		} else {
			b.Port = 9090
		}
	}
	if b.Path == "" {
		b.Path = "/"
	}
	if b.InboundTopic == "" {
		b.InboundTopic = "/video_key"
	}
	if b.MessageType == "" {
		b.MessageType = "std_msgs/Int32"
	}
	if b.ResumeTopic == "" {
		b.ResumeTopic = "/start_movement"
	}
	if b.ResumeValue == 0 {
		b.ResumeValue = 1
	}
	if b.DialTimeout <= 0 {
		b.DialTimeout = 5 * time.Second
	}
	if b.WriteTimeout <= 0 {
		b.WriteTimeout = 2 * time.Second
	}
	b.Reconnect.ApplyDefaults()

	p := &c.Playback
	if p.IdleAsset == "" {
		p.IdleAsset = "assets/bg_video_ideal.mp4"
	}
	if p.SpeakingAsset == "" {
		p.SpeakingAsset = "assets/bg_video_speaking.mp4"
	}
	p.Player = strings.ToLower(strings.TrimSpace(p.Player))
	if p.Player == "" {
		p.Player = SurfaceSimulated
	}
	if len(p.PlayerCommand) == 0 {
		p.PlayerCommand = []string{"mpv", "--no-terminal", "--fullscreen"}
	}
	p.Speech = strings.ToLower(strings.TrimSpace(p.Speech))
	if p.Speech == "" {
		p.Speech = SurfaceSimulated
	}
	if len(p.SpeechCommand) == 0 {
		p.SpeechCommand = []string{"espeak-ng"}
	}
	if p.SimulatedClip <= 0 {
		p.SimulatedClip = 3 * time.Second
	}
	if p.SimulatedWordsPerSecond <= 0 {
		p.SimulatedWordsPerSecond = 2.5
	}

	r := &c.Resolver
	r.Source = strings.ToLower(strings.TrimSpace(r.Source))
	if r.Source == "" {
		r.Source = SourceFile
	}
	if r.Source == SourceFile && r.CatalogPath == "" {
		r.CatalogPath = "./data/catalog.yaml"
	}
	if r.Table == "" {
		r.Table = "videos"
	}
	if r.ReloadInterval < 0 {
		r.ReloadInterval = 0
	}

	if c.Settings.Path == "" {
		c.Settings.Path = "./data/settings.yaml"
	}
	if c.Queue.MaxBatch <= 0 {
		c.Queue.MaxBatch = 64
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9110"
	}
	c.Logging.ApplyDefaults()
}

func (c *Config) Validate() error {
	switch c.Bridge.Protocol {
	case ProtocolRosbridge:
		rc := c.Bridge.Rosbridge()
		if err := rc.Validate(); err != nil {
			return fmt.Errorf("bridge config: %w", err)
		}
	case ProtocolLine:
		lc := c.Bridge.Line()
		if err := lc.Validate(); err != nil {
			return fmt.Errorf("bridge config: %w", err)
		}
	default:
		return fmt.Errorf("bridge.protocol %q is not one of rosbridge, line", c.Bridge.Protocol)
	}
	if c.Bridge.ResumeTopic == "" {
		return fmt.Errorf("bridge.resume_topic is required")
	}
	if err := c.Bridge.Reconnect.Validate(); err != nil {
		return fmt.Errorf("bridge.reconnect: %w", err)
	}

	if err := validateSurface("playback.player", c.Playback.Player, c.Playback.PlayerCommand); err != nil {
		return err
	}
	if err := validateSurface("playback.speech", c.Playback.Speech, c.Playback.SpeechCommand); err != nil {
		return err
	}
	if strings.TrimSpace(c.Playback.IdleAsset) == "" || strings.TrimSpace(c.Playback.SpeakingAsset) == "" {
		return fmt.Errorf("playback.idle_asset and playback.speaking_asset are required")
	}

	switch c.Resolver.Source {
	case SourceFile:
		if c.Resolver.CatalogPath == "" {
			return fmt.Errorf("resolver.catalog_path is required for source file")
		}
	case SourcePostgres:
		if c.Resolver.ConnString == "" {
			return fmt.Errorf("resolver.conn_string is required for source postgres")
		}
	case SourceMemory:
	default:
		return fmt.Errorf("resolver.source %q is not one of file, postgres, memory", c.Resolver.Source)
	}

	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	return nil
}

func validateSurface(field, kind string, command []string) error {
	switch kind {
	case SurfaceSimulated:
		return nil
	case SurfaceExec:
		if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
			return fmt.Errorf("%s_command is required for exec", field)
		}
		return nil
	default:
		return fmt.Errorf("%s %q is not one of simulated, exec", field, kind)
	}
}
