package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultFolderTemplate names recording folders by start time.
// Available placeholders: {{.Year}}, {{.Month}}, {{.Day}}, {{.Hour}}, {{.Minute}}, {{.Second}}, {{.Name}}
const DefaultFolderTemplate = "{{.Year}}-{{.Month}}-{{.Day}}_{{.Hour}}-{{.Minute}}-{{.Second}}{{if .Name}}_{{.Name}}{{end}}"

const (
	DefaultRemoteEndpoint = "https://api.mistral.ai/v1/audio/transcriptions"
	DefaultRemoteModel    = "voxtral-mini-latest"
	DefaultWhisperModel   = "small"
	DefaultChunkSeconds   = 60
	DefaultConcurrency    = 5
)

type Config struct {
	RecordingsDir  string
	HistoryDB      string
	FolderTemplate string

	FFmpegBin      string
	MicDevice      string
	LoopbackDevice string

	WhisperBin   string
	WhisperModel string

	RemoteEndpoint string
	RemoteModel    string
	RemoteAPIKeys  []string

	ChunkSeconds int
	Concurrency  int
}

type fileConfig struct {
	RecordingsDir  string   `toml:"recordings_dir"`
	FolderTemplate string   `toml:"folder_template"`
	FFmpegBin      string   `toml:"ffmpeg_bin"`
	MicDevice      string   `toml:"mic_device"`
	LoopbackDevice string   `toml:"loopback_device"`
	WhisperBin     string   `toml:"whisper_bin"`
	WhisperModel   string   `toml:"whisper_model"`
	RemoteEndpoint string   `toml:"remote_endpoint"`
	RemoteModel    string   `toml:"remote_model"`
	RemoteAPIKeys  []string `toml:"remote_api_keys"`
	ChunkSeconds   int      `toml:"chunk_seconds"`
	Concurrency    int      `toml:"concurrency"`
}

func Load() (*Config, error) {
	cfg := &Config{
		RecordingsDir:  defaultRecordingsDir(),
		FolderTemplate: DefaultFolderTemplate,
		FFmpegBin:      "ffmpeg",
		WhisperModel:   DefaultWhisperModel,
		RemoteEndpoint: DefaultRemoteEndpoint,
		RemoteModel:    DefaultRemoteModel,
		ChunkSeconds:   DefaultChunkSeconds,
		Concurrency:    DefaultConcurrency,
	}

	if configPath := configFilePath(); configPath != "" {
		var fc fileConfig
		if _, err := toml.DecodeFile(configPath, &fc); err == nil {
			if fc.RecordingsDir != "" {
				cfg.RecordingsDir = expandTilde(fc.RecordingsDir)
			}
			if fc.FolderTemplate != "" {
				cfg.FolderTemplate = fc.FolderTemplate
			}
			if fc.FFmpegBin != "" {
				cfg.FFmpegBin = fc.FFmpegBin
			}
			cfg.MicDevice = fc.MicDevice
			cfg.LoopbackDevice = fc.LoopbackDevice
			cfg.WhisperBin = fc.WhisperBin
			if fc.WhisperModel != "" {
				cfg.WhisperModel = fc.WhisperModel
			}
			if fc.RemoteEndpoint != "" {
				cfg.RemoteEndpoint = fc.RemoteEndpoint
			}
			if fc.RemoteModel != "" {
				cfg.RemoteModel = fc.RemoteModel
			}
			cfg.RemoteAPIKeys = fc.RemoteAPIKeys
			if fc.ChunkSeconds > 0 {
				cfg.ChunkSeconds = fc.ChunkSeconds
			}
			if fc.Concurrency > 0 {
				cfg.Concurrency = fc.Concurrency
			}
		}
	}

	applyEnvOverrides(cfg)

	cfg.HistoryDB = filepath.Join(cfg.RecordingsDir, "history.db")

	if err := os.MkdirAll(cfg.RecordingsDir, 0o755); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MT_RECORDINGS_DIR"); v != "" {
		cfg.RecordingsDir = expandTilde(v)
	}
	if v := os.Getenv("MT_FFMPEG_BIN"); v != "" {
		cfg.FFmpegBin = v
	}
	if v := os.Getenv("MT_MIC_DEVICE"); v != "" {
		cfg.MicDevice = v
	}
	if v := os.Getenv("MT_LOOPBACK_DEVICE"); v != "" {
		cfg.LoopbackDevice = v
	}
	if v := os.Getenv("MT_WHISPER_BIN"); v != "" {
		cfg.WhisperBin = v
	}
	if v := os.Getenv("MT_WHISPER_MODEL"); v != "" {
		cfg.WhisperModel = v
	}
	if v := os.Getenv("MT_REMOTE_ENDPOINT"); v != "" {
		cfg.RemoteEndpoint = v
	}
	if v := os.Getenv("MT_REMOTE_MODEL"); v != "" {
		cfg.RemoteModel = v
	}
	if v := os.Getenv("MT_API_KEYS"); v != "" {
		cfg.RemoteAPIKeys = splitKeys(v)
	}
}

// splitKeys parses a comma-separated key list, dropping empties.
func splitKeys(v string) []string {
	var keys []string
	for _, k := range strings.Split(v, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func configFilePath() string {
	var configDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, "meeting-transcript")
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", "meeting-transcript")
	} else {
		return ""
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func defaultRecordingsDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "recordings")
	}
	return filepath.Join(".", "recordings")
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
