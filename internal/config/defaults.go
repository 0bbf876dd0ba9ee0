package config

import "batchenc/internal/encoding"

const (
	defaultConfigPath  = "~/.config/batchenc/config.toml"
	projectConfigName  = "batchenc.toml"
	defaultLogDir      = "~/.local/share/batchenc/logs"
	defaultStateDir    = "~/.local/share/batchenc"
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"
	defaultPriority    = "below_normal"
	ffmpegEnvVar       = "BATCHENC_FFMPEG"
	ffprobeEnvVar      = "BATCHENC_FFPROBE"
	defaultProgressLog = true
	defaultNtfyTimeout = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Encoding: Encoding{
			Preset:         string(encoding.DefaultPreset),
			CRF:            encoding.DefaultCRF,
			Priority:       defaultPriority,
			SameDirAsInput: true,
			SuffixEnabled:  true,
			Suffix:         encoding.DefaultSuffix,
		},
		FFmpeg: FFmpeg{
			Progress: defaultProgressLog,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
	}
}
