package importer

import "time"

// Config contains the configuration options for the remote media
// import pipeline.
type Config struct {
	// The hostnames (or parent domains) that URLs may be imported
	// from. A URL is accepted if its hostname equals, or is a
	// subdomain of, any entry.
	AllowedDomains []string `yaml:"allowed_domains" env:"IMPORT_ALLOWED_DOMAINS"`

	// The directory final artifacts are copied in to. Created on
	// service construction if missing.
	StoragePath string `yaml:"storage_path" env:"IMPORT_STORAGE_PATH" env-required:"true"`

	// The directory under which the per-URL ephemeral workspaces are
	// created. Defaults to the OS temp dir when empty.
	WorkspaceRoot string `yaml:"workspace_root" env:"IMPORT_WORKSPACE_ROOT"`

	// Hard cap applied to fallback downloads (declared and actual) and
	// to the final artifact; files at or over this size are skipped.
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes" env:"IMPORT_MAX_FILE_SIZE" env-default:"15728640"`

	// Binaries for the external tools, resolved via PATH when not
	// absolute paths.
	DownloaderBin    string `yaml:"downloader_bin" env:"IMPORT_DOWNLOADER_BIN" env-default:"gallery-dl"`
	FfmpegBin        string `yaml:"ffmpeg_bin" env:"IMPORT_FFMPEG_BIN" env-default:"ffmpeg"`
	MagickBin        string `yaml:"magick_bin" env:"IMPORT_MAGICK_BIN" env-default:"magick"`
	LegacyConvertBin string `yaml:"legacy_convert_bin" env:"IMPORT_LEGACY_CONVERT_BIN" env-default:"convert"`

	// Upper bound on any single external tool invocation or network
	// fetch. The underlying tools impose no bound of their own.
	CommandTimeoutSeconds int `yaml:"command_timeout_seconds" env:"IMPORT_COMMAND_TIMEOUT" env-default:"300"`
}

func (config *Config) CommandTimeout() time.Duration {
	return time.Duration(config.CommandTimeoutSeconds) * time.Second
}
