package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk yaml configuration.
type Config struct {
	Options struct {
		Registered bool `yaml:"registered"`
	} `yaml:"options"`
	Files struct {
		DatFile     string `yaml:"dat_file"`
		NewDatFile  bool   `yaml:"new_dat_file"`
		Destination string `yaml:"destination"`
		Script      string `yaml:"script"`
		Protocol    string `yaml:"protocol"` // ftp or sftp, default ftp
		LockFile    string `yaml:"lock_file"`
	} `yaml:"files"`
	Archive struct {
		Dir        string `yaml:"dir"`
		DatFile    string `yaml:"dat_file"`
		DateFormat string `yaml:"date_format"` // strftime-style, e.g. %Y%m%d%H%M
		Timestamp  bool   `yaml:"timestamp"`
		Watch      bool   `yaml:"watch"`
	} `yaml:"archive"`
	Logging struct {
		File      string `yaml:"file"`
		Level     string `yaml:"level"`
		Verbose   bool   `yaml:"verbose"`
		Datestamp bool   `yaml:"datestamp"`
	} `yaml:"logging"`
	Categories []Category `yaml:"categories"`
}

// Category names a local origin directory and the file specs the archive
// pass should sweep out of it.
type Category struct {
	Name      string   `yaml:"name"`
	OriginDir string   `yaml:"origin_dir"`
	Specs     []string `yaml:"specs"`
}

func loadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Files.Protocol == "" {
		cfg.Files.Protocol = "ftp"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	return &cfg, nil
}
