package main

import (
	"strings"

	"github.com/danmuck/dcmstream/internal/config"
)

// flagOverrides holds command-line values that win over the config file.
type flagOverrides struct {
	node  string
	addr  string
	admin string
}

func loadConfig(path string, fo flagOverrides) (config.Receiver, error) {
	cfg := config.DefaultReceiver()
	if strings.TrimSpace(path) != "" {
		loaded, err := config.LoadReceiver(path)
		if err != nil {
			return config.Receiver{}, err
		}
		cfg = loaded
	}
	if v := strings.TrimSpace(fo.node); v != "" {
		cfg.Server.Node = v
	}
	if v := strings.TrimSpace(fo.addr); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(fo.admin); v != "" {
		// "off" disables the admin listener.
		if v == "off" {
			v = ""
		}
		cfg.AdminAddr = v
	}
	if err := config.ValidateReceiver(cfg); err != nil {
		return config.Receiver{}, err
	}
	return cfg, nil
}
