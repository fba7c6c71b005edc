package main

import (
	"flag"
	"os"

	"github.com/dep2p/go-signal/config"
)

const (
	envListenAddr = "SIGNAL_LISTEN_ADDR"
	envPreset     = "SIGNAL_PRESET"
)

// buildConfig 组装最终配置
//
// 依次应用：默认值、配置文件、预设、环境变量、命令行参数，后者覆盖前者。
func buildConfig() (*config.Config, error) {
	presetName := *preset
	if !isFlagSet("preset") {
		if v := os.Getenv(envPreset); v != "" {
			presetName = v
		}
	}

	cfg := config.NewConfig()
	if *configFile != "" {
		loaded, err := config.LoadFile(*configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := config.ApplyPreset(cfg, presetName); err != nil {
		return nil, err
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.Server.ListenAddr = v
	}

	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}
	if *enableMDNS {
		cfg.Discovery.EnableMDNS = true
	}
	if *diagAddr != "" {
		cfg.Diagnostics.EnableDiagnostics = true
		cfg.Diagnostics.DiagnosticsAddr = *diagAddr
	}

	return config.ValidateAndFix(cfg)
}

// isFlagSet 判断命令行是否显式指定了某个参数
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
