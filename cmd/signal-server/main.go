// Package main 信令服务入口
//
// 启动一个基于 HTTP/1.1 长轮询的 WebRTC 信令服务。
//
// 用法:
//
//	signal-server [选项]
//
// 选项:
//
//	-config string   配置文件路径（.json / .yaml），修改日志配置可热加载
//	-preset string   预设配置 (default/public/lan)
//	-listen string   监听地址，覆盖配置文件
//	-mdns            在局域网通告服务
//	-diag string     诊断服务地址，非空时启用诊断端点
//	-browse          查询局域网内的信令服务后退出
//	-print-config    打印最终配置（YAML）后退出
//	-version         显示版本
//
// 环境变量:
//
//	SIGNAL_LISTEN_ADDR  监听地址
//	SIGNAL_PRESET       预设名称
//	SIGNAL_LOG_LEVEL    日志级别
//	SIGNAL_LOG_FORMAT   日志格式 (text/json)
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/dep2p/go-signal/config"
	"github.com/dep2p/go-signal/internal/app"
	"github.com/dep2p/go-signal/internal/discovery/mdns"
)

// Version 构建时通过 -ldflags 注入
var Version = "dev"

var (
	configFile  = flag.String("config", "", "配置文件路径（.json / .yaml）")
	preset      = flag.String("preset", "", "预设配置 (default/public/lan)")
	listenAddr  = flag.String("listen", "", "监听地址，如 0.0.0.0:8888")
	enableMDNS  = flag.Bool("mdns", false, "在局域网通过 mDNS 通告服务")
	diagAddr    = flag.String("diag", "", "诊断服务地址，如 127.0.0.1:6060")
	browse      = flag.Bool("browse", false, "查询局域网内的信令服务后退出")
	browseWait  = flag.Duration("browse-timeout", mdns.DefaultBrowseTimeout, "mDNS 查询超时")
	printConfig = flag.Bool("print-config", false, "打印最终配置后退出")
	showVersion = flag.Bool("version", false, "显示版本")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Printf("signal-server %s\n", Version)
		return nil
	}

	cfg, err := buildConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	if *browse {
		return runBrowse(cfg)
	}

	if *printConfig {
		data, err := config.ToYAML(cfg)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	opts := []app.BootstrapOption{}
	if *configFile != "" {
		opts = append(opts, app.WithConfigPath(*configFile))
	}
	b := app.NewBootstrap(cfg, opts...)

	fmt.Printf("信令服务 %s 启动中，监听 %s\n", Version, cfg.Server.ListenAddr)
	if err := app.Run(context.Background(), b); err != nil {
		return err
	}
	fmt.Println("信令服务已关闭")
	return nil
}

// runBrowse 打印局域网内发现的信令服务
func runBrowse(cfg *config.Config) error {
	servers, err := mdns.Browse(cfg.Discovery.MDNSService, cfg.Discovery.MDNSDomain, *browseWait)
	if err != nil {
		return fmt.Errorf("mDNS 查询失败: %w", err)
	}
	if len(servers) == 0 {
		fmt.Println("未发现信令服务")
		return nil
	}
	for _, s := range servers {
		fmt.Printf("%-32s %-21s id=%s path=%s\n", s.Instance, s.Addr(), s.InstanceID, s.Path)
	}
	return nil
}
