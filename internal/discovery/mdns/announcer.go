package mdns

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/mdns"

	"github.com/dep2p/go-signal/internal/util/logger"
)

var log = logger.Logger("discovery/mdns")

// maxTXTLen 单条 TXT 记录上限（RFC 1035）
const maxTXTLen = 255

// Announcer mDNS 通告器
type Announcer struct {
	cfg Config

	mu     sync.Mutex
	server *mdns.Server
}

// NewAnnouncer 创建通告器
func NewAnnouncer(cfg Config) *Announcer {
	return &Announcer{cfg: cfg}
}

// Start 开始通告
func (a *Announcer) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return ErrAlreadyStarted
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	ips, err := localIPs(a.cfg.Interface)
	if err != nil {
		return fmt.Errorf("获取本地 IP 失败: %w", err)
	}
	if len(ips) == 0 {
		return ErrNoLocalIPs
	}

	txt := buildTXTRecords(a.cfg.InstanceID, a.cfg.Path)
	service, err := mdns.NewMDNSService(
		a.cfg.Instance,
		a.cfg.Service,
		a.cfg.Domain,
		"",
		a.cfg.Port,
		ips,
		txt,
	)
	if err != nil {
		return fmt.Errorf("创建 mDNS 服务失败: %w", err)
	}

	serverConfig := &mdns.Config{Zone: service}
	if a.cfg.Interface != "" {
		iface, err := net.InterfaceByName(a.cfg.Interface)
		if err != nil {
			log.Warn("找不到指定接口", "interface", a.cfg.Interface, "err", err)
		} else {
			serverConfig.Iface = iface
		}
	}

	server, err := mdns.NewServer(serverConfig)
	if err != nil {
		return fmt.Errorf("创建 mDNS 服务器失败: %w", err)
	}
	a.server = server

	log.Info("mDNS 通告已启动",
		"instance", a.cfg.Instance,
		"service", a.cfg.Service,
		"port", a.cfg.Port,
		"ips", ipStrings(ips),
		"txt", txt)
	return nil
}

// Stop 停止通告
func (a *Announcer) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return nil
	}
	err := a.server.Shutdown()
	a.server = nil
	log.Info("mDNS 通告已停止")
	return err
}

// buildTXTRecords 构建 TXT 记录，超过单条上限的字段被丢弃
func buildTXTRecords(instanceID, path string) []string {
	var txt []string
	for _, kv := range [][2]string{{"id", instanceID}, {"path", path}} {
		if kv[1] == "" {
			continue
		}
		rec := kv[0] + "=" + kv[1]
		if len(rec) > maxTXTLen {
			log.Debug("TXT 记录过长，已忽略", "key", kv[0], "len", len(rec))
			continue
		}
		txt = append(txt, rec)
	}
	return txt
}

// ============================================================================
//                              网卡和地址过滤
// ============================================================================

// virtualInterfacePrefixes 虚拟网卡前缀，其地址跨机通常不可达
var virtualInterfacePrefixes = []string{
	"utun", "ipsec", "awdl", "llw",
	"docker", "br-", "veth", "virbr", "vboxnet", "vmnet",
	"tun", "tap", "tailscale", "wg",
}

func isVirtualInterface(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range virtualInterfacePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// cgnat 100.64.0.0/10，VPN 与运营商 NAT 常用
var cgnat = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// scoreLANIP 局域网地址评分，0 表示不可通告
//
// 192.168.x > 10.x > 172.16-31.x > 其他私网（含 IPv6 ULA）
func scoreLANIP(ip net.IP) int {
	if ip == nil || ip.IsLoopback() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
		return 0
	}
	if cgnat.Contains(ip) {
		return 0
	}
	if !ip.IsPrivate() {
		return 0
	}
	if ip4 := ip.To4(); ip4 != nil {
		switch {
		case ip4[0] == 192 && ip4[1] == 168:
			return 100
		case ip4[0] == 10:
			return 80
		default:
			return 60
		}
	}
	return 20
}

// localIPs 按评分降序返回可通告的 IPv4 局域网地址
func localIPs(ifaceName string) ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	type scoredIP struct {
		ip    net.IP
		score int
	}
	var scored []scoredIP

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if ifaceName != "" && iface.Name != ifaceName {
			continue
		}
		if ifaceName == "" && isVirtualInterface(iface.Name) {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.To4() == nil {
				continue
			}
			if score := scoreLANIP(ipNet.IP); score > 0 {
				scored = append(scored, scoredIP{ip: ipNet.IP, score: score})
			}
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	ips := make([]net.IP, len(scored))
	for i, s := range scored {
		ips[i] = s.ip
	}
	return ips, nil
}

func ipStrings(ips []net.IP) []string {
	out := make([]string, len(ips))
	for i, ip := range ips {
		out[i] = ip.String()
	}
	return out
}
