package mdns

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// ServerInfo 发现的信令服务
type ServerInfo struct {
	Instance   string
	InstanceID string
	Path       string
	IP         net.IP
	Port       int
}

// Addr 返回 host:port
func (s ServerInfo) Addr() string {
	return net.JoinHostPort(s.IP.String(), strconv.Itoa(s.Port))
}

// Browse 在局域网查询信令服务，timeout 为 0 时使用默认值
func Browse(service, domain string, timeout time.Duration) ([]ServerInfo, error) {
	if service == "" {
		service = DefaultService
	}
	if domain == "" {
		domain = DefaultDomain
	}
	if timeout <= 0 {
		timeout = DefaultBrowseTimeout
	}

	entries := make(chan *mdns.ServiceEntry, 16)
	params := &mdns.QueryParam{
		Service:     service,
		Domain:      domain,
		Timeout:     timeout,
		Entries:     entries,
		DisableIPv6: true,
	}

	var found []ServerInfo
	done := make(chan struct{})
	go func() {
		defer close(done)
		seen := make(map[string]bool)
		for entry := range entries {
			info, ok := serverFromEntry(entry)
			if !ok || seen[info.Addr()] {
				continue
			}
			seen[info.Addr()] = true
			found = append(found, info)
		}
	}()

	err := mdns.Query(params)
	close(entries)
	<-done
	return found, err
}

// serverFromEntry 解析服务条目，缺少地址或端口时返回 false
func serverFromEntry(entry *mdns.ServiceEntry) (ServerInfo, bool) {
	if entry == nil || entry.Port <= 0 {
		return ServerInfo{}, false
	}

	info := ServerInfo{
		Instance: instanceName(entry.Name),
		Port:     entry.Port,
		Path:     "/sign_in",
	}
	switch {
	case entry.AddrV4 != nil:
		info.IP = entry.AddrV4
	case entry.AddrV6 != nil:
		info.IP = entry.AddrV6
	default:
		return ServerInfo{}, false
	}

	for _, field := range entry.InfoFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "id":
			info.InstanceID = value
		case "path":
			info.Path = value
		}
	}
	return info, true
}

// instanceName 取完整服务名的第一个标签
func instanceName(name string) string {
	instance, _, _ := strings.Cut(name, ".")
	return strings.ReplaceAll(instance, "\\ ", " ")
}
