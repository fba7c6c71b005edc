// Package introspect 提供本地诊断 HTTP 服务
//
// 该服务运行在独立端口，默认绑定 127.0.0.1，不暴露到网络。
//
// 端点：
//   - GET /debug/introspect  - 完整诊断报告 (JSON)
//   - GET /debug/members     - 注册表快照
//   - GET /debug/traffic     - 连接读写统计
//   - GET /metrics           - Prometheus 指标
//   - GET /health            - 健康检查
//   - GET /debug/pprof/*     - Go pprof 端点
package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-signal/internal/core/channel"
	"github.com/dep2p/go-signal/internal/core/metrics"
	"github.com/dep2p/go-signal/internal/util/logger"
)

var log = logger.Logger("core/introspect")

// DefaultAddr 默认监听地址
const DefaultAddr = "127.0.0.1:6060"

// queryTimeout 单次注册表查询超时
const queryTimeout = 2 * time.Second

// Source 诊断数据来源，由信令服务实现
type Source interface {
	Members(ctx context.Context) ([]channel.MemberInfo, error)
	Traffic() metrics.Stats
}

// Config 服务配置
type Config struct {
	// Addr 监听地址，默认 "127.0.0.1:6060"
	Addr string

	// InstanceID 实例标识
	InstanceID string

	// Source 必需的数据来源
	Source Source

	// Registry 可选的指标注册表，为 nil 时不提供 /metrics
	Registry *prometheus.Registry
}

// Server 本地诊断 HTTP 服务
type Server struct {
	source     Source
	registry   *prometheus.Registry
	addr       string
	instanceID string
	startedAt  time.Time

	mu       sync.Mutex
	server   *http.Server // nil 表示未运行
	listener net.Listener
}

// New 创建诊断服务
func New(cfg Config) *Server {
	addr := cfg.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{
		source:     cfg.Source,
		registry:   cfg.Registry,
		addr:       addr,
		instanceID: cfg.InstanceID,
	}
}

// Handler 返回路由，诊断端点只接受 GET
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	routes := map[string]http.HandlerFunc{
		"/debug/introspect": s.handleIntrospect,
		"/debug/members":    s.handleMembers,
		"/debug/traffic":    s.handleTraffic,
		"/health":           s.handleHealth,
	}
	for path, h := range routes {
		mux.Handle(path, getOnly(h))
	}
	if s.registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return mux
}

func getOnly(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	})
}

// Start 绑定端口并在后台提供服务，重复调用无副作用
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("introspect listen %s: %w", s.addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	s.listener, s.server, s.startedAt = ln, srv, time.Now()

	go func() {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			log.Error("诊断服务异常退出", "error", err)
		}
	}()
	log.Info("诊断服务已启动", "addr", ln.Addr().String())
	return nil
}

// Stop 优雅关闭，ctx 到期后强制断开
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("introspect shutdown: %w", err)
	}
	log.Info("诊断服务已停止")
	return nil
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Report 完整诊断报告
type Report struct {
	InstanceID string               `json:"instance_id,omitempty"`
	Uptime     string               `json:"uptime"`
	Members    []channel.MemberInfo `json:"members"`
	Traffic    metrics.Stats        `json:"traffic"`
}

func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {

	members, ok := s.members(w, r)
	if !ok {
		return
	}

	report := Report{
		InstanceID: s.instanceID,
		Members:    members,
		Traffic:    s.source.Traffic(),
	}
	if !s.startedAt.IsZero() {
		report.Uptime = time.Since(s.startedAt).Truncate(time.Second).String()
	}
	s.writeJSON(w, report)
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	if members, ok := s.members(w, r); ok {
		s.writeJSON(w, members)
	}
}

func (s *Server) handleTraffic(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.source.Traffic())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {

	type health struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}
	h := health{Status: "ok", Timestamp: time.Now()}

	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()
	if _, err := s.source.Members(ctx); err != nil {
		h.Status = "degraded"
	}
	s.writeJSON(w, h)
}

// members 查询注册表快照，失败时写出 503
func (s *Server) members(w http.ResponseWriter, r *http.Request) ([]channel.MemberInfo, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	members, err := s.source.Members(ctx)
	if err != nil {
		http.Error(w, "Registry not available", http.StatusServiceUnavailable)
		return nil, false
	}
	return members, true
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Debug("编码 JSON 失败", "error", err)
	}
}
