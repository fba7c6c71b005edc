// Package limiter 提供按来源 IP 的请求限速
//
// 注册请求与普通请求各有一组令牌桶；桶表使用带过期的 LRU，
// 条目数与空闲时间都有上限。
package limiter

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/dep2p/go-signal/config"
	"github.com/dep2p/go-signal/internal/util/logger"
)

var log = logger.Logger("core/limiter")

// ErrRateLimited 超过限速
var ErrRateLimited = errors.New("limiter: rate limited")

// Limiter 按来源 IP 的限速器，nil 表示不限速
type Limiter struct {
	clk     clock.Clock
	signIn  *bucketTable
	request *bucketTable
}

// bucketTable 单类请求的令牌桶表
type bucketTable struct {
	limit rate.Limit
	burst int

	mu    sync.Mutex
	table *expirable.LRU[string, *rate.Limiter]
}

func newBucketTable(rps float64, burst, size int, ttl time.Duration) *bucketTable {
	return &bucketTable{
		limit: rate.Limit(rps),
		burst: burst,
		table: expirable.NewLRU[string, *rate.Limiter](size, nil, ttl),
	}
}

func (b *bucketTable) allow(key string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	lim, ok := b.table.Get(key)
	if !ok {
		lim = rate.NewLimiter(b.limit, b.burst)
		b.table.Add(key, lim)
	}
	return lim.AllowN(now, 1)
}

// New 按配置创建限速器；未启用时返回 nil
func New(cfg config.LimitsConfig, clk clock.Clock) *Limiter {
	if !cfg.EnableRateLimit {
		return nil
	}
	if clk == nil {
		clk = clock.New()
	}
	ttl := cfg.IdleTTL.Duration()
	return &Limiter{
		clk:     clk,
		signIn:  newBucketTable(cfg.SignInRPS, cfg.SignInBurst, cfg.MaxTrackedIPs, ttl),
		request: newBucketTable(cfg.RequestRPS, cfg.RequestBurst, cfg.MaxTrackedIPs, ttl),
	}
}

// Allow 检查来源 key 的一次请求；signIn 为 true 时同时消耗注册配额
func (l *Limiter) Allow(key string, signIn bool) error {
	if l == nil || key == "" {
		return nil
	}
	now := l.clk.Now()
	if !l.request.allow(key, now) {
		return ErrRateLimited
	}
	if signIn && !l.signIn.allow(key, now) {
		return ErrRateLimited
	}
	return nil
}

// Tracked 返回当前跟踪的来源数
func (l *Limiter) Tracked() int {
	if l == nil {
		return 0
	}
	return l.request.table.Len()
}

// KeyFromAddr 取远端地址的 IP 部分作为限速 key
func KeyFromAddr(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return tcp.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
