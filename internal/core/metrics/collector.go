package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/dep2p/go-signal/internal/util/logger"
	pkgif "github.com/dep2p/go-signal/pkg/interfaces"
	"github.com/dep2p/go-signal/pkg/types"
)

var log = logger.Logger("core/metrics")

const namespace = "signal"

// ErrAlreadyStarted 重复启动
var ErrAlreadyStarted = errors.New("metrics: collector already started")

// Collector Prometheus 指标
type Collector struct {
	reg *prometheus.Registry

	members      prometheus.Gauge
	joined       prometheus.Counter
	left         *prometheus.CounterVec
	relayed      prometheus.Counter
	relayBytes   prometheus.Counter
	failures     prometheus.Counter
	queueDropped prometheus.Counter
	requests     *prometheus.CounterVec
	connsOpen    prometheus.Gauge

	mu   sync.Mutex
	subs []pkgif.Subscription
	wg   sync.WaitGroup
}

// NewCollector 创建指标集合并注册到独立的 Registry
//
// traffic 非 nil 时额外导出读写字节总数。
func NewCollector(traffic *Traffic) *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		members: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "members",
			Help: "Currently registered members.",
		}),
		joined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "members_joined_total",
			Help: "Members added via sign-in.",
		}),
		left: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "members_left_total",
			Help: "Members removed, by reason.",
		}, []string{"reason"}),
		relayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_relayed_total",
			Help: "Peer-to-peer messages relayed.",
		}),
		relayBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "relay_bytes_total",
			Help: "Payload bytes relayed between members.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "delivery_failures_total",
			Help: "Failed deliveries to parked requests.",
		}),
		queueDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "queue_dropped_total",
			Help: "Notifications dropped by the per-member queue bound.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "requests_total",
			Help: "Completed requests, by kind.",
		}, []string{"kind"}),
		connsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connections_open",
			Help: "Open client connections.",
		}),
	}

	c.reg.MustRegister(
		c.members, c.joined, c.left, c.relayed, c.relayBytes,
		c.failures, c.queueDropped, c.requests, c.connsOpen,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if traffic != nil {
		c.reg.MustRegister(
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: namespace, Name: "traffic_in_bytes_total",
				Help: "Bytes read from client connections.",
			}, func() float64 { return float64(traffic.Totals().TotalIn) }),
			prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: namespace, Name: "traffic_out_bytes_total",
				Help: "Bytes written to client connections.",
			}, func() float64 { return float64(traffic.Totals().TotalOut) }),
		)
	}
	return c
}

// Registry 返回指标注册表
func (c *Collector) Registry() *prometheus.Registry {
	return c.reg
}

// ObserveRequest 记录一次完整请求，c 为 nil 时忽略
func (c *Collector) ObserveRequest(kind string) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(kind).Inc()
}

// ConnOpened 连接建立
func (c *Collector) ConnOpened() {
	if c != nil {
		c.connsOpen.Inc()
	}
}

// ConnClosed 连接关闭
func (c *Collector) ConnClosed() {
	if c != nil {
		c.connsOpen.Dec()
	}
}

// Start 订阅事件总线
func (c *Collector) Start(bus pkgif.EventBus) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subs != nil {
		return ErrAlreadyStarted
	}

	var err error
	for _, typ := range []interface{}{
		new(types.EvtMemberJoined),
		new(types.EvtMemberLeft),
		new(types.EvtMessageRelayed),
		new(types.EvtDeliveryFailed),
		new(types.EvtQueueOverflow),
	} {
		sub, subErr := bus.Subscribe(typ, pkgif.BufSize(256))
		if subErr != nil {
			err = multierr.Append(err, subErr)
			continue
		}
		c.subs = append(c.subs, sub)
	}
	if err != nil {
		for _, s := range c.subs {
			_ = s.Close()
		}
		c.subs = nil
		return err
	}

	for _, sub := range c.subs {
		c.wg.Add(1)
		go c.consume(sub)
	}
	return nil
}

func (c *Collector) consume(sub pkgif.Subscription) {
	defer c.wg.Done()
	for evt := range sub.Out() {
		c.handle(evt)
	}
	if n := sub.Dropped(); n > 0 {
		log.Warn("指标订阅丢弃了事件", "dropped", n)
	}
}

// handle 按事件更新指标
func (c *Collector) handle(evt interface{}) {
	switch e := evt.(type) {
	case *types.EvtMemberJoined:
		c.joined.Inc()
		c.members.Set(float64(e.Total))
	case *types.EvtMemberLeft:
		c.left.WithLabelValues(e.Reason.String()).Inc()
		c.members.Set(float64(e.Total))
	case *types.EvtMessageRelayed:
		c.relayed.Inc()
		c.relayBytes.Add(float64(e.Bytes))
	case *types.EvtDeliveryFailed:
		c.failures.Inc()
	case *types.EvtQueueOverflow:
		c.queueDropped.Add(float64(e.Dropped))
	}
}

// Stop 取消订阅并等待消费协程退出
func (c *Collector) Stop() error {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	var err error
	for _, s := range subs {
		err = multierr.Append(err, s.Close())
	}
	c.wg.Wait()
	return err
}
