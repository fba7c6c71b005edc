// Package metrics 提供信令服务的监控指标
//
// 两部分：
//   - Collector: Prometheus 指标，订阅事件总线上的成员/转发事件更新
//   - Traffic: 连接读写字节计数与最近 60 秒速率
//
// # 快速开始
//
//	traffic := metrics.NewTraffic(nil)
//	c := metrics.NewCollector(traffic)
//	_ = c.Start(bus)
//	defer c.Stop()
//
//	http.Handle("/metrics", promhttp.HandlerFor(c.Registry(), promhttp.HandlerOpts{}))
package metrics
