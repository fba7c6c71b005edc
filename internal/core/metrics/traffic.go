package metrics

import (
	"sync/atomic"

	"github.com/benbjohnson/clock"
)

// Traffic 连接读写字节计数
//
// 读协程与分发协程并发调用，计数均为原子操作。
type Traffic struct {
	totalIn  atomic.Int64
	totalOut atomic.Int64

	rateIn  *RateMeter
	rateOut *RateMeter
}

// NewTraffic 创建流量计数器
func NewTraffic(clk clock.Clock) *Traffic {
	return &Traffic{
		rateIn:  NewRateMeter(clk),
		rateOut: NewRateMeter(clk),
	}
}

// LogRecv 记录读取的字节数
func (t *Traffic) LogRecv(n int) {
	if t == nil || n <= 0 {
		return
	}
	t.totalIn.Add(int64(n))
	t.rateIn.Add(int64(n))
}

// LogSent 记录写出的字节数
func (t *Traffic) LogSent(n int) {
	if t == nil || n <= 0 {
		return
	}
	t.totalOut.Add(int64(n))
	t.rateOut.Add(int64(n))
}

// Totals 返回快照
func (t *Traffic) Totals() Stats {
	if t == nil {
		return Stats{}
	}
	return Stats{
		TotalIn:  t.totalIn.Load(),
		TotalOut: t.totalOut.Load(),
		RateIn:   t.rateIn.Rate(),
		RateOut:  t.rateOut.Rate(),
	}
}
