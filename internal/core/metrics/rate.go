package metrics

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// meterWindow 速率窗口（秒）
const meterWindow = 60

// RateMeter 60 个 1 秒桶的滑动窗口速率
type RateMeter struct {
	clk clock.Clock

	mu      sync.Mutex
	buckets [meterWindow]int64
	idx     int
	// tick 当前桶对应的秒（Unix 秒）
	tick int64
}

// NewRateMeter 创建速率计算器，clk 为 nil 时使用系统时钟
func NewRateMeter(clk clock.Clock) *RateMeter {
	if clk == nil {
		clk = clock.New()
	}
	return &RateMeter{clk: clk, tick: clk.Now().Unix()}
}

// advance 把窗口推进到当前秒，清空跳过的桶
func (r *RateMeter) advance(now time.Time) {
	sec := now.Unix()
	gap := sec - r.tick
	if gap <= 0 {
		return
	}
	if gap >= meterWindow {
		r.buckets = [meterWindow]int64{}
		r.idx = 0
	} else {
		for i := int64(0); i < gap; i++ {
			r.idx = (r.idx + 1) % meterWindow
			r.buckets[r.idx] = 0
		}
	}
	r.tick = sec
}

// Add 计入 n
func (r *RateMeter) Add(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.advance(r.clk.Now())
	r.buckets[r.idx] += n
}

// Window 返回最近 60 秒的总量
func (r *RateMeter) Window() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.advance(r.clk.Now())
	var total int64
	for _, v := range r.buckets {
		total += v
	}
	return total
}

// Rate 返回最近 60 秒的平均速率（每秒）
func (r *RateMeter) Rate() float64 {
	return float64(r.Window()) / meterWindow
}
