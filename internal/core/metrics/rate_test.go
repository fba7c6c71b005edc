package metrics

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
)

func TestRateMeter_Window(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Unix(1000, 0))
	r := NewRateMeter(clk)

	r.Add(100)
	clk.Add(time.Second)
	r.Add(50)

	assert.Equal(t, int64(150), r.Window())
	assert.InDelta(t, 2.5, r.Rate(), 0.0001)
}

func TestRateMeter_Expires(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Unix(1000, 0))
	r := NewRateMeter(clk)

	r.Add(60)
	clk.Add(59 * time.Second)
	assert.Equal(t, int64(60), r.Window())

	clk.Add(time.Second)
	assert.Equal(t, int64(0), r.Window())
}

func TestRateMeter_LongGap(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Unix(1000, 0))
	r := NewRateMeter(clk)

	r.Add(10)
	clk.Add(10 * time.Minute)
	r.Add(5)
	assert.Equal(t, int64(5), r.Window())
}

func TestTraffic(t *testing.T) {
	clk := clock.NewMock()
	tr := NewTraffic(clk)

	tr.LogRecv(30)
	tr.LogSent(90)
	tr.LogSent(-1)

	s := tr.Totals()
	assert.Equal(t, int64(30), s.TotalIn)
	assert.Equal(t, int64(90), s.TotalOut)
	assert.InDelta(t, 1.5, s.RateOut, 0.0001)
}

func TestTraffic_Nil(t *testing.T) {
	var tr *Traffic
	tr.LogRecv(1)
	tr.LogSent(1)
	assert.Equal(t, Stats{}, tr.Totals())
}
