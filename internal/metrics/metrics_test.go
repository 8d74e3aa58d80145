package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveProbe(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())

	r.ObserveProbe("sushiswap", "sell_failed", 2*time.Second)
	r.ObserveProbe("sushiswap", "sell_failed", time.Second)
	r.ObserveProbe("uniswapv3", "sell_succeeded", time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(r.Probes.WithLabelValues("sushiswap", "sell_failed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.Probes.WithLabelValues("uniswapv3", "sell_succeeded")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.ProbeDuration))
}

func TestObserveQuery(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())

	r.ObserveQuery("uniswapv2", nil, 10*time.Millisecond)
	r.ObserveQuery("uniswapv2", errors.New("timeout"), 10*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(r.Queries.WithLabelValues("uniswapv2", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.Queries.WithLabelValues("uniswapv2", "error")))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveProbe("x", "y", time.Second)
		r.ObserveQuery("x", nil, time.Second)
	})
}
