package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udpftp/udpftp/sender"
)

func TestCollectorDescribeEmitsEveryDesc(t *testing.T) {
	c := NewSenderCollector(sender.New(nil, nil, nil, 0, sender.Config{}))
	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	count := 0
	for range ch {
		count++
	}
	assert.Equal(t, 9, count)
}

func TestCollectorCollectReflectsSnapshot(t *testing.T) {
	s := sender.New(nil, nil, nil, 1000, sender.Config{Variant: sender.VariantA, SWS: 4096})
	c := NewSenderCollector(s)

	ch := make(chan prometheus.Metric, 16)
	c.Collect(ch)
	close(ch)

	var m dto.Metric
	for metric := range ch {
		desc := metric.Desc()
		if desc.String() == c.cwnd.String() {
			require.NoError(t, metric.Write(&m))
			assert.Equal(t, float64(4096), m.GetGauge().GetValue())
		}
	}
}
