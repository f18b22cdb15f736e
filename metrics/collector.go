// Package metrics exposes a Sender's live state as Prometheus gauges and
// counters, following the pattern in runZeroInc-sockstats' pkg/exporter:
// Collect() reads straight from the externally-owned state the control loop
// already mutates, rather than running a separate sampling goroutine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/udpftp/udpftp/sender"
)

// SenderCollector implements prometheus.Collector over a single Sender's
// Snapshot.
type SenderCollector struct {
	s *sender.Sender

	cwnd          *prometheus.Desc
	ssthresh      *prometheus.Desc
	srtt          *prometheus.Desc
	rttvar        *prometheus.Desc
	rto           *prometheus.Desc
	bytesInFlight *prometheus.Desc
	segmentsSent  *prometheus.Desc
	retransmits   *prometheus.Desc
	duplicateAcks *prometheus.Desc
}

// NewSenderCollector wraps s for registration with a prometheus.Registry.
func NewSenderCollector(s *sender.Sender) *SenderCollector {
	return &SenderCollector{
		s: s,
		cwnd: prometheus.NewDesc(
			"udpftp_sender_cwnd_bytes", "Current admission cap (cwnd for variant B, SWS for variant A)", nil, nil),
		ssthresh: prometheus.NewDesc(
			"udpftp_sender_ssthresh_bytes", "Slow-start threshold (variant B only; zero otherwise)", nil, nil),
		srtt: prometheus.NewDesc(
			"udpftp_sender_srtt_seconds", "Smoothed round-trip time", nil, nil),
		rttvar: prometheus.NewDesc(
			"udpftp_sender_rttvar_seconds", "Round-trip time variance", nil, nil),
		rto: prometheus.NewDesc(
			"udpftp_sender_rto_seconds", "Current retransmission timeout", nil, nil),
		bytesInFlight: prometheus.NewDesc(
			"udpftp_sender_bytes_in_flight", "Bytes sent but not yet cumulatively acknowledged", nil, nil),
		segmentsSent: prometheus.NewDesc(
			"udpftp_sender_segments_sent_total", "Data segments sent for the first time, EOF included; retransmits are counted by udpftp_sender_retransmits_total", nil, nil),
		retransmits: prometheus.NewDesc(
			"udpftp_sender_retransmits_total", "Segments retransmitted, by trigger", []string{"trigger"}, nil),
		duplicateAcks: prometheus.NewDesc(
			"udpftp_sender_duplicate_acks_total", "ACKs received repeating the current send_base", nil, nil),
	}
}

func (c *SenderCollector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.cwnd
	descs <- c.ssthresh
	descs <- c.srtt
	descs <- c.rttvar
	descs <- c.rto
	descs <- c.bytesInFlight
	descs <- c.segmentsSent
	descs <- c.retransmits
	descs <- c.duplicateAcks
}

func (c *SenderCollector) Collect(metrics chan<- prometheus.Metric) {
	st := c.s.Snapshot()

	metrics <- prometheus.MustNewConstMetric(c.cwnd, prometheus.GaugeValue, float64(st.Cap))
	metrics <- prometheus.MustNewConstMetric(c.ssthresh, prometheus.GaugeValue, float64(st.Ssthresh))
	metrics <- prometheus.MustNewConstMetric(c.srtt, prometheus.GaugeValue, st.SRTT.Seconds())
	metrics <- prometheus.MustNewConstMetric(c.rttvar, prometheus.GaugeValue, st.RTTVar.Seconds())
	metrics <- prometheus.MustNewConstMetric(c.rto, prometheus.GaugeValue, st.RTO.Seconds())
	metrics <- prometheus.MustNewConstMetric(c.bytesInFlight, prometheus.GaugeValue, float64(st.BytesInFlight))
	metrics <- prometheus.MustNewConstMetric(c.segmentsSent, prometheus.CounterValue, float64(st.SegmentsSent))
	metrics <- prometheus.MustNewConstMetric(c.duplicateAcks, prometheus.CounterValue, float64(st.DuplicateAcks))

	for trigger, count := range st.Retransmits {
		metrics <- prometheus.MustNewConstMetric(c.retransmits, prometheus.CounterValue, float64(count), trigger)
	}
}
