// Package metrics exposes server counters through a prometheus.Collector,
// grounded on runZeroInc-conniver's pkg/exporter Describe/Collect shape
// (§2 ambient stack).
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector reports connected-client count, bytes transferred, and
// reliability-engine retransmit/NAK counts. Every counter is a plain
// integer updated with atomic ops from whichever client goroutine touches
// it (§5 concurrency model: counters are shared, unlike per-client state).
type Collector struct {
	connectedClients   int64
	bytesIn            uint64
	bytesOut           uint64
	retransmits        uint64
	naksSent           uint64

	connectedDesc  *prometheus.Desc
	bytesInDesc    *prometheus.Desc
	bytesOutDesc   *prometheus.Desc
	retransmitDesc *prometheus.Desc
	nakDesc        *prometheus.Desc
}

// New builds a Collector with its metric descriptions bound once, ready to
// be registered with a prometheus.Registry.
func New() *Collector {
	return &Collector{
		connectedDesc:  prometheus.NewDesc("beacon_connected_clients", "Number of clients currently registered.", nil, nil),
		bytesInDesc:    prometheus.NewDesc("beacon_bytes_in_total", "Total bytes read from the UDP socket.", nil, nil),
		bytesOutDesc:   prometheus.NewDesc("beacon_bytes_out_total", "Total bytes written to the UDP socket.", nil, nil),
		retransmitDesc: prometheus.NewDesc("beacon_retransmits_total", "Total frame batches retransmitted.", nil, nil),
		nakDesc:        prometheus.NewDesc("beacon_naks_sent_total", "Total NAK records sent for missing batches.", nil, nil),
	}
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.connectedDesc
	descs <- c.bytesInDesc
	descs <- c.bytesOutDesc
	descs <- c.retransmitDesc
	descs <- c.nakDesc
}

func (c *Collector) Collect(out chan<- prometheus.Metric) {
	out <- prometheus.MustNewConstMetric(c.connectedDesc, prometheus.GaugeValue, float64(atomic.LoadInt64(&c.connectedClients)))
	out <- prometheus.MustNewConstMetric(c.bytesInDesc, prometheus.CounterValue, float64(atomic.LoadUint64(&c.bytesIn)))
	out <- prometheus.MustNewConstMetric(c.bytesOutDesc, prometheus.CounterValue, float64(atomic.LoadUint64(&c.bytesOut)))
	out <- prometheus.MustNewConstMetric(c.retransmitDesc, prometheus.CounterValue, float64(atomic.LoadUint64(&c.retransmits)))
	out <- prometheus.MustNewConstMetric(c.nakDesc, prometheus.CounterValue, float64(atomic.LoadUint64(&c.naksSent)))
}

func (c *Collector) ClientConnected()    { atomic.AddInt64(&c.connectedClients, 1) }
func (c *Collector) ClientDisconnected() { atomic.AddInt64(&c.connectedClients, -1) }
func (c *Collector) AddBytesIn(n int)    { atomic.AddUint64(&c.bytesIn, uint64(n)) }
func (c *Collector) AddBytesOut(n int)   { atomic.AddUint64(&c.bytesOut, uint64(n)) }
func (c *Collector) AddRetransmits(n int) { atomic.AddUint64(&c.retransmits, uint64(n)) }
func (c *Collector) AddNAKsSent(n int)    { atomic.AddUint64(&c.naksSent, uint64(n)) }
