package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	metricsiface "github.com/weisyn/memwatch/pkg/interfaces/infrastructure/metrics"
)

// footprintCollector 在每次抓取时收集组件自身内存占用
type footprintCollector struct {
	collect func() []metricsiface.ModuleMemoryStats

	approxBytes *prometheus.Desc
	objects     *prometheus.Desc
	queueLength *prometheus.Desc
}

func newFootprintCollector(collect func() []metricsiface.ModuleMemoryStats) *footprintCollector {
	labels := []string{"module", "layer"}
	return &footprintCollector{
		collect: collect,
		approxBytes: prometheus.NewDesc(
			namespace+"_self_approx_bytes",
			"Approximate bytes held by a memwatch component",
			labels, nil,
		),
		objects: prometheus.NewDesc(
			namespace+"_self_objects",
			"Objects tracked by a memwatch component",
			labels, nil,
		),
		queueLength: prometheus.NewDesc(
			namespace+"_self_buffered_entries",
			"Occupied ring buffer slots in a memwatch component",
			labels, nil,
		),
	}
}

func (c *footprintCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.approxBytes
	ch <- c.objects
	ch <- c.queueLength
}

func (c *footprintCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.collect() {
		ch <- prometheus.MustNewConstMetric(c.approxBytes, prometheus.GaugeValue, float64(s.ApproxBytes), s.Module, s.Layer)
		ch <- prometheus.MustNewConstMetric(c.objects, prometheus.GaugeValue, float64(s.Objects), s.Module, s.Layer)
		ch <- prometheus.MustNewConstMetric(c.queueLength, prometheus.GaugeValue, float64(s.QueueLength), s.Module, s.Layer)
	}
}
