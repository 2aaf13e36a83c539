package daemon

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "resolvd"

// Metrics 守护进程的 Prometheus 指标
type Metrics struct {
	Connected  prometheus.Gauge
	Accepted   prometheus.Counter
	Rejected   prometheus.Counter
	Evicted    prometheus.Counter
	KeepAlives prometheus.Counter
	Dropped    prometheus.Counter
	// AcceptErrors 接受连接失败次数（失败后退避重试）
	AcceptErrors prometheus.Counter
	Requests     *prometheus.CounterVec
}

// NewMetrics 创建并注册指标
//
// reg 为 nil 时指标只在内存中计数，不对外暴露。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "clients_connected",
			Help:      "当前连接的客户端数",
		}),
		Accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "clients_accepted_total",
			Help:      "接纳的连接总数",
		}),
		Rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "clients_rejected_total",
			Help:      "因超过连接上限被拒绝的连接总数",
		}),
		Evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "clients_evicted_total",
			Help:      "因错误或断开被淘汰的连接总数",
		}),
		KeepAlives: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "keepalives_sent_total",
			Help:      "发送的存活探测总数",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_dropped_total",
			Help:      "未知类型被丢弃的消息总数",
		}),
		AcceptErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "accept_errors_total",
			Help:      "接受连接失败的次数",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "按类型和状态统计的请求数",
		}, []string{"type", "status"}),
	}

	if reg != nil {
		reg.MustRegister(m.Connected, m.Accepted, m.Rejected, m.Evicted, m.KeepAlives, m.Dropped, m.AcceptErrors, m.Requests)
	}
	return m
}

// Stats 守护进程统计快照
type Stats struct {
	Connected      int
	Accepted       uint64
	Rejected       uint64
	Evicted        uint64
	Requests       uint64
	Dropped        uint64
	KeepAlivesSent uint64
	AcceptErrors   uint64
}
