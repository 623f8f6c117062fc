package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "automarket"

type Metrics struct {
	actions        *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	broadcasts     *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	crmLeads       *prometheus.CounterVec
}

// New регистрирует метрики в reg. Все методы допускают nil-получатель.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		actions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Количество обработанных действий по заказам",
		}, []string{"action", "result"}),
		actionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Время выполнения действий по заказам",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		broadcasts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_messages_total",
			Help:      "Отправленные подписчикам сообщения",
		}, []string{"result"}),
		cacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Обращения к кэшу выгрузки",
		}, []string{"result"}),
		crmLeads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crm_leads_total",
			Help:      "Попытки создания лидов в CRM",
		}, []string{"result"}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveAction(action string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(action, result(err)).Inc()
	m.actionDuration.WithLabelValues(action).Observe(time.Since(started).Seconds())
}

func (m *Metrics) Broadcast(err error) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) CRMLead(err error) {
	if m == nil {
		return
	}
	m.crmLeads.WithLabelValues(result(err)).Inc()
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
