package worker

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"storyvideo-server/internal/provider"
)

const (
	jobName = "storyvideo_worker"
)

var (
	// Общий реестр для всех метрик этого воркера
	registry = prometheus.NewRegistry()

	tasksReceived = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyvideo_tasks_received_total",
			Help: "Total number of generation tasks received, partitioned by task type.",
		},
		[]string{"task_type"},
	)
	tasksFailed = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyvideo_tasks_failed_total",
			Help: "Total number of tasks failed, partitioned by failure reason.",
		},
		[]string{"reason"},
	)
	tasksSucceeded = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "storyvideo_tasks_succeeded_total",
			Help: "Total number of tasks successfully processed, partitioned by task type.",
		},
		[]string{"task_type"},
	)
	billedMXN = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "storyvideo_billed_mxn_total",
			Help: "Total realized cost of completed generations in MXN.",
		},
	)
	chainSegmentsCompleted = promauto.With(registry).NewCounter(
		prometheus.CounterOpts{
			Name: "storyvideo_chain_segments_completed_total",
			Help: "Total number of story chain segments completed.",
		},
	)
	taskDuration = promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storyvideo_task_duration_seconds",
			Help:    "Histogram of end-to-end task durations.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s .. ~68min
		},
		[]string{"task_type", "status"},
	)

	// Pusher для отправки метрик в Pushgateway
	pusher *push.Pusher

	// Группировочные метки для Pushgateway
	groupingKey map[string]string
)

// Registry возвращает реестр воркера для отдачи метрик по HTTP.
func Registry() *prometheus.Registry {
	return registry
}

// Gatherer объединяет метрики воркера и провайдеров: обе группы
// отдаются на /metrics и уходят в Pushgateway.
func Gatherer() prometheus.Gatherer {
	return prometheus.Gatherers{registry, provider.MetricsGatherer()}
}

// InitMetricsPusher инициализирует клиент Pushgateway.
func InitMetricsPusher(pushgatewayURL string) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
		log.Printf("[Metrics] Warning: could not get hostname: %v", err)
	}
	instanceID := fmt.Sprintf("%s-%d", hostname, os.Getpid())
	groupingKey = map[string]string{"instance": instanceID}

	pusher = push.New(pushgatewayURL, jobName).Gatherer(Gatherer()).Grouping("instance", instanceID)

	// Пробная отправка для проверки соединения
	if err := pusher.Push(); err != nil {
		return fmt.Errorf("could not push initial metrics to Pushgateway: %w", err)
	}
	log.Printf("[Metrics] Initial push to Pushgateway successful (instance %s).", instanceID)
	return nil
}

// StartMetricsPusher запускает горутину для периодической отправки метрик.
func StartMetricsPusher(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			if pusher == nil {
				ticker.Stop()
				return
			}
			_ = pushMetrics()
		}
	}()
	log.Printf("[Metrics] Started periodic pusher with interval %v", interval)
}

func pushMetrics() error {
	if pusher == nil {
		return errors.New("pusher not initialized")
	}
	if err := pusher.Push(); err != nil {
		log.Printf("[Metrics] Error pushing metrics to Pushgateway: %v", err)
		return err
	}
	return nil
}

// MetricsTaskReceived увеличивает счетчик полученных задач.
func MetricsTaskReceived(taskType string) {
	tasksReceived.WithLabelValues(taskType).Inc()
}

// MetricsTaskFailed увеличивает счетчик неудачных задач для указанной причины.
func MetricsTaskFailed(reason string) {
	tasksFailed.WithLabelValues(reason).Inc()
}

// MetricsTaskSucceeded увеличивает счетчик успешно выполненных задач.
func MetricsTaskSucceeded(taskType string) {
	tasksSucceeded.WithLabelValues(taskType).Inc()
}

// MetricsAddBilledMXN добавляет фактически списанную сумму.
func MetricsAddBilledMXN(amount float64) {
	if amount > 0 {
		billedMXN.Add(amount)
	}
}

// MetricsChainSegmentCompleted отмечает завершённый сегмент цепочки.
func MetricsChainSegmentCompleted() {
	chainSegmentsCompleted.Inc()
}

// MetricsObserveTaskDuration записывает длительность задачи.
func MetricsObserveTaskDuration(taskType, status string, seconds float64) {
	taskDuration.WithLabelValues(taskType, status).Observe(seconds)
}

// CleanupMetrics удаляет метрики этого инстанса из Pushgateway.
// Должна вызываться через defer в main.
func CleanupMetrics() {
	if pusher == nil {
		return
	}
	log.Printf("[Metrics] Deleting metrics from Pushgateway for job '%s', grouping key: %v", jobName, groupingKey)
	if err := pusher.Delete(); err != nil {
		log.Printf("[Metrics] Error deleting metrics from Pushgateway: %v", err)
	}
}
