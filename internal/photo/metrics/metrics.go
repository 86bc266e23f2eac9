package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	UploadsRequested prometheus.Counter
	UploadsConfirmed prometheus.Counter
	PhotosDeleted    prometheus.Counter
	QuotaRejections  prometheus.Counter
	ReclaimedBytes   prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		UploadsRequested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "photoportal_uploads_requested_total",
			Help: "Total number of upload URLs issued",
		}),
		UploadsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "photoportal_uploads_confirmed_total",
			Help: "Total number of uploads confirmed against object storage",
		}),
		PhotosDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "photoportal_photos_deleted_total",
			Help: "Total number of photos deleted",
		}),
		QuotaRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "photoportal_quota_rejections_total",
			Help: "Total number of uploads rejected for exceeding the storage quota",
		}),
		ReclaimedBytes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "photoportal_reclaimed_bytes_total",
			Help: "Total bytes released from reservations that were never confirmed",
		}),
	}
}

func (m *Metrics) IncrementUploadRequested() {
	m.UploadsRequested.Inc()
}

func (m *Metrics) IncrementUploadConfirmed() {
	m.UploadsConfirmed.Inc()
}

func (m *Metrics) IncrementPhotoDeleted() {
	m.PhotosDeleted.Inc()
}

func (m *Metrics) IncrementQuotaRejection() {
	m.QuotaRejections.Inc()
}

func (m *Metrics) AddReclaimedBytes(n int64) {
	if n > 0 {
		m.ReclaimedBytes.Add(float64(n))
	}
}
