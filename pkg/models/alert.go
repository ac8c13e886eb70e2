package models

import "time"

// AlertSeverity classifies an alert.
type AlertSeverity string

const (
	SeverityError   AlertSeverity = "error"
	SeverityWarning AlertSeverity = "warning"
	SeverityInfo    AlertSeverity = "info"
)

// Alert source tags. The source identifies which subsystem raised the
// alert, not the device component it describes.
const (
	AlertSourceConnection = "connection"
	AlertSourceMetrics    = "metrics"
	AlertSourceInterface  = "interface"
	AlertSourceWireless   = "wireless"
	AlertSourceCapsman    = "capsman"
)

// Alert is an immutable event record. Alerts are only ever created and
// acknowledged, never deleted by the core.
type Alert struct {
	ID           string        `json:"id"`
	DeviceID     int64         `json:"device_id"`
	Severity     AlertSeverity `json:"severity"`
	Message      string        `json:"message"`
	Source       string        `json:"source"`
	Timestamp    time.Time     `json:"timestamp"`
	Acknowledged bool          `json:"acknowledged"`
}

// Metric is one timestamped sample of device health. Samples are
// append-only; the core never updates or deletes them.
type Metric struct {
	DeviceID          int64     `json:"device_id"`
	Timestamp         time.Time `json:"timestamp"`
	CPULoad           int64     `json:"cpu_load"`
	FreeMemory        int64     `json:"free_memory"`
	TotalMemory       int64     `json:"total_memory"`
	Temperature       int64     `json:"temperature"`
	BoardTemp         int64     `json:"board_temp,omitempty"`
	Uptime            string    `json:"uptime"`
	DownloadBandwidth int64     `json:"download_bandwidth"`
	UploadBandwidth   int64     `json:"upload_bandwidth"`
	DownloadRate      int64     `json:"download_rate"`
	UploadRate        int64     `json:"upload_rate"`
}

// DeviceSnapshot is the payload published to broadcast subscribers after a
// successful collection cycle.
type DeviceSnapshot struct {
	DeviceID   int64        `json:"device_id"`
	Timestamp  time.Time    `json:"timestamp"`
	Metric     *Metric      `json:"metric,omitempty"`
	Interfaces []*Interface `json:"interfaces,omitempty"`
	IsOnline   bool         `json:"is_online"`
}
