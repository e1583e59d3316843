package model

import "strings"

// AlertRecord is the pending alert reported by /api/status.
type AlertRecord struct {
	AlertType    string `json:"alert_type"`
	Severity     Text   `json:"severity"`
	Threshold    Text   `json:"threshold"`
	CurrentUsage Text   `json:"current_usage"`
	Timestamp    Text   `json:"timestamp"`
}

// Fingerprint identifies an alert. Two records are the same alert iff their
// fingerprints are equal, regardless of severity or usage drift.
type Fingerprint string

// Fingerprint returns alert type and timestamp joined by an underscore.
func (a AlertRecord) Fingerprint() Fingerprint {
	return Fingerprint(a.AlertType + "_" + string(a.Timestamp))
}

// DisplayType is the alert type shown to the operator. Alerts without a type
// are disk alerts on the backend.
func (a AlertRecord) DisplayType() string {
	if a.AlertType == "" {
		return "DISK"
	}
	return a.AlertType
}

// Kind classifies the alert type.
func (a AlertRecord) Kind() AlertKind {
	return ParseAlertKind(a.DisplayType())
}

// AlertKind is the closed set of alert families the console distinguishes.
type AlertKind int

const (
	KindOther AlertKind = iota
	KindCPU
	KindMemory
	KindDisk
	KindService
)

func (k AlertKind) String() string {
	switch k {
	case KindCPU:
		return "cpu"
	case KindMemory:
		return "memory"
	case KindDisk:
		return "disk"
	case KindService:
		return "service"
	}
	return "other"
}

// ParseAlertKind maps a free-form alert type such as "CPU Usage High" or
// "SERVICE_DOWN" onto an AlertKind.
func ParseAlertKind(alertType string) AlertKind {
	t := strings.ToLower(alertType)
	switch {
	case strings.Contains(t, "cpu"):
		return KindCPU
	case strings.Contains(t, "memory"):
		return KindMemory
	case strings.Contains(t, "disk"):
		return KindDisk
	case strings.Contains(t, "service"), strings.Contains(t, "down"):
		return KindService
	}
	return KindOther
}

// Resource is the dimension manual remediation options are fetched for.
type Resource string

const (
	ResourceCPU    Resource = "cpu"
	ResourceMemory Resource = "memory"
	ResourceDisk   Resource = "disk"
)

// Valid reports whether r is one of the three manual resources.
func (r Resource) Valid() bool {
	switch r {
	case ResourceCPU, ResourceMemory, ResourceDisk:
		return true
	}
	return false
}

// ParseResource accepts "cpu", "memory" or "disk" in any case.
func ParseResource(s string) (Resource, bool) {
	r := Resource(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

// ResourceFromAlertType lower-cases the alert type and strips a trailing
// "usage high" phrase ("CPU Usage High" -> cpu). Types that do not name a
// manual resource return false.
func ResourceFromAlertType(alertType string) (Resource, bool) {
	t := strings.ToLower(strings.TrimSpace(alertType))
	if t == "" {
		t = "disk"
	}
	t = strings.TrimSpace(strings.TrimSuffix(t, "usage high"))
	return ParseResource(t)
}
