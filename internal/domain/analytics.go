package domain

import "time"

// DateLayout is the format of the startDate/endDate query parameters.
const DateLayout = "2006-01-02"

// DateRange optionally narrows list and analytics queries.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// IsZero reports whether no bound is set.
func (r DateRange) IsZero() bool {
	return r.Start == nil && r.End == nil
}

// Ordered reports whether End is not before Start. Open ranges are ordered.
func (r DateRange) Ordered() bool {
	return r.Start == nil || r.End == nil || !r.End.Before(*r.Start)
}

// Dashboard is the analytics payload shown to staff.
type Dashboard struct {
	Metrics   map[string]any    `json:"metrics"`
	GraphURLs map[string]string `json:"graph_urls"`
}

// Metric returns a numeric metric, reporting false when absent or not numeric.
func (d *Dashboard) Metric(name string) (float64, bool) {
	if d == nil || d.Metrics == nil {
		return 0, false
	}
	switch v := d.Metrics[name].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
