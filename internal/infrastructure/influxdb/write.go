package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// emit queues a point for the batched writer. Dropped silently when the
// client is closed so callers never block on telemetry.
func (c *Client) emit(p *write.Point) {
	if c.IsConnected() {
		c.writeAPI.WritePoint(p)
	}
}

// WriteEventOutcome records the processing outcome of one inbound
// event. Device, action and status are tags (low cardinality); counts
// and latency are fields.
func (c *Client) WriteEventOutcome(device, action, status string, matched, dispatched int, latency time.Duration) {
	c.emit(write.NewPoint(
		"event_outcomes",
		map[string]string{"device": device, "action": action, "status": status},
		map[string]interface{}{
			"matched":    matched,
			"dispatched": dispatched,
			"latency_us": latency.Microseconds(),
		},
		time.Now(),
	))
}

// WriteCommandMetric records one dispatched command. success is false
// when the broker publish failed.
func (c *Client) WriteCommandMetric(targetType, targetID, commandType string, success bool) {
	c.emit(write.NewPoint(
		"commands",
		map[string]string{
			"target_type": targetType,
			"target_id":   targetID,
			"command":     commandType,
		},
		map[string]interface{}{"success": success},
		time.Now(),
	))
}

// WritePoint records a custom measurement stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.emit(write.NewPoint(measurement, tags, fields, time.Now()))
}

// WritePointWithTime records a custom measurement with an explicit
// timestamp, for replayed or backfilled data.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	c.emit(write.NewPoint(measurement, tags, fields, timestamp))
}
