package fleet

import (
	"time"

	"github.com/madisoncarter1234/fleetv3/internal/domain/values"
)

// JobStatus is the scheduling state of a job in the audited window.
type JobStatus string

const (
	JobStatusScheduled JobStatus = "scheduled"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
)

// JobRecord is one normalized scheduled job. VehicleID is optional; when
// absent, ghost-job checks fall back to the driver's vehicle assignments.
type JobRecord struct {
	JobID         string             `json:"job_id"`
	VehicleID     string             `json:"vehicle_id,omitempty"`
	DriverName    string             `json:"driver_name"`
	ScheduledTime time.Time          `json:"scheduled_time"`
	Address       string             `json:"address"`
	Coordinate    *values.Coordinate `json:"coordinate,omitempty"`
	Status        JobStatus          `json:"status"`
}

// Auditable reports whether the job should be checked for ghost work.
// Cancelled jobs legitimately have no site presence.
func (j JobRecord) Auditable() bool {
	return j.Status != JobStatusCancelled && !j.ScheduledTime.IsZero()
}
