package sync

import "fmt"

// ScheduleError records a per-schedule failure caught during reconciliation.
// It is data, not a Go error: the enclosing transaction still commits.
type ScheduleError struct {
	ScheduleID string `json:"schedule_id"`
	Message    string `json:"message"`
}

func (e ScheduleError) String() string {
	return fmt.Sprintf("schedule %s: %s", e.ScheduleID, e.Message)
}

// Result accumulates what one ProcessCampaign pass did.
type Result struct {
	CampaignID      string          `json:"campaign_id"`
	OffersCreated   int             `json:"offers_created"`
	OffersUpdated   int             `json:"offers_updated"`
	OffersArchived  int             `json:"offers_archived"`
	VouchersCreated int             `json:"vouchers_created"`
	VouchersDeleted int             `json:"vouchers_deleted"`
	CapacitySkips   int             `json:"capacity_skips"`
	Errors          []ScheduleError `json:"errors,omitempty"`
}

// Success reports whether every schedule reconciled cleanly. Callers should
// treat a committed result with errors as "completed with warnings", not as
// a failure: whatever was counted really happened.
func (r *Result) Success() bool {
	return len(r.Errors) == 0
}

func (r *Result) addError(scheduleID string, err error) {
	r.Errors = append(r.Errors, ScheduleError{ScheduleID: scheduleID, Message: err.Error()})
}
