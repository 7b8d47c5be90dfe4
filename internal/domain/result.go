package domain

import "time"

// DailyResult is a derived per-day, per-department aggregate. Department
// nil means the overall bucket. Rows are upserted by the aggregation
// engine and are safe to delete and regenerate.
type DailyResult struct {
	ID         string    `json:"id" db:"id"`
	CampaignID string    `json:"campaign_id" db:"campaign_id"`
	Day        time.Time `json:"day" db:"day"`
	Department *string   `json:"department" db:"department"`

	SentCount          int `json:"sent_count" db:"sent_count"`
	DeliveredCount     int `json:"delivered_count" db:"delivered_count"`
	OpenedCount        int `json:"opened_count" db:"opened_count"`
	ClickedCount       int `json:"clicked_count" db:"clicked_count"`
	ReportedCount      int `json:"reported_count" db:"reported_count"`
	DataSubmittedCount int `json:"data_submitted_count" db:"data_submitted_count"`

	ClickRate  float64 `json:"click_rate" db:"click_rate"`
	ReportRate float64 `json:"report_rate" db:"report_rate"`
	RiskScore  float64 `json:"risk_score" db:"risk_score"`
}
