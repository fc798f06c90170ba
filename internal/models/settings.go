package models

// Settings keys
const (
	SettingIRSRatePerMile = "irs_rate_per_mile"
)

// DefaultIRSRatePerMile is the reimbursement rate used when no rate has
// been configured.
const DefaultIRSRatePerMile = 0.67
