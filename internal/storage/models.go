package storage

import "time"

// Portal holds static metadata about a distributor portal.
type Portal struct {
	Code        string `json:"code" gorm:"primaryKey;column:code"`
	Name        string `json:"name" gorm:"column:name"`
	URL         string `json:"url" gorm:"column:url"`
	Description string `json:"description,omitempty" gorm:"column:description"`
}

// OfferSnapshot stores the latest normalized offer payload for a
// distributor, as produced by one extraction run.
type OfferSnapshot struct {
	ID          uint      `json:"-" gorm:"primaryKey;column:id"`
	Distributor string    `json:"distributor" gorm:"column:distributor"`
	Payload     []byte    `json:"payload" gorm:"column:payload"`
	FetchedAt   time.Time `json:"fetched_at" gorm:"column:fetched_at"`
}

// Setting is a key/value runtime setting (e.g. the worker refresh interval).
type Setting struct {
	Key       string    `gorm:"primaryKey;column:key"`
	Value     string    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// ScheduledJob records the outcome of the most recent worker run per job.
type ScheduledJob struct {
	Name           string    `gorm:"primaryKey;column:name"`
	LastRunAt      time.Time `gorm:"column:last_run_at"`
	LastDurationMs int64     `gorm:"column:last_duration_ms"`
	LastSuccess    int       `gorm:"column:last_success"`
	LastError      string    `gorm:"column:last_error"`
}

// EmailConfig holds configuration for operator email alerts.
type EmailConfig struct {
	ID          string    `json:"id" gorm:"primaryKey;column:id"`
	Provider    string    `json:"provider" gorm:"column:provider"` // "smtp" or "sendgrid"
	Host        string    `json:"host,omitempty" gorm:"column:host"`
	Port        int       `json:"port,omitempty" gorm:"column:port"`
	Username    string    `json:"username,omitempty" gorm:"column:username"`
	Password    string    `json:"password,omitempty" gorm:"column:password"`
	FromAddress string    `json:"from_address" gorm:"column:from_address"`
	FromName    string    `json:"from_name" gorm:"column:from_name"`
	APIKey      string    `json:"api_key,omitempty" gorm:"column:api_key"`
	Recipient   string    `json:"recipient" gorm:"column:recipient"`
	Enabled     bool      `json:"enabled" gorm:"column:enabled"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"column:updated_at"`
}
