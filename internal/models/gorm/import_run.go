package gorm

import "time"

// ImportRun is one completed import batch, kept for auditing which records
// made it into the AMS and which did not.
type ImportRun struct {
	ID         string     `gorm:"column:id;primaryKey;type:uuid;default:gen_random_uuid()"`
	RequestID  string     `gorm:"column:request_id;index;type:varchar(64)"`
	FormName   string     `gorm:"column:form_name;type:text;not null"`
	Operation  string     `gorm:"column:operation;type:varchar(16);not null"`
	Attempted  int        `gorm:"column:attempted;not null"`
	Succeeded  int        `gorm:"column:succeeded;not null"`
	Failed     int        `gorm:"column:failed;not null"`
	FailedJSON string     `gorm:"column:failed_json;type:text"`
	StartedAt  time.Time  `gorm:"column:started_at;not null"`
	FinishedAt *time.Time `gorm:"column:finished_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (ImportRun) TableName() string {
	return "import_runs"
}
