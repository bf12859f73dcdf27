package domain

import (
	"time"
)

// Batch represents one processed cutting report, identified by the
// machine-assigned batch code printed on the report
type Batch struct {
	ID        uint      `gorm:"primaryKey" json:"batch_id"`
	BatchCode string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"batch_code"`
	BatchDate time.Time `gorm:"type:date;not null" json:"batch_date"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Details []BatchDetail `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE" json:"details,omitempty"`
	Items   []BatchItem   `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
}

// TableName specifies the table name for GORM
func (Batch) TableName() string {
	return "batches"
}

// BatchDetail records one ingestion event for a batch: which saw
// produced the report and which source file it came from
type BatchDetail struct {
	ID         uint   `gorm:"primaryKey" json:"batch_detail_id"`
	BatchID    uint   `gorm:"not null;index" json:"batch_id"`
	SawName    string `gorm:"type:varchar(50)" json:"saw_name"`
	SourceFile string `gorm:"type:text" json:"source_file"`
}

// TableName specifies the table name for GORM
func (BatchDetail) TableName() string {
	return "batch_details"
}

// NonProductiveSaws lists saw names whose records represent non-cutting
// operations and must never be persisted as batch items
func NonProductiveSaws() []string {
	return []string{"Steel Saw"}
}

// IsProductiveSaw reports whether records from the given saw should be
// persisted
func IsProductiveSaw(sawName string) bool {
	for _, s := range NonProductiveSaws() {
		if s == sawName {
			return false
		}
	}
	return true
}
