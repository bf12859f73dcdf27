package domain

import (
	"time"
)

// Offcut is a physical leftover piece of bar material. The legacy id is
// the report's own numbering, not the surrogate key, and is unique
// across all offcuts. Availability flips false and the reuse count
// increments only when a recommendation is confirmed.
type Offcut struct {
	ID                     uint   `gorm:"primaryKey" json:"offcut_id"`
	LegacyOffcutID         int    `gorm:"uniqueIndex;not null" json:"legacy_offcut_id"`
	LengthMM               int    `gorm:"not null" json:"length_mm"`
	MaterialProfile        string `gorm:"type:varchar(50);index" json:"material_profile"`
	CreatedInBatchDetailID *uint  `json:"created_in_batch_detail_id,omitempty"`
	RelatedLegacyOffcutID  *int   `json:"related_legacy_offcut_id,omitempty"`
	IsAvailable            bool   `gorm:"default:true" json:"is_available"`
	ReuseCount             int    `gorm:"default:0" json:"reuse_count"`

	UsageHistory []OffcutUsageHistory `gorm:"foreignKey:OffcutID" json:"usage_history,omitempty"`
}

// TableName specifies the table name for GORM
func (Offcut) TableName() string {
	return "offcuts"
}

// BatchOffcutSuggestion is an append-only audit record of a match
// between a batch's requirement and one or two candidate offcuts,
// referenced by legacy id.
type BatchOffcutSuggestion struct {
	ID                uint   `gorm:"primaryKey" json:"suggestion_id"`
	BatchID           uint   `gorm:"not null;index" json:"batch_id"`
	OffcutLegacyID1   int    `json:"offcut_legacy_id_1"`
	OffcutLegacyID2   *int   `json:"offcut_legacy_id_2,omitempty"`
	MatchedProfile    string `gorm:"type:varchar(50)" json:"matched_profile"`
	SuggestedLengthMM int    `json:"suggested_length_mm"`
	BatchDetailID     *uint  `json:"batch_detail_id,omitempty"`
}

// TableName specifies the table name for GORM
func (BatchOffcutSuggestion) TableName() string {
	return "batch_offcut_suggestions"
}

// OffcutUsageHistory is an append-only log of each reuse attempt of an
// offcut by a batch
type OffcutUsageHistory struct {
	ID           uint      `gorm:"primaryKey" json:"usage_id"`
	OffcutID     uint      `gorm:"not null;index" json:"offcut_id"`
	BatchID      uint      `gorm:"not null;index" json:"batch_id"`
	ReuseSuccess bool      `json:"reuse_success"`
	ReuseDate    time.Time `gorm:"type:date" json:"reuse_date"`
}

// TableName specifies the table name for GORM
func (OffcutUsageHistory) TableName() string {
	return "offcut_usage_history"
}

// AllModels returns every entity for automigration
func AllModels() []interface{} {
	return []interface{}{
		&Batch{},
		&BatchDetail{},
		&Item{},
		&BatchItem{},
		&Offcut{},
		&BatchOffcutSuggestion{},
		&OffcutUsageHistory{},
	}
}
