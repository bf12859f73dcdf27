package domain

// Item is a canonical material profile. The description is the dedup
// key: items are found or created by exact, case-sensitive description
// match. The item code is informational and not unique.
type Item struct {
	ID              uint   `gorm:"primaryKey" json:"item_id"`
	ItemCode        string `gorm:"type:varchar(50)" json:"item_code"`
	ItemDescription string `gorm:"type:text;uniqueIndex;not null" json:"item_description"`

	BatchItems []BatchItem `gorm:"foreignKey:ItemID" json:"batch_items,omitempty"`
}

// TableName specifies the table name for GORM
func (Item) TableName() string {
	return "items"
}

// BatchItem is one cutting event of an item within a batch, with the
// lengths and derived ratios for that cut. Lengths are millimetres.
type BatchItem struct {
	ID                         uint    `gorm:"primaryKey" json:"batch_items_id"`
	BatchID                    uint    `gorm:"not null;index" json:"batch_id"`
	ItemID                     uint    `gorm:"not null;index" json:"item_id"`
	Quantity                   int     `json:"quantity"`
	InputBarLengthMM           int     `json:"input_bar_length_mm"`
	BarLengthUsedMM            int     `json:"bar_length_used_mm"`
	TotalLengthUsedMM          int     `json:"total_length_used_mm"`
	OffcutLengthCreatedMM      int     `json:"offcut_length_created_mm"`
	TotalOffcutLengthCreatedMM int     `json:"total_offcut_length_created_mm"`
	DoubleCut                  bool    `json:"double_cut"`
	WastePercentage            float64 `gorm:"type:numeric(5,2)" json:"waste_percentage"`
	UsageEfficiency            float64 `gorm:"type:numeric(5,2)" json:"usage_efficiency"`

	Item *Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`
}

// TableName specifies the table name for GORM
func (BatchItem) TableName() string {
	return "batch_items"
}
