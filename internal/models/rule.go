package models

// ReconciliationRule maps a bank-statement description pattern to a target
// account. Patterns are regular expressions compiled case-insensitively
// and are validated at rule-creation time, never at match time.
type ReconciliationRule struct {
	Base
	Name            string  `gorm:"not null" json:"name"`
	Pattern         string  `gorm:"not null" json:"pattern"`
	TargetAccountID string  `gorm:"type:uuid;not null" json:"target_account_id"`
	Category        string  `json:"category"`
	Confidence      float64 `gorm:"not null;default:0.5" json:"confidence"`
	IsActive        bool    `gorm:"default:true" json:"is_active"`
	MatchCount      int     `gorm:"not null;default:0" json:"match_count"`

	// Relationships
	TargetAccount Account `gorm:"foreignKey:TargetAccountID" json:"target_account,omitempty"`
}

// CategorizationRule maps a transaction description pattern to a category
// and subcategory. MachineGenerated distinguishes rules synthesized by the
// learning step from user-authored ones so they can be audited or pruned
// separately; UsageCount grows with each confirmed hit.
type CategorizationRule struct {
	Base
	Name             string  `gorm:"not null" json:"name"`
	Pattern          string  `gorm:"not null" json:"pattern"`
	Category         string  `gorm:"not null" json:"category"`
	Subcategory      string  `json:"subcategory"`
	Confidence       float64 `gorm:"not null;default:0.5" json:"confidence"`
	IsActive         bool    `gorm:"default:true" json:"is_active"`
	MachineGenerated bool    `gorm:"default:false" json:"machine_generated"`
	UsageCount       int     `gorm:"not null;default:0" json:"usage_count"`
}
