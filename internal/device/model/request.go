package model

// UpdateSettingsRequest carries the customize-modal fields. All are
// optional so a partial save only touches what the user changed.
type UpdateSettingsRequest struct {
	RefillThresholdPercentage *int     `json:"refill_threshold_percentage" binding:"omitempty,min=0,max=100"`
	MaxFillLevelPercentage    *int     `json:"max_fill_level_percentage" binding:"omitempty,min=0,max=100"`
	DrumHeightCm              *float64 `json:"drum_height_cm" binding:"omitempty,min=0"`
}

// ManualRefillRequest sets the refill target the firmware pumps to.
type ManualRefillRequest struct {
	TargetPercentage *int `json:"target_percentage" binding:"required,min=0,max=100"`
}

// ClaimRequest links an unclaimed device to the calling account.
type ClaimRequest struct {
	MAC  string  `json:"mac" binding:"required"`
	Name *string `json:"name" binding:"omitempty,max=120"`
}
