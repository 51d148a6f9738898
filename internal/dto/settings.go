package dto

// UpdateSettingsRequest changes the display ordering of the week.
type UpdateSettingsRequest struct {
	FirstDayOfWeek *int `json:"firstDayOfWeek" validate:"required,min=0,max=6"`
}
