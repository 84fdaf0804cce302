package dto

type DayOff struct {
	Date   string `json:"date"`
	Reason string `json:"reason,omitempty"`
}

type SellerResponse struct {
	SellerID                    string   `json:"sellerId"`
	DisplayName                 string   `json:"displayName"`
	ContactHandle               string   `json:"contactHandle"`
	Specialty                   string   `json:"specialty"`
	Status                      string   `json:"status"`
	Active                      bool     `json:"active"`
	MaxClients                  int      `json:"maxClients"`
	CurrentClients              int      `json:"currentClients"`
	Rating                      float64  `json:"rating"`
	WorkStart                   string   `json:"workStart,omitempty"`
	WorkEnd                     string   `json:"workEnd,omitempty"`
	DaysOff                     []DayOff `json:"daysOff,omitempty"`
	NotificationIntervalMinutes int      `json:"notificationIntervalMinutes"`
	CreatedAt                   string   `json:"createdAt"`
	UpdatedAt                   string   `json:"updatedAt"`
}

type CreateSellerRequest struct {
	DisplayName                 string `json:"displayName"`
	ContactHandle               string `json:"contactHandle"`
	Specialty                   string `json:"specialty,omitempty"`
	MaxClients                  int    `json:"maxClients,omitempty"`
	WorkStart                   string `json:"workStart,omitempty"`
	WorkEnd                     string `json:"workEnd,omitempty"`
	NotificationIntervalMinutes int    `json:"notificationIntervalMinutes,omitempty"`
}

// UpdateSellerRequest is a partial update; absent fields are left unchanged.
type UpdateSellerRequest struct {
	DisplayName                 *string  `json:"displayName,omitempty"`
	ContactHandle               *string  `json:"contactHandle,omitempty"`
	Specialty                   *string  `json:"specialty,omitempty"`
	MaxClients                  *int     `json:"maxClients,omitempty"`
	Rating                      *float64 `json:"rating,omitempty"`
	WorkStart                   *string  `json:"workStart,omitempty"`
	WorkEnd                     *string  `json:"workEnd,omitempty"`
	NotificationIntervalMinutes *int     `json:"notificationIntervalMinutes,omitempty"`
}

type SellerStatusRequest struct {
	Status string `json:"status,omitempty"`
	Active *bool  `json:"active,omitempty"`
}

type WorkloadResponse struct {
	SellerID       string  `json:"sellerId"`
	DisplayName    string  `json:"displayName"`
	Specialty      string  `json:"specialty"`
	Status         string  `json:"status"`
	Active         bool    `json:"active"`
	CurrentClients int     `json:"currentClients"`
	MaxClients     int     `json:"maxClients"`
	LoadPercent    float64 `json:"loadPercent"`
	Available      bool    `json:"available"`
}

type SellerStatsResponse struct {
	Total         int `json:"total"`
	Active        int `json:"active"`
	Online        int `json:"online"`
	TotalCapacity int `json:"totalCapacity"`
	TotalLoad     int `json:"totalLoad"`
}
