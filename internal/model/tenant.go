package model

import "time"

// TenantStatus represents the lifecycle state of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "ACTIVE"
	TenantStatusSuspended TenantStatus = "SUSPENDED"
	TenantStatusClosed    TenantStatus = "CLOSED"
)

// TenantType is the commercial tier of a tenant
type TenantType string

const (
	TenantTypeTrial      TenantType = "TRIAL"
	TenantTypeStandard   TenantType = "STANDARD"
	TenantTypePremium    TenantType = "PREMIUM"
	TenantTypeEnterprise TenantType = "ENTERPRISE"
)

// Tenant represents a customer organization
type Tenant struct {
	ID         string       `json:"id"`
	TenantCode string       `json:"tenantCode"`
	TenantName string       `json:"tenantName"`
	TenantType TenantType   `json:"tenantType"`
	Status     TenantStatus `json:"status"`
	StartDate  time.Time    `json:"startDate"`
	CloseDate  *time.Time   `json:"closeDate,omitempty"`
	Timezone   string       `json:"timezone"`
	Locale     string       `json:"locale"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// TenantUser links a user to a tenant with membership metadata
type TenantUser struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenantId"`
	UserID    string     `json:"userId"`
	Status    string     `json:"status"`
	IsPrimary bool       `json:"isPrimary"`
	IsAdmin   bool       `json:"isAdmin"`
	StartDate time.Time  `json:"startDate"`
	CloseDate *time.Time `json:"closeDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}
