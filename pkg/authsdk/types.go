package authsdk

import "time"

// ============================================================================
// Error Types
// ============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is a human-readable message, safe to show to end users
	Error string `json:"error"`

	// Details holds per-field validation messages (field name: message)
	Details map[string]string `json:"details,omitempty"`
}

// SuccessResponse is returned by operations with nothing else to report.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ============================================================================
// Account Types
// ============================================================================

// RegisterRequest creates an account from an invite code.
type RegisterRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	InviteCode   string `json:"inviteCode"`
	Organization string `json:"organization,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the public view of an account. Password hashes never
// leave the service.
type UserResponse struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Organization string     `json:"organization"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	IsActive     bool       `json:"isActive"`
}

// AuthResponse is returned by /register, /login and /bootstrap.
type AuthResponse struct {
	Success      bool         `json:"success"`
	SessionToken string       `json:"sessionToken"`
	ExpiresAt    time.Time    `json:"expiresAt"`
	User         UserResponse `json:"user"`
}

// ValidateResponse is returned by /validate. User is nil when Valid is false.
type ValidateResponse struct {
	Valid bool          `json:"valid"`
	User  *UserResponse `json:"user,omitempty"`
	Error string        `json:"error,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type SetUserActiveRequest struct {
	Active bool `json:"active"`
}

// SessionResponse describes one of the caller's live sessions.
type SessionResponse struct {
	ID        string    `json:"id"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Current   bool      `json:"current"`
}

// ============================================================================
// Invite Types
// ============================================================================

// CreateInviteRequest issues a new invite code. Zero values take the server
// defaults (one use, thirty days).
type CreateInviteRequest struct {
	Email         string `json:"email,omitempty"`
	MaxUses       *int   `json:"maxUses,omitempty"`
	ExpiresInDays *int   `json:"expiresInDays,omitempty"`
	Organization  string `json:"organization,omitempty"`
}

type CreateInviteResponse struct {
	Success    bool       `json:"success"`
	InviteCode string     `json:"inviteCode"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

// CheckInviteResponse reports whether a known code can be used. Unusable
// codes come back with Valid false and a Reason.
type CheckInviteResponse struct {
	Valid         bool       `json:"valid"`
	Organization  string     `json:"organization,omitempty"`
	RemainingUses int        `json:"remainingUses"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// InviteResponse is an invite as listed for administrators.
type InviteResponse struct {
	ID           string     `json:"id"`
	Code         string     `json:"code"`
	Email        string     `json:"email,omitempty"`
	MaxUses      int        `json:"maxUses"`
	UsedCount    int        `json:"usedCount"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	CreatedBy    string     `json:"createdBy"`
	Organization string     `json:"organization,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	IsActive     bool       `json:"isActive"`
}

// ============================================================================
// Audit Types
// ============================================================================

type AccessLogResponse struct {
	ID        string    `json:"id"`
	UserID    *string   `json:"userId"`
	Action    string    `json:"action"`
	Resource  *string   `json:"resource"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ============================================================================
// Bootstrap Types
// ============================================================================

// BootstrapRequest creates the first administrator on an empty service.
type BootstrapRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	Organization string `json:"organization,omitempty"`
}

// BootstrapResponse signs in the new administrator and hands back a first
// invite code.
type BootstrapResponse struct {
	AuthResponse
	InviteCode string `json:"inviteCode"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the database connection status
	Database string `json:"database"`
}
