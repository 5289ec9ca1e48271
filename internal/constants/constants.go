package constants

import "time"

// Context keys
const (
	ContextKeyUserID = "user_id"
	ContextKeyRole   = "user_role"
)

// Session
const (
	SessionName   = "admin_session"
	SessionMaxAge = 86400 * 7
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Field limits
const (
	MaxUserNameLength           = 100
	MaxEmailLength              = 80
	MinPasswordLength           = 8
	MaxPasswordLength           = 100
	MaxProjectNameLength        = 150
	MaxProjectDescriptionLength = 400
	MaxTaskNameLength           = 150
	MaxTaskDescriptionLength    = 350
	MaxDraftTextLength          = 4000
)

// MaxEmployeesPerRequest bounds the employee id list of a single membership call.
const MaxEmployeesPerRequest = 100

// Profile pictures
const (
	MaxImageSize = 2_000_000
)

// AllowedImageExtensions lists the accepted profile picture extensions.
var AllowedImageExtensions = []string{".jpg", ".jpeg", ".png"}

// Cache keys
const (
	RoleCacheKeyPrefix  = "user:role:"
	DefaultRoleCacheTTL = 24 * time.Hour
)

// Event channels
const (
	TaskCreatedChannel = "events:task-created"
)

// Tokens
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	RefreshTokenBytes      = 32
)
