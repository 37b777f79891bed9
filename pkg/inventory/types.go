package inventory

import (
	"time"
)

// ============================================================================
// Servers
// ============================================================================

// Server is an inventory record. JSON keys follow the backend model, which
// exposes the embedded timestamps with Go field names.
type Server struct {
	ID        uint       `json:"ID"`
	CreatedAt time.Time  `json:"CreatedAt"`
	UpdatedAt time.Time  `json:"UpdatedAt"`
	DeletedAt *time.Time `json:"DeletedAt"`
	Name      string     `json:"name"`
	Status    bool       `json:"status"`
	IP        string     `json:"ip"`
}

// ServerStatus filters servers by power state. The zero value matches all.
type ServerStatus int

const (
	StatusAny ServerStatus = iota
	StatusOn
	StatusOff
)

// ServerFilter narrows a server listing. Zero fields are not sent.
type ServerFilter struct {
	CreatedAtFrom time.Time    `qs:"createdAtFrom,omitempty,date"`
	CreatedAtTo   time.Time    `qs:"createdAtTo,omitempty,date"`
	UpdatedAtFrom time.Time    `qs:"updatedAtFrom,omitempty,date"`
	UpdatedAtTo   time.Time    `qs:"updatedAtTo,omitempty,date"`
	Status        ServerStatus `qs:"status,omitempty"`
}

// ListServersRequest holds pagination, sorting and filter parameters.
type ListServersRequest struct {
	Limit  int           `qs:"limit,omitempty"`
	Offset int           `qs:"offset"`
	Status string        `qs:"status,omitempty"` // "true" or "false"
	Field  string        `qs:"field,omitempty"`
	Order  string        `qs:"order,omitempty"` // "asc" or "desc"
	Filter *ServerFilter `qs:"filter,omitempty"`
}

type ListServersResponse struct {
	Data  []Server `json:"data"`
	Total int      `json:"total"`
}

type ServerStatusResponse struct {
	Online  int64 `json:"online"`
	Offline int64 `json:"offline"`
}

type CreateServerRequest struct {
	Name   string `json:"name"`
	Status bool   `json:"status"`
	IP     string `json:"ip"`
}

// UpdateServerRequest replaces the mutable fields of server ID.
type UpdateServerRequest struct {
	ID     uint   `json:"-"`
	Name   string `json:"name"`
	Status bool   `json:"status"`
	IP     string `json:"ip"`
}

// ImportServersResponse reports per-line results of a workbook import. Line
// numbers are 1-based spreadsheet rows, so the first data row is line 2.
type ImportServersResponse struct {
	Message      string `json:"message"`
	SuccessCount int    `json:"success_count"`
	FailureCount int    `json:"failure_count"`
	SuccessLines []int  `json:"success_lines"`
	FailureLines []int  `json:"failure_lines"`
}

// ExportServersRequest selects the rows written to an export workbook. Zero
// values take the defaults limit=10, offset=0, status=true, field=id and
// order=asc.
type ExportServersRequest struct {
	Limit  int
	Offset int
	Status string
	Field  string
	Order  string

	// Optional date ranges, applied by the backend only when both ends are set.
	CreatedFrom time.Time
	CreatedTo   time.Time
	UpdatedFrom time.Time
	UpdatedTo   time.Time
}

// exportQuery fixes the parameter order of the export URL.
type exportQuery struct {
	Limit        int       `qs:"limit"`
	Offset       int       `qs:"offset"`
	Status       string    `qs:"status"`
	Field        string    `qs:"field"`
	Order        string    `qs:"order"`
	StartCreated time.Time `qs:"startCreated,omitempty,date"`
	EndCreated   time.Time `qs:"endCreated,omitempty,date"`
	StartUpdated time.Time `qs:"startUpdated,omitempty,date"`
	EndUpdated   time.Time `qs:"endUpdated,omitempty,date"`
}

func (r ExportServersRequest) query() exportQuery {
	q := exportQuery{
		Limit:        r.Limit,
		Offset:       r.Offset,
		Status:       r.Status,
		Field:        r.Field,
		Order:        r.Order,
		StartCreated: r.CreatedFrom,
		EndCreated:   r.CreatedTo,
		StartUpdated: r.UpdatedFrom,
		EndUpdated:   r.UpdatedTo,
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Status == "" {
		q.Status = "true"
	}
	if q.Field == "" {
		q.Field = "id"
	}
	if q.Order == "" {
		q.Order = "asc"
	}
	return q
}

// ============================================================================
// Users
// ============================================================================

type User struct {
	ID       uint   `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Role     string `json:"role"`
}

type ListUsersResponse struct {
	Data  []User `json:"data"`
	Total int    `json:"total"`
}

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	Role     string `json:"role"`
}

// UpdateUserRequest is a partial update; nil fields are left unchanged.
type UpdateUserRequest struct {
	FullName *string `json:"fullName,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
	Role     *string `json:"role,omitempty"`
	Password *string `json:"password,omitempty"`
}

// ============================================================================
// Mail
// ============================================================================

// SendReportRequest asks the backend to mail a status report covering the
// days From through To. Only the date part of each bound is sent.
type SendReportRequest struct {
	From  time.Time
	To    time.Time
	Email string
}

type SendReportResponse struct {
	Message string
}

// ============================================================================
// Auth
// ============================================================================

// Credential is the token set issued on login.
type Credential struct {
	Token        string    `json:"token"`
	ExpiresAt    time.Time `json:"expiresAt"`
	TokenType    string    `json:"tokenType"`
	RefreshToken string    `json:"refreshToken"`
}

// Authorization returns the Authorization header value for c.
func (c Credential) Authorization() string {
	typ := c.TokenType
	if typ == "" {
		typ = "Bearer"
	}
	return typ + " " + c.Token
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// tokenResponse covers both the login and refresh payloads. Refresh may only
// return a token.
type tokenResponse struct {
	Token        string `json:"token"`
	ExpireTime   string `json:"expireTime"`
	TypeToken    string `json:"typeToken"`
	RefreshToken string `json:"refreshToken"`
}
