package errors

import stderrors "errors"

func (d Definition) Error() string {
	return d.Message
}

// Definition 表示业务错误码及默认信息。
type Definition struct {
	Code    string
	Message string
}

// 通用错误。
var (
	InvalidRequest  = Definition{Code: "INVALID_REQUEST", Message: "Invalid request"}
	Unauthorized    = Definition{Code: "UNAUTHORIZED", Message: "Unauthorized"}
	Forbidden       = Definition{Code: "FORBIDDEN", Message: "Forbidden"}
	InvalidUserID   = Definition{Code: "INVALID_USER_ID", Message: "Invalid user ID format"}
	TooManyRequests = Definition{Code: "TOO_MANY_REQUESTS", Message: "Too many requests, please try again later"}
)

// 打卡窗口与排期错误（cadence 核心）。
var (
	WindowConfigInvalid = Definition{Code: "WINDOW_CONFIG_INVALID", Message: "Check-in window configuration invalid"}
	ScheduleInvalid     = Definition{Code: "SCHEDULE_INVALID", Message: "Check-in schedule invalid"}
	TimestampInvalid    = Definition{Code: "TIMESTAMP_INVALID", Message: "Timestamp invalid"}
)

// 资源不存在。
var (
	FormNotFound    = Definition{Code: "FORM_NOT_FOUND", Message: "Form not found"}
	ClientNotFound  = Definition{Code: "CLIENT_NOT_FOUND", Message: "Client not found"}
	CheckInNotFound = Definition{Code: "CHECK_IN_NOT_FOUND", Message: "Check-in not found"}
)

// 打卡提交错误。
var (
	CheckInWindowClosed   = Definition{Code: "CHECK_IN_WINDOW_CLOSED", Message: "Check-in window closed"}
	CheckInAlreadyDone    = Definition{Code: "CHECK_IN_ALREADY_DONE", Message: "Check-in already done"}
	AllocationInProgress  = Definition{Code: "ALLOCATION_IN_PROGRESS", Message: "Check-in allocation in progress"}
	SeriesAlreadyAssigned = Definition{Code: "SERIES_ALREADY_ASSIGNED", Message: "Check-in series already assigned"}
)

// Lookup 提供错误码查询能力。
var Lookup = map[string]Definition{
	InvalidRequest.Code:        InvalidRequest,
	Unauthorized.Code:          Unauthorized,
	Forbidden.Code:             Forbidden,
	InvalidUserID.Code:         InvalidUserID,
	TooManyRequests.Code:       TooManyRequests,
	WindowConfigInvalid.Code:   WindowConfigInvalid,
	ScheduleInvalid.Code:       ScheduleInvalid,
	TimestampInvalid.Code:      TimestampInvalid,
	FormNotFound.Code:          FormNotFound,
	ClientNotFound.Code:        ClientNotFound,
	CheckInNotFound.Code:       CheckInNotFound,
	CheckInWindowClosed.Code:   CheckInWindowClosed,
	CheckInAlreadyDone.Code:    CheckInAlreadyDone,
	AllocationInProgress.Code:  AllocationInProgress,
	SeriesAlreadyAssigned.Code: SeriesAlreadyAssigned,
}

// Get 根据错误码返回 Definition，若不存在则返回空 Definition。
func Get(code string) Definition {
	if def, ok := Lookup[code]; ok {
		return def
	}
	return Definition{Code: code, Message: "Unexpected error"}
}

// As 从错误链中取出 Definition。
func As(err error) (Definition, bool) {
	var def Definition
	if stderrors.As(err, &def) {
		return def, true
	}
	return Definition{}, false
}

// 基础设施层错误。
var (
	ErrTokenGeneratorNotInitialized = stderrors.New("token generator not initialized")
	ErrUnexpectedSigningMethod      = stderrors.New("unexpected signing method")
	ErrInvalidToken                 = stderrors.New("invalid token")
	ErrInvalidTokenClaims           = stderrors.New("invalid token claims")
	ErrInvalidTokenType             = stderrors.New("invalid token type")
	ErrUserIDNotFound               = stderrors.New("user id not found in token")
	ErrDatabaseConnectionNil        = stderrors.New("database connection is nil")
)

// SkipMessageError 表示消息无需处理（重复投递等），消费者应直接 ack。
type SkipMessageError struct {
	Reason string
}

func (e *SkipMessageError) Error() string {
	return "skip message: " + e.Reason
}
