package errors

import "errors"

// ========== 错误码常量定义 ==========

// CodeSuccess 成功码
const (
	CodeSuccess = 200
)

// HTTP层错误码 (400-599)
const (
	CodeInvalidParam = 400
	CodeUnauthorized = 401
	CodeForbidden    = 403
	CodeNotFound     = 404
	CodeConflict     = 409
	CodeExpired      = 410
	CodeServerError  = 500
	CodeUpstream     = 502
)

// AppError 业务错误，携带错误码和消息
type AppError struct {
	Code    int
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// New 创建业务错误
func New(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// ========== 快捷构造方法 ==========

func BadRequest(message string) *AppError {
	return New(CodeInvalidParam, message)
}

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(CodeForbidden, message)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

func Conflict(message string) *AppError {
	return New(CodeConflict, message)
}

func Expired(message string) *AppError {
	return New(CodeExpired, message)
}

func Upstream(message string) *AppError {
	return New(CodeUpstream, message)
}

// CodeOf 提取错误码，非业务错误归为服务器内部错误
func CodeOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeServerError
}

// IsCode 判断错误是否为指定错误码的业务错误
func IsCode(err error, code int) bool {
	return CodeOf(err) == code
}
