package xerr

import (
	"errors"
	"fmt"
)

// 常用错误码定义
const (
	OK                 = 200
	RequestParamsError = 400
	RecordNotFound     = 404
	ServerCommonError  = 500
	UpstreamError      = 502
)

// 进程退出码
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

type CodeError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Err  error  `json:"-"`
}

func (e *CodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ErrCode:%d, Msg:%s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("ErrCode:%d, Msg:%s", e.Code, e.Msg)
}

func (e *CodeError) Unwrap() error { return e.Err }

func New(code int, msg string) error {
	return &CodeError{Code: code, Msg: msg}
}

func NewErrCode(code int) error {
	return &CodeError{Code: code, Msg: MapErrMsg(code)}
}

// Wrap 给底层错误加上错误码
func Wrap(code int, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &CodeError{Code: code, Msg: msg, Err: err}
}

func MapErrMsg(code int) string {
	switch code {
	case RequestParamsError:
		return "invalid arguments"
	case RecordNotFound:
		return "not found"
	case ServerCommonError:
		return "internal error"
	case UpstreamError:
		return "upstream unavailable"
	default:
		return "unknown error"
	}
}

// Message 取面向用户的信息；非 CodeError 直接用 err.Error()
func Message(err error) string {
	var ce *CodeError
	if errors.As(err, &ce) {
		if ce.Err != nil {
			return ce.Msg + ": " + ce.Err.Error()
		}
		return ce.Msg
	}
	return err.Error()
}

// ExitCode 把错误映射成进程退出码
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ce *CodeError
	if errors.As(err, &ce) {
		switch ce.Code {
		case OK:
			return ExitOK
		case RequestParamsError, RecordNotFound:
			return ExitUsage
		}
	}
	return ExitFailure
}

// CodeOf 取错误码；非 CodeError 按 ServerCommonError
func CodeOf(err error) int {
	if err == nil {
		return OK
	}
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ServerCommonError
}
