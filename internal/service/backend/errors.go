package backend

import (
	"errors"
	"fmt"
)

var errMissingAnswer = errors.New("response has no answer field")

// HTTPError 表示服务端可达但返回了非 2xx 状态码。
type HTTPError struct {
	StatusCode int
	Detail     string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("Server Error (status %d)", e.StatusCode)
}

// TransportError 表示请求没有拿到任何响应（网络、DNS、连接被拒、取消）。
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedReplyError reports a 2xx response whose body could not be used.
type MalformedReplyError struct {
	Err error
}

func (e *MalformedReplyError) Error() string {
	return "malformed response: " + e.Err.Error()
}

func (e *MalformedReplyError) Unwrap() error {
	return e.Err
}

// Describe returns the user-facing failure text for an Ask error.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
