package warp

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// StackError 带调用栈的错误，用于 panic 恢复和 5xx 日志
type StackError struct {
	err   error
	stack []uintptr
}

// NewStackError 包装任意值（panic 的 recover() 结果或 error），skip 为额外跳过的栈帧数
func NewStackError(e interface{}, skip int) *StackError {
	if e == nil {
		return nil
	}

	var err error
	switch x := e.(type) {
	case *StackError:
		return x
	case error:
		err = x
	default:
		err = fmt.Errorf("%v", x)
	}
	stack := make([]uintptr, 50)
	length := runtime.Callers(2+skip, stack)
	return &StackError{
		err:   err,
		stack: stack[:length],
	}
}

// Wrap 在调用处记录栈，err 为 nil 时返回 nil
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var se *StackError
	if errors.As(err, &se) {
		return err
	}
	return NewStackError(err, 1)
}

func (se *StackError) Error() string {
	return se.err.Error()
}

func (se *StackError) Unwrap() error {
	return se.err
}

// StackTrace 每帧一行：文件:行号 函数名
func (se *StackError) StackTrace() string {
	var b strings.Builder
	frames := runtime.CallersFrames(se.stack)
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return b.String()
}

// StackTraceOf 取错误链上的调用栈，没有时为空串
func StackTraceOf(err error) string {
	var se *StackError
	if errors.As(err, &se) {
		return se.StackTrace()
	}
	return ""
}
