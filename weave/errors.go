package weave

import (
	"errors"
	"fmt"
)

// ErrSourceConsumed is returned by a read-once instruction source on its
// second read.
var ErrSourceConsumed = errors.New("weave: instruction source already consumed")

// FinalMethodError reports a target method that cannot be proxied because
// it is final.
type FinalMethodError struct {
	Method string // name + descriptor
}

func (e *FinalMethodError) Error() string {
	return fmt.Sprintf("weave: %s is final and cannot be proxied", e.Method)
}

// StaticMethodError reports a static target method. A host subclass cannot
// override a static method, so calls would never reach the delegate.
type StaticMethodError struct {
	Method string
}

func (e *StaticMethodError) Error() string {
	return fmt.Sprintf("weave: %s is static and cannot be proxied", e.Method)
}

// ArgumentIndexError reports an advice meta call that names a target
// argument outside [1, Count].
type ArgumentIndexError struct {
	Aspect string
	Call   string
	Index  int
	Count  int
}

func (e *ArgumentIndexError) Error() string {
	return fmt.Sprintf("weave: aspect %s: %s(%d) out of range, target has %d argument(s)",
		e.Aspect, e.Call, e.Index, e.Count)
}

// MalformedAdviceError reports advice code that uses the meta-call
// vocabulary in a shape the rewriter does not recognize.
type MalformedAdviceError struct {
	Aspect string
	Offset int // index of the offending advice instruction
	Reason string
}

func (e *MalformedAdviceError) Error() string {
	return fmt.Sprintf("weave: aspect %s: malformed advice at %d: %s", e.Aspect, e.Offset, e.Reason)
}

// MemberConflictError reports two different definitions of one advice
// member bound for the same host.
type MemberConflictError struct {
	Host   string
	Member string // field name, or method name + descriptor
}

func (e *MemberConflictError) Error() string {
	return fmt.Sprintf("weave: %s: conflicting definitions of advice member %s", e.Host, e.Member)
}
