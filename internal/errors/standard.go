// Package errors provides standardized error messaging for the vane actor runtime.
package errors

import (
	"fmt"
	"runtime"
)

// ErrorCategory classifies a failure per the runtime's failure taxonomy:
// contract violations are fatal, drops are silent, rejects are observable
// on the remote path, and soft failures are logged but non-fatal.
type ErrorCategory string

const (
	CategoryContract ErrorCategory = "CONTRACT"
	CategoryDrop     ErrorCategory = "DROP"
	CategoryReject   ErrorCategory = "REJECT"
	CategorySoft     ErrorCategory = "SOFT"
)

// StandardError provides a consistent error format across the runtime.
type StandardError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Context  map[string]interface{}
	Caller   string
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("[%s:%s] %s (caller: %s)", e.Category, e.Code, e.Message, e.Caller)
}

// NewStandardError creates a new standardized error, capturing the caller.
func NewStandardError(category ErrorCategory, code, message string, context map[string]interface{}) *StandardError {
	pc, _, _, ok := runtime.Caller(1)
	caller := "unknown"
	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &StandardError{
		Category: category,
		Code:     code,
		Message:  message,
		Context:  context,
		Caller:   caller,
	}
}

// ContractError is a *StandardError in CategoryContract. It is always fatal:
// callers are expected to panic with it rather than propagate it as a normal
// error return, mirroring the original implementation's assertion failures.
type ContractError = StandardError

// Contract constructors — programmer errors, fatal per spec §7.

func MessageReuse(destination string) *ContractError {
	return NewStandardError(CategoryContract, "MESSAGE_REUSE",
		fmt.Sprintf("message already has destination %q; messages are single-use", destination),
		map[string]interface{}{"destination": destination})
}

func SelfFastSend(actor string) *ContractError {
	return NewStandardError(CategoryContract, "SELF_FAST_SEND",
		fmt.Sprintf("actor %q attempted fast_send to itself", actor),
		map[string]interface{}{"actor": actor})
}

func DuplicateManage(name string) *ContractError {
	return NewStandardError(CategoryContract, "DUPLICATE_MANAGE",
		fmt.Sprintf("actor name %q already managed", name),
		map[string]interface{}{"name": name})
}

func EmptyGroupManage(name string) *ContractError {
	return NewStandardError(CategoryContract, "EMPTY_GROUP_MANAGE",
		fmt.Sprintf("group %q has no members at manage() time", name),
		map[string]interface{}{"name": name})
}

func InvalidAffinityCore(core int) *ContractError {
	return NewStandardError(CategoryContract, "INVALID_AFFINITY_CORE",
		fmt.Sprintf("affinity core %d is out of range", core),
		map[string]interface{}{"core": core})
}

func NilActor(operation string) *ContractError {
	return NewStandardError(CategoryContract, "NIL_ACTOR",
		fmt.Sprintf("nil actor passed to %s", operation),
		map[string]interface{}{"operation": operation})
}

func MissingReplyTo(actor string) *ContractError {
	return NewStandardError(CategoryContract, "MISSING_REPLY_TO",
		fmt.Sprintf("actor %q called reply() outside fast_send with no reply_to set", actor),
		map[string]interface{}{"actor": actor})
}

// Reject constructors — observable on the remote path (spec §4.7, §7).

func UnknownReceiver(name string) *StandardError {
	return NewStandardError(CategoryReject, "UNKNOWN_RECEIVER",
		fmt.Sprintf("actor not found: %s", name),
		map[string]interface{}{"receiver": name})
}

func UnknownMessageType(wireName string) *StandardError {
	return NewStandardError(CategoryReject, "UNKNOWN_MESSAGE_TYPE",
		fmt.Sprintf("Unknown message type: %s", wireName),
		map[string]interface{}{"message_type": wireName})
}

func IncompatibleProtocol(peerVersion, constraint string) *StandardError {
	return NewStandardError(CategoryReject, "INCOMPATIBLE_PROTOCOL",
		fmt.Sprintf("incompatible protocol version %q (require %s)", peerVersion, constraint),
		map[string]interface{}{"peer_version": peerVersion, "constraint": constraint})
}

// Soft constructors — logged, non-fatal (spec §4.8).

func AffinitySetupFailed(core int, cause error) *StandardError {
	return NewStandardError(CategorySoft, "AFFINITY_SETUP_FAILED",
		fmt.Sprintf("failed to pin worker to core %d: %v", core, cause),
		map[string]interface{}{"core": core})
}

func SchedulingClassUnavailable(class string, cause error) *StandardError {
	return NewStandardError(CategorySoft, "SCHED_CLASS_UNAVAILABLE",
		fmt.Sprintf("scheduling class %s unavailable: %v", class, cause),
		map[string]interface{}{"class": class})
}
