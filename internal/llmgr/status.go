package llmgr

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// Command identifies the public operation that produced a Status.
type Command int

const (
	CmdAddEnd Command = iota + 100
	CmdAddAfter
	CmdAddBefore
	CmdDelete
	CmdDeleteAll
	CmdSetPointer
	CmdGetToken
	CmdPointNext
	CmdPointLast
	CmdPointBottom
	CmdPointTop
	CmdRegister
	CmdDeregister
)

var commandNames = map[Command]string{
	CmdAddEnd:      "ADD_END",
	CmdAddAfter:    "ADD_AFTER",
	CmdAddBefore:   "ADD_BEFORE",
	CmdDelete:      "DELETE",
	CmdDeleteAll:   "DELETE_ALL",
	CmdSetPointer:  "SET_POINTER",
	CmdGetToken:    "GET_TOKEN",
	CmdPointNext:   "POINT_NEXT",
	CmdPointLast:   "POINT_LAST",
	CmdPointBottom: "POINT_BOTTOM",
	CmdPointTop:    "POINT_TOP",
	CmdRegister:    "REGISTER",
	CmdDeregister:  "DEREGISTER",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}

// Code is the outcome of the last operation.
type Code int

const (
	CodeOK Code = iota
	CodeInvalidSize
	CodeEmpty
	CodeListEnd
	CodeAllocFail
	CodeNotEmpty
	CodeAlreadyRegistered
	CodeNotRegistered
	CodeInvalidAddress
	CodeInvalidToken
)

type codeInfo struct {
	name    string
	message string
	err     error
}

var (
	ErrInvalidSize       = errors.New("element size out of range")
	ErrEmpty             = errors.New("list is empty")
	ErrListEnd           = errors.New("end of list reached")
	ErrAllocFail         = errors.New("element storage exhausted")
	ErrNotEmpty          = errors.New("list is not empty")
	ErrAlreadyRegistered = errors.New("list already registered")
	ErrNotRegistered     = errors.New("list not registered")
	ErrInvalidAddress    = errors.New("token does not address a live element")
	ErrInvalidToken      = errors.New("invalid token")
)

var codes = map[Code]codeInfo{
	CodeOK: {"OK", "no message", nil},
	CodeInvalidSize: {"INVALID_SIZE",
		fmt.Sprintf("element size must be in range %d-%d", MinElementSize, MaxElementSize), ErrInvalidSize},
	CodeEmpty:             {"LIST_EMPTY", "operation is invalid on an empty list", ErrEmpty},
	CodeListEnd:           {"LIST_END", "first or last element of the list reached", ErrListEnd},
	CodeAllocFail:         {"ALLOC_FAIL", "element storage exhausted, unrecoverable", ErrAllocFail},
	CodeNotEmpty:          {"NOT_EMPTY", "list must be empty before deregistration", ErrNotEmpty},
	CodeAlreadyRegistered: {"ALREADY_REGISTERED", "list can only be registered once", ErrAlreadyRegistered},
	CodeNotRegistered:     {"NOT_REGISTERED", "list must be registered first", ErrNotRegistered},
	CodeInvalidAddress:    {"INVALID_ADDRESS", "token slot, generation or nonce did not match a live element", ErrInvalidAddress},
	CodeInvalidToken:      {"INVALID_TOKEN", "token was not issued by GetToken", ErrInvalidToken},
}

func (c Code) String() string {
	if info, ok := codes[c]; ok {
		return info.name
	}
	return "UNKNOWN"
}

// Message returns the human readable description of c.
func (c Code) Message() string {
	if info, ok := codes[c]; ok {
		return info.message
	}
	return "unknown status"
}

// Fatal reports whether c can not be recovered from without outside help.
func (c Code) Fatal() bool {
	return c == CodeAllocFail
}

// Status is the diagnostic record of the most recent operation on a Manager.
// The boolean result of the operation is authoritative; Status only explains it.
type Status struct {
	OK          bool
	Command     Command
	CommandName string
	File        string
	Line        int
	List        string
	Code        Code
	CodeName    string
	Message     string
}

// Err returns nil for a successful record and a *StatusError otherwise.
func (s Status) Err() error {
	if s.OK {
		return nil
	}
	return &StatusError{Status: s}
}

// StatusError wraps a failed Status. It unwraps to the sentinel error of its code.
type StatusError struct {
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Status.List, e.Status.CommandName, e.Status.Message)
}

func (e *StatusError) Unwrap() error {
	return codes[e.Status.Code].err
}

// IsFatal reports whether err carries a fatal code.
func IsFatal(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status.Code.Fatal()
	}
	return errors.Is(err, ErrAllocFail)
}

// begin resets the status record for cmd. It must be called directly from the
// exported method so the recorded call site is the method's caller.
func (m *Manager) begin(cmd Command) {
	file, line := callSite(3)
	m.status = Status{
		OK:          true,
		Command:     cmd,
		CommandName: cmd.String(),
		File:        file,
		Line:        line,
		List:        m.name,
		Code:        CodeOK,
		CodeName:    CodeOK.String(),
		Message:     CodeOK.Message(),
	}
}

// fail records code against the command started by begin and returns false.
func (m *Manager) fail(code Code) bool {
	m.status.OK = false
	m.status.List = m.name
	m.status.Code = code
	m.status.CodeName = code.String()
	m.status.Message = code.Message()
	return false
}

func callSite(skip int) (string, int) {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown", 0
	}
	return filepath.Base(file), line
}
