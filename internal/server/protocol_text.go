package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/catatsuy/kusari/internal/llmgr"
	"github.com/catatsuy/kusari/internal/registry"
)

type request struct {
	cmd    string
	args   []string
	isQuit bool
}

func parseLine(line string) (request, error) {
	line = strings.TrimSuffix(line, "\r\n")
	line = strings.TrimSuffix(line, "\n")
	if line == "" {
		return request{}, fmt.Errorf("empty command")
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return request{}, fmt.Errorf("empty command")
	}

	cmd := strings.ToLower(fields[0])
	if cmd == "quit" {
		return request{cmd: cmd, isQuit: true}, nil
	}

	return request{cmd: cmd, args: fields[1:]}, nil
}

func parseBytes(s string) (int, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid bytes")
	}
	return int(n), nil
}

// parseSetArgs accepts the memcached form: <list> <flags> <exptime> <bytes>.
// flags and exptime are validated and ignored.
func parseSetArgs(args []string) (list string, bytesN int, err error) {
	if len(args) != 4 {
		return "", 0, fmt.Errorf("set requires 4 arguments")
	}
	list = args[0]

	if _, err := strconv.ParseUint(args[1], 10, 32); err != nil {
		return "", 0, fmt.Errorf("invalid flags")
	}
	if _, err := strconv.ParseInt(args[2], 10, 64); err != nil {
		return "", 0, fmt.Errorf("invalid exptime")
	}

	bytesN, err = parseBytes(args[3])
	if err != nil {
		return "", 0, err
	}
	return list, bytesN, nil
}

// parseAddArgs accepts <list> <end|before|after> <bytes>.
func parseAddArgs(args []string) (list string, pos registry.Position, bytesN int, err error) {
	if len(args) != 3 {
		return "", 0, 0, fmt.Errorf("add requires 3 arguments")
	}
	pos, err = registry.ParsePosition(args[1])
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid position")
	}
	bytesN, err = parseBytes(args[2])
	if err != nil {
		return "", 0, 0, err
	}
	return args[0], pos, bytesN, nil
}

func parseRegisterArgs(args []string) (list string, size int, err error) {
	if len(args) != 2 {
		return "", 0, fmt.Errorf("register requires list and size")
	}
	n, err := strconv.ParseInt(args[1], 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("invalid size")
	}
	return args[0], int(n), nil
}

func parsePointArgs(args []string) (list string, mv registry.Move, err error) {
	if len(args) != 2 {
		return "", 0, fmt.Errorf("point requires list and direction")
	}
	mv, err = registry.ParseMove(args[1])
	if err != nil {
		return "", 0, fmt.Errorf("invalid direction")
	}
	return args[0], mv, nil
}

func parseSeekArgs(args []string) (list string, tok llmgr.Token, err error) {
	if len(args) != 2 {
		return "", llmgr.Token{}, fmt.Errorf("seek requires list and token")
	}
	tok, err = llmgr.ParseToken(args[1])
	if err != nil {
		return "", llmgr.Token{}, fmt.Errorf("invalid token")
	}
	return args[0], tok, nil
}

func parseListArg(cmd string, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%s requires list", cmd)
	}
	return args[0], nil
}
