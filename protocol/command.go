package protocol

import (
	"strconv"
	"strings"
)

const (
	KeywordConnected = "connected"
	KeywordCell      = "cell"
	KeywordError     = "error"
	KeywordConnect   = "connect"
	KeywordRegister  = "register"
	KeywordUndo      = "undo"
)

const (
	ReasonBadKeyword      = "Bad Keyword"
	ReasonTokenCount      = "Incorrect number of tokens."
	ReasonBadCellCount    = "Cannot parse cell count."
	ReasonBadErrorNumber  = "Cannot parse Error Number."
	tokenSeparator        = " "
	minimumCellTokens     = 3
	minimumErrorTokens    = 3
	requiredConnectTokens = 2
)

// Command is one server message. It is one of Connected, CellUpdate, Error or Invalid.
type Command interface {
	isCommand()
}

// Connected acknowledges a join; CellCount cells will follow.
type Connected struct {
	CellCount int
}

type CellUpdate struct {
	Name     string
	Contents string
}

// Error is reported by the server. Known codes are listed in the sheetnet package.
type Error struct {
	Code int
	Text string
}

// Invalid is a line that could not be understood. Line is kept verbatim.
type Invalid struct {
	Line   string
	Reason string
}

func (Connected) isCommand()  {}
func (CellUpdate) isCommand() {}
func (Error) isCommand()      {}
func (Invalid) isCommand()    {}

// Parse interprets one framed line. It never fails: lines it can not make sense of
// come back as Invalid.
func Parse(line string) Command {
	tokens := strings.Split(line, tokenSeparator)

	switch tokens[0] {
	case KeywordConnected:
		return parseConnected(tokens, line)
	case KeywordCell:
		return parseCell(tokens, line)
	case KeywordError:
		return parseError(tokens, line)
	default:
		return Invalid{Line: line, Reason: ReasonBadKeyword}
	}
}

func parseConnected(tokens []string, line string) Command {
	if len(tokens) != requiredConnectTokens {
		return Invalid{Line: line, Reason: ReasonTokenCount}
	}
	cellCount, err := parseInt(tokens[1])
	if err != nil {
		return Invalid{Line: line, Reason: ReasonBadCellCount}
	}
	return Connected{CellCount: cellCount}
}

func parseCell(tokens []string, line string) Command {
	if len(tokens) < minimumCellTokens {
		return Invalid{Line: line, Reason: ReasonTokenCount}
	}
	return CellUpdate{
		Name:     tokens[1],
		Contents: strings.Join(tokens[2:], tokenSeparator),
	}
}

func parseError(tokens []string, line string) Command {
	if len(tokens) < minimumErrorTokens {
		return Invalid{Line: line, Reason: ReasonTokenCount}
	}
	code, err := parseInt(tokens[1])
	if err != nil {
		return Invalid{Line: line, Reason: ReasonBadErrorNumber}
	}
	return Error{
		Code: code,
		Text: strings.Join(tokens[2:], tokenSeparator),
	}
}

func parseInt(token string) (int, error) {
	value, err := strconv.ParseInt(token, 10, 32)
	return int(value), err
}
