package sheetnet

import "errors"

var (
	ErrAddress          = errors.New("neither an ip address nor a resolvable host name was given")
	ErrConnect          = errors.New("failed to connect")
	ErrConnectTimeout   = errors.New("connect timed out")
	ErrAlreadyConnected = errors.New("connection is already established")
	ErrSend             = errors.New("failed to send")
	ErrNotConnected     = errors.New("connection is not open")
	ErrClosed           = errors.New("connection is closed")
	ErrNotJoined        = errors.New("a connection to a spreadsheet must be made to perform this action")
)
