package protocol

// Outgoing lines. None of these validate their arguments and none append the
// line terminator, that is left to Implementation.Encode.

func ConnectMessage(userName, spreadsheetName string) string {
	return KeywordConnect + tokenSeparator + userName + tokenSeparator + spreadsheetName
}

func RegisterMessage(userName string) string {
	return KeywordRegister + tokenSeparator + userName
}

func CellMessage(cellName, contents string) string {
	return KeywordCell + tokenSeparator + cellName + tokenSeparator + contents
}

func UndoMessage() string {
	return KeywordUndo
}
