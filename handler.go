package sheetnet

// HandlerFuncs implements Handler with function values. Nil fields are skipped.
type HandlerFuncs struct {
	Connected  func(cellCount int)
	CellUpdate func(name string, contents string)
	Error      func(code int, message string)
	Invalid    func(rawLine string, reason string)
	Crash      func()
}

func (h HandlerFuncs) OnConnected(cellCount int) {
	if h.Connected != nil {
		h.Connected(cellCount)
	}
}

func (h HandlerFuncs) OnCellUpdate(name string, contents string) {
	if h.CellUpdate != nil {
		h.CellUpdate(name, contents)
	}
}

func (h HandlerFuncs) OnError(code int, message string) {
	if h.Error != nil {
		h.Error(code, message)
	}
}

func (h HandlerFuncs) OnInvalid(rawLine string, reason string) {
	if h.Invalid != nil {
		h.Invalid(rawLine, reason)
	}
}

func (h HandlerFuncs) OnCrash() {
	if h.Crash != nil {
		h.Crash()
	}
}
