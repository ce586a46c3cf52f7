package main

import (
	"context"
	"fmt"
	"time"

	sheetnet "github.com/blutspende/go-sheetnet"
)

type MyHandler struct {
}

func (h *MyHandler) OnConnected(cellCount int) {
	fmt.Printf("Joined, %d cells follow\n", cellCount)
}

func (h *MyHandler) OnCellUpdate(name string, contents string) {
	fmt.Printf("%s is now '%s'\n", name, contents)
}

func (h *MyHandler) OnError(code int, message string) {
	fmt.Printf("Server says %d: %s\n", code, message)
}

func (h *MyHandler) OnInvalid(rawLine string, reason string) {
	fmt.Printf("Can not read '%s' (%s)\n", rawLine, reason)
}

func (h *MyHandler) OnCrash() {
	fmt.Println("Connection lost")
}

func main() {

	config := sheetnet.DefaultClientConfiguration()
	config.Proxy = sheetnet.HAProxySendProxyV2

	session := sheetnet.NewSession(&MyHandler{}, config)
	defer session.Close()

	if err := session.Open(context.Background(), "sysadmin", "budget", "localhost", "", 1100); err != nil {
		fmt.Println(err)
		return
	}

	for !session.Joined() {
		time.Sleep(50 * time.Millisecond)
	}

	session.Edit("A1", "=B1*2")
	session.Edit("B1", "21")
	session.Undo()

	time.Sleep(time.Second)
}
