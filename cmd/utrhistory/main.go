package main

import (
	"utrhistory/cmd/utrhistory/commands"
	"utrhistory/internal/components/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
