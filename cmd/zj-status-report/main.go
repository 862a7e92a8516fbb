// zj-status-report records a command's exit code against a tab. Wire it into
// the shell so every command reports automatically:
//
//	precmd() { zj-status-report -exit-code $? }
//
// Exit code 0 raises a success alert, anything else a failure alert. Without
// an explicit target the focused tab is used.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/stephencookdev/zj-status-sidebar/pkg/bus"
	"github.com/stephencookdev/zj-status-sidebar/pkg/protocol"
	"github.com/stephencookdev/zj-status-sidebar/pkg/zellij"
)

var (
	sessionID = flag.String("session", "", "zellij session name")
	tab       = flag.String("tab", "", "tab id or 1-based position")
	tabName   = flag.String("tab-name", "", "exact tab name")
	exitCode  = flag.Int("exit-code", 0, "exit code to report")
)

func main() {
	flag.Parse()

	if *sessionID == "" {
		*sessionID = os.Getenv("ZELLIJ_SESSION_NAME")
	}

	args := map[string]string{"exit_code": strconv.Itoa(*exitCode)}
	switch {
	case *tab != "":
		args["tab"] = *tab
	case *tabName != "":
		args["tab_name"] = *tabName
	default:
		name, ok := zellij.FocusedTabName(*sessionID)
		if !ok {
			// Shell hooks run on every prompt; stay quiet when the session
			// is not reachable.
			os.Exit(0)
		}
		args["tab_name"] = name
	}

	client, err := bus.DialOnce(*sessionID, fmt.Sprintf("report-%d", os.Getpid()))
	if err != nil {
		os.Exit(0)
	}
	defer client.Close()

	client.Publish(protocol.ChannelCLI, protocol.PipeMessage{
		Name: protocol.PipeCLITabAlert,
		Args: args,
	})
}
