// zj-status-notify raises a pending alert on a tab from the command line:
//
//	zj-status-notify -tab 3
//	zj-status-notify -tab-name "build logs"
//
// With no target it marks the focused tab, which lets long-running commands
// flag their own tab from anywhere in the session.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/stephencookdev/zj-status-sidebar/pkg/bus"
	"github.com/stephencookdev/zj-status-sidebar/pkg/protocol"
	"github.com/stephencookdev/zj-status-sidebar/pkg/zellij"
)

var (
	sessionID = flag.String("session", "", "zellij session name")
	tab       = flag.String("tab", "", "tab id or 1-based position")
	tabName   = flag.String("tab-name", "", "exact tab name")
)

func main() {
	flag.Parse()

	if *sessionID == "" {
		*sessionID = os.Getenv("ZELLIJ_SESSION_NAME")
	}

	args := map[string]string{}
	switch {
	case *tab != "":
		args["tab"] = *tab
	case *tabName != "":
		args["tab_name"] = *tabName
	default:
		name, ok := zellij.FocusedTabName(*sessionID)
		if !ok {
			fmt.Fprintln(os.Stderr, "no target tab: pass -tab or -tab-name")
			os.Exit(1)
		}
		args["tab_name"] = name
	}

	client, err := bus.Dial(*sessionID, fmt.Sprintf("notify-%d", os.Getpid()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "zj-status-notify: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	if err := client.Publish(protocol.ChannelCLI, protocol.PipeMessage{
		Name: protocol.PipeCLINotify,
		Args: args,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "zj-status-notify: %v\n", err)
		os.Exit(1)
	}
}
