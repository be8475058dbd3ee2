package main

import (
	"fmt"
	"os"
	"strings"

	cli "github.com/spf13/pflag"

	"setsuna/internal/config"
	"setsuna/internal/ipc"
)

const usage = `usage: setsuna-ctl <trigger|say|cancel|status> [text...]

Bind your window manager hotkey to "setsuna-ctl trigger".`

func main() {
	socket := cli.StringP("socket", "s", "", "Daemon socket path")
	cli.Parse()

	args := cli.Args()
	if len(args) == 0 {
		fmt.Println(usage)
		os.Exit(2)
	}

	socketPath := *socket
	if socketPath == "" {
		socketPath = config.DefaultSocketPath
		if v := os.Getenv("SETSUNA_SOCKET"); v != "" {
			socketPath = v
		}
	}

	req := ipc.Request{Cmd: args[0]}
	if req.Cmd == ipc.CmdSay {
		req.Text = strings.Join(args[1:], " ")
	}

	resp, err := ipc.Send(socketPath, req)
	if err != nil {
		fmt.Println("setsuna-daemon not running:", err)
		os.Exit(1)
	}

	if !resp.OK {
		fmt.Printf("refused (%s): %s\n", resp.State, resp.Detail)
		os.Exit(1)
	}
	if resp.Detail != "" {
		fmt.Printf("%s: %s\n", resp.State, resp.Detail)
	} else {
		fmt.Println(resp.State)
	}
}
