package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	tinylisp "github.com/komamitsu/tinylisp/core"
)

func main() {
	expr := flag.String("e", "", "evaluate expr instead of reading a JSON request from stdin")
	flag.Parse()

	sockPath := os.Getenv("TINYLISP_SOCK")
	if sockPath == "" {
		sockPath = "/tmp/tinylisp.sock"
	}

	var msg map[string]any
	if *expr != "" {
		msg = map[string]any{"op": "eval", "expr": *expr}
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "read stdin: %v\n", err)
			os.Exit(1)
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			fmt.Fprintf(os.Stderr, "parse JSON: %v\n", err)
			os.Exit(1)
		}
		if msg == nil {
			fmt.Fprintln(os.Stderr, "request must be a JSON object")
			os.Exit(1)
		}
	}

	client, err := tinylisp.Dial(sockPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	resp, err := client.Call(msg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "call: %v\n", err)
		os.Exit(1)
	}

	// -e prints just the value or error, like the REPL does.
	if *expr != "" {
		if ok, _ := resp["ok"].(bool); !ok {
			fmt.Fprintln(os.Stderr, resp["error"])
			os.Exit(1)
		}
		fmt.Println(resp["value"])
		return
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "format response: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
