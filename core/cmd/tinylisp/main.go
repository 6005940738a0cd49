package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	tinylisp "github.com/komamitsu/tinylisp/core"
	"github.com/komamitsu/tinylisp/core/journal"
)

const (
	historyFile = ".tinylisp_history"
	promptMain  = "tinylisp> "
	promptCont  = "      ... "
)

func red(s string) string { return "\x1b[31m" + s + "\x1b[0m" }

type repl struct {
	session *tinylisp.Session
	journal *journal.Journal // may be nil
}

func main() {
	maxDepth := flag.Int("max-depth", tinylisp.DefaultMaxDepth, "maximum evaluation depth")
	journalPath := flag.String("journal", "", "SQLite journal to replay and append to")
	loadPath := flag.String("load", "", "source file to evaluate before the prompt")
	trace := flag.Bool("trace", false, "log every closure call to stderr")
	flag.Parse()

	cfg := tinylisp.DefaultConfig()
	cfg.MaxDepth = *maxDepth
	if *trace {
		cfg.Logger = log.New(os.Stderr, "trace: ", 0)
	}

	r := &repl{session: tinylisp.NewSession(cfg)}

	if *journalPath != "" {
		j, err := journal.Open(*journalPath)
		if err != nil {
			log.Fatalf("open journal: %v", err)
		}
		r.journal = j

		lines, err := j.Sources(context.Background())
		if err != nil {
			log.Fatalf("read journal: %v", err)
		}
		r.session.Replay(lines)
	}

	if *loadPath != "" {
		src, err := os.ReadFile(*loadPath)
		if err != nil {
			log.Fatalf("load: %v", err)
		}
		if _, err := r.session.EvalSource(string(src)); err != nil && !errors.Is(err, tinylisp.ErrEndOfInput) {
			log.Fatalf("load %s: %v", *loadPath, err)
		}
	}

	code := r.run()
	if r.journal != nil {
		r.journal.Close()
	}
	os.Exit(code)
}

func (r *repl) run() int {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	for {
		code, ok := readForm(ln, promptMain, promptCont)
		if !ok {
			fmt.Println()
			return 0
		}

		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, ":") {
			if r.command(strings.ToLower(trimmed)) {
				return 0
			}
			continue
		}

		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
		r.eval(code)
	}
}

// command runs a colon command and reports whether the REPL should exit.
func (r *repl) command(cmd string) bool {
	switch cmd {
	case ":quit":
		return true
	case ":env":
		for _, b := range r.session.Env().Bindings() {
			fmt.Printf("%s = %s\n", b.Name, b.Value)
		}
	case ":reset":
		r.session.Reset()
		if r.journal != nil {
			if err := r.journal.Clear(context.Background()); err != nil {
				fmt.Fprintln(os.Stderr, red(err.Error()))
			}
		}
	default:
		fmt.Println("unknown command. Commands: :env :reset :quit")
	}
	return false
}

func (r *repl) eval(code string) {
	val, err := r.session.EvalLine(code)

	if r.journal != nil {
		result, errMsg := "", ""
		if err != nil {
			errMsg = err.Error()
		} else {
			result = val.String()
		}
		if jerr := r.journal.Append(context.Background(), code, result, errMsg); jerr != nil {
			log.Printf("journal append: %v", jerr)
		}
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return
	}
	fmt.Println(val)
}

// readForm keeps prompting while the buffered input is an unfinished form.
func readForm(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			b.Reset()
			continue
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, perr := tinylisp.Parse(src); tinylisp.IsIncomplete(perr) {
			continue
		}
		return src, true
	}
}
