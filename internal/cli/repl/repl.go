package repl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"codesandbox/internal/cli/command"
	httpclient "codesandbox/internal/cli/http"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
)

const defaultPrompt = "sandbox> "

// LineReader is the input side of a session.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// Session holds REPL state.
type Session struct {
	client     *httpclient.Client
	commands   map[string]command.Command
	prettyJSON bool
	out        io.Writer
	in         LineReader
}

func New(client *httpclient.Client, commands map[string]command.Command, prettyJSON bool, out io.Writer) *Session {
	return &Session{
		client:     client,
		commands:   commands,
		prettyJSON: prettyJSON,
		out:        out,
	}
}

// Run starts an interactive readline session until exit or EOF.
func (s *Session) Run(ctx context.Context, historyFile string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          defaultPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    s.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init readline failed: %w", err)
	}
	defer func() { _ = rl.Close() }()
	s.out = rl.Stdout()
	return s.Serve(ctx, rl)
}

// Serve reads commands from in until exit, EOF or ctx is done.
func (s *Session) Serve(ctx context.Context, in LineReader) error {
	s.in = in
	for {
		if ctx.Err() != nil {
			return nil
		}
		in.SetPrompt(defaultPrompt)
		line, err := in.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		exit, handled := s.handleSystemCommand(line)
		if exit {
			s.printLine("bye")
			return nil
		}
		if handled {
			continue
		}
		if err := s.handleCommand(ctx, line); err != nil {
			s.printLine("error: %v", err)
		}
	}
}

func (s *Session) completer() *readline.PrefixCompleter {
	services := map[string][]readline.PrefixCompleterInterface{}
	var order []string
	for _, cmd := range s.commands {
		if _, ok := services[cmd.Service]; !ok {
			order = append(order, cmd.Service)
		}
		services[cmd.Service] = append(services[cmd.Service], readline.PcItem(cmd.Action))
	}
	items := []readline.PrefixCompleterInterface{
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("set", readline.PcItem("base"), readline.PcItem("timeout")),
	}
	for _, name := range order {
		items = append(items, readline.PcItem(name, services[name]...))
	}
	return readline.NewPrefixCompleter(items...)
}

func (s *Session) handleSystemCommand(line string) (exit bool, handled bool) {
	switch line {
	case "exit", "quit":
		return true, true
	case "help":
		s.printHelp()
		return false, true
	}
	if strings.HasPrefix(line, "set ") {
		s.handleSet(strings.TrimSpace(strings.TrimPrefix(line, "set ")))
		return false, true
	}
	return false, false
}

func (s *Session) handleSet(args string) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		s.printLine("usage: set base|timeout")
		return
	}
	switch parts[0] {
	case "base":
		if len(parts) < 2 {
			s.printLine("usage: set base http://127.0.0.1:8080")
			return
		}
		s.client.SetBaseURL(parts[1])
		s.printLine("base set to %s", s.client.BaseURL())
	case "timeout":
		if len(parts) < 2 {
			s.printLine("usage: set timeout 10s")
			return
		}
		dur, err := time.ParseDuration(parts[1])
		if err != nil || dur <= 0 {
			s.printLine("invalid duration: %s", parts[1])
			return
		}
		s.client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	default:
		s.printLine("unknown set command")
	}
}

func (s *Session) handleCommand(ctx context.Context, line string) error {
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	cmd, rest, err := command.Resolve(s.commands, tokens)
	if err != nil {
		return err
	}
	params, err := command.ParseParams(rest)
	if err != nil {
		return err
	}
	params.Canonicalize(cmd.Fields)
	if err := s.promptMissing(cmd, params); err != nil {
		return err
	}
	req, err := command.BuildRequest(cmd, params)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(ctx, req.Method, req.Path, req.Headers, req.Body)
	if err != nil {
		return err
	}
	if cmd.Service == "run" {
		s.renderExecution(resp)
		return nil
	}
	s.renderResponse(resp)
	return nil
}

func (s *Session) promptMissing(cmd command.Command, params command.Params) error {
	for _, field := range cmd.Fields {
		if !field.Required || params.Get(field.Name) != "" {
			continue
		}
		if s.in == nil {
			return fmt.Errorf("%s is required", field.Name)
		}
		s.in.SetPrompt(field.Prompt + ": ")
		value, err := s.in.Readline()
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		params.Set(field.Name, strings.TrimSpace(value))
	}
	return nil
}

type executionView struct {
	Success         bool    `json:"success"`
	Output          *string `json:"output"`
	Error           *string `json:"error"`
	ExecutionTimeMs int64   `json:"executionTime"`
}

type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (s *Session) renderExecution(resp httpclient.ResponseInfo) {
	var view executionView
	if resp.StatusCode != 200 || json.Unmarshal(resp.Body, &view) != nil {
		s.renderResponse(resp)
		return
	}
	var env envelope
	if json.Unmarshal(resp.Body, &env) == nil && env.Code != 0 && env.Message != "" {
		s.renderResponse(resp)
		return
	}
	if view.Success {
		s.printLine("ok (%dms)", view.ExecutionTimeMs)
		if view.Output != nil {
			s.printLine("%s", strings.TrimRight(*view.Output, "\n"))
		}
		return
	}
	s.printLine("failed (%dms)", view.ExecutionTimeMs)
	if view.Error != nil {
		s.printLine("%s", strings.TrimRight(*view.Error, "\n"))
	}
}

func (s *Session) renderResponse(resp httpclient.ResponseInfo) {
	s.printLine("HTTP %d (%s)", resp.StatusCode, resp.Duration)
	if len(resp.Body) == 0 {
		return
	}
	if s.prettyJSON {
		var raw interface{}
		if err := json.Unmarshal(resp.Body, &raw); err == nil {
			formatted, _ := json.MarshalIndent(raw, "", "  ")
			s.printLine("%s", string(formatted))
			return
		}
	}
	s.printLine("%s", string(resp.Body))
}

func (s *Session) printHelp() {
	s.printLine("usage: <service> <action> key=value ...")
	s.printLine("system: help | exit | set base|timeout")
	s.printLine("commands:")
	for _, summary := range command.Summaries(s.commands) {
		s.printLine("  %s", summary)
	}
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
}
