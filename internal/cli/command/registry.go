package command

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

const apiPrefix = "/api/v1/sandbox"

// Registry returns all CLI commands keyed by "service action".
func Registry() map[string]Command {
	commands := []Command{
		{
			Service:      "run",
			Action:       "file",
			Method:       "POST",
			PathTemplate: apiPrefix + "/execute",
			Summary:      "run file=./main.py [language=python] [entry=Main]",
			Fields: []Field{
				{Name: "file", Aliases: []string{"path", "source"}, Prompt: "source file", Type: FieldFile, Required: true},
				{Name: "language", Aliases: []string{"lang"}, Prompt: "language", Type: FieldString, Required: false},
				{Name: "entry", Aliases: []string{"entrypoint", "class"}, Prompt: "entry point", Type: FieldString, Required: false},
			},
		},
		{
			Service:      "languages",
			Action:       "list",
			Method:       "GET",
			PathTemplate: apiPrefix + "/languages",
			Summary:      "languages list",
		},
		{
			Service:      "host",
			Action:       "runtime",
			Method:       "GET",
			PathTemplate: apiPrefix + "/host/runtime",
			Summary:      "host runtime",
		},
		{
			Service:      "host",
			Action:       "status",
			Method:       "GET",
			PathTemplate: apiPrefix + "/host/status",
			Summary:      "host status",
		},
		{
			Service:      "host",
			Action:       "start",
			Method:       "POST",
			PathTemplate: apiPrefix + "/host/start",
			Summary:      "host start",
		},
		{
			Service:      "host",
			Action:       "stop",
			Method:       "POST",
			PathTemplate: apiPrefix + "/host/stop",
			Summary:      "host stop",
		},
	}

	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		result[cmd.Key()] = cmd
	}
	return result
}

// Summaries returns the usage line of every command, sorted.
func Summaries(commands map[string]Command) []string {
	out := make([]string, 0, len(commands))
	for _, cmd := range commands {
		out = append(out, cmd.Summary)
	}
	sort.Strings(out)
	return out
}

// Resolve finds the command for the leading tokens and returns the remaining param tokens.
// "run" is accepted on its own as shorthand for "run file".
func Resolve(commands map[string]Command, tokens []string) (Command, []string, error) {
	if len(tokens) == 0 {
		return Command{}, nil, fmt.Errorf("empty command")
	}
	if len(tokens) >= 2 {
		if cmd, ok := commands[tokens[0]+" "+tokens[1]]; ok {
			return cmd, tokens[2:], nil
		}
	}
	if tokens[0] == "run" {
		return commands["run file"], tokens[1:], nil
	}
	if len(tokens) < 2 {
		return Command{}, nil, fmt.Errorf("invalid command, use: <service> <action> key=value ...")
	}
	return Command{}, nil, fmt.Errorf("unknown command: %s %s", tokens[0], tokens[1])
}

// BuildRequest creates HTTP request spec based on command.
func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	params.Canonicalize(cmd.Fields)

	var body []byte
	if cmd.Method != "GET" && cmd.Method != "DELETE" {
		payload, err := buildPayload(cmd, params)
		if err != nil {
			return RequestSpec{}, err
		}
		if payload != nil {
			body, err = json.Marshal(payload)
			if err != nil {
				return RequestSpec{}, fmt.Errorf("marshal request body failed: %w", err)
			}
		}
	}

	return RequestSpec{
		Method:  cmd.Method,
		Path:    cmd.PathTemplate,
		Headers: map[string]string{},
		Body:    body,
	}, nil
}

func buildPayload(cmd Command, params Params) (interface{}, error) {
	if cmd.Service == "run" {
		return buildExecutePayload(params)
	}
	return nil, nil
}

func buildExecutePayload(params Params) (interface{}, error) {
	path := params.Get("file")
	if path == "" {
		return nil, fmt.Errorf("file is required")
	}
	code, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("source file is empty")
	}
	language := params.Get("language")
	if language == "" {
		language = languageFromExt(filepath.Ext(path))
	}
	if language == "" {
		return nil, fmt.Errorf("language is required for %s", filepath.Base(path))
	}

	payload := map[string]interface{}{
		"code":     code,
		"language": language,
	}
	if entry := params.Get("entry"); entry != "" {
		payload["entryPoint"] = entry
	}
	return payload, nil
}

var extLanguages = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".java": "java",
	".cpp":  "cpp",
	".cc":   "cpp",
	".c":    "c",
}

func languageFromExt(ext string) string {
	return extLanguages[strings.ToLower(ext)]
}
