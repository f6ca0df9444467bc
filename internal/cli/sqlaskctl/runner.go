// Package sqlaskctl is the command line client for the sqlask API.
package sqlaskctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/urfave/cli/v3"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
	// Spinner shows progress on Stderr while a model-backed command waits.
	Spinner bool
}

// exitError carries the process exit code a command failed with.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...any) error {
	return &exitError{code: exitUsage, err: fmt.Errorf(format, args...)}
}

func failuref(format string, args ...any) error {
	return &exitError{code: exitFailure, err: fmt.Errorf(format, args...)}
}

// Run executes one command and returns the process exit code. args excludes
// the program name.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	r := &runner{options: defaults, stdout: stdout, stderr: stderr}
	root := r.command()
	err := root.Run(ctx, append([]string{root.Name}, args...))
	if err == nil {
		return exitOK
	}

	var exit *exitError
	if errors.As(err, &exit) {
		_, _ = fmt.Fprintln(stderr, exit.err)
		if exit.code == exitUsage {
			_, _ = fmt.Fprintln(stderr)
			writeUsage(stderr)
		}
		return exit.code
	}
	_, _ = fmt.Fprintln(stderr, err)
	return exitUsage
}

type runner struct {
	options Options
	stdout  io.Writer
	stderr  io.Writer
}

func (r *runner) command() *cli.Command {
	return &cli.Command{
		Name:            "sqlaskctl",
		Usage:           "ask questions of the sqlask API",
		HideHelpCommand: true,
		Writer:          r.stdout,
		ErrWriter:       r.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "base-url",
				Value: firstNonEmpty(r.options.BaseURL, "http://localhost:8080"),
				Usage: "sqlask API base URL",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: durationOr(r.options.Timeout, 60*time.Second),
				Usage: "HTTP timeout (e.g. 30s)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print raw JSON instead of a summary",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() > 0 {
				return usageErrorf("unknown command %q", cmd.Args().First())
			}
			return usageErrorf("a command is required")
		},
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "translate a question to SQL and run it",
				ArgsUsage: "<question>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return r.question(ctx, cmd, "/v1/ask")
				},
			},
			{
				Name:      "translate",
				Usage:     "translate a question to SQL without running it",
				ArgsUsage: "<question>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return r.question(ctx, cmd, "/v1/query/translate")
				},
			},
			{
				Name:      "query",
				Usage:     "run a SQL statement",
				ArgsUsage: "<sql>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					sqlText := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
					if sqlText == "" {
						return usageErrorf("query requires a SQL statement")
					}
					return r.call(ctx, cmd, http.MethodPost, "/v1/query", map[string]string{"sql": sqlText}, false, printResult)
				},
			},
			r.simple("schema", "describe the store's tables", http.MethodGet, "/v1/schema"),
			r.simple("health", "check liveness", http.MethodGet, "/v1/health"),
			r.simple("ready", "check readiness", http.MethodGet, "/v1/ready"),
			r.simple("bootstrap", "reset the demonstration data", http.MethodPost, "/v1/bootstrap"),
		},
	}
}

func (r *runner) simple(name, usage, method, path string) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return r.call(ctx, cmd, method, path, nil, false, nil)
		},
	}
}

func (r *runner) question(ctx context.Context, cmd *cli.Command, path string) error {
	question := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if question == "" {
		return usageErrorf("%s requires a question", cmd.Name)
	}
	return r.call(ctx, cmd, http.MethodPost, path, map[string]string{"question": question}, true, printAnswer)
}

// printer renders a successful response body as a summary. It returns an
// error when the body reports a failure the exit code should reflect.
type printer func(w io.Writer, body []byte) error

func (r *runner) call(ctx context.Context, cmd *cli.Command, method, path string, payload any, slow bool, summarize printer) error {
	client := r.options.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cmd.Duration("timeout")}
	}

	var stop func()
	if slow && r.options.Spinner {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(r.stderr))
		s.Suffix = " waiting for the model"
		s.Start()
		stop = s.Stop
	}
	endpoint := strings.TrimRight(cmd.String("base-url"), "/") + path
	code, body, err := doRequest(ctx, client, method, endpoint, payload)
	if stop != nil {
		stop()
	}
	if err != nil {
		return failuref("request failed: %v", err)
	}
	if code >= 400 {
		return failuref("http %d: %s", code, strings.TrimSpace(string(body)))
	}

	if summarize == nil || cmd.Bool("json") {
		if pretty, ok := prettyJSON(body); ok {
			_, _ = fmt.Fprintln(r.stdout, pretty)
		} else if len(body) > 0 {
			_, _ = fmt.Fprintln(r.stdout, string(body))
		}
		return reportedFailure(body)
	}
	if err := summarize(r.stdout, body); err != nil {
		return &exitError{code: exitFailure, err: err}
	}
	return nil
}

func doRequest(ctx context.Context, client *http.Client, method, url string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

// reportedFailure turns a 200 body whose status says "failed" or "failure"
// into an error so scripts can branch on the exit code.
func reportedFailure(body []byte) error {
	var envelope struct {
		Status    string `json:"status"`
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
		Error     string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	if envelope.Status != "failed" && envelope.Status != "failure" {
		return nil
	}
	message := firstNonEmpty(envelope.Message, envelope.Error)
	return &exitError{code: exitFailure, err: fmt.Errorf("%s: %s", envelope.ErrorCode, message)}
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: sqlaskctl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  ask <question>         POST /v1/ask")
	_, _ = fmt.Fprintln(w, "  translate <question>   POST /v1/query/translate")
	_, _ = fmt.Fprintln(w, "  query <sql>            POST /v1/query")
	_, _ = fmt.Fprintln(w, "  schema                 GET /v1/schema")
	_, _ = fmt.Fprintln(w, "  health                 GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                  GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  bootstrap              POST /v1/bootstrap")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
