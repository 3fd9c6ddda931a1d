package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ai-text-assist/src/api"
	"ai-text-assist/src/bridge"
	"ai-text-assist/src/config"
	"ai-text-assist/src/wsclient"
)

const (
	maxInputSizeKB = 256
	maxInputSize   = maxInputSizeKB * 1024
)

type cliOptions struct {
	text       string
	filePath   string
	action     string
	jsonOutput bool
	verbose    bool
	timeoutSec int
	serverHost string
	serverPort int
	userID     string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"assist-cli"}
	}

	opts := &cliOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "assist-cli",
		Short:         "Submit text to the assist server and stream the result",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithOptions(*opts)
		},
	}

	cmd.Flags().StringVar(&opts.text, "text", "", "Source text (mutually exclusive with --file)")
	cmd.Flags().StringVar(&opts.filePath, "file", "", "Read source text from file (use '-' for stdin)")
	cmd.Flags().StringVar(&opts.action, "action", "QUICK_TRANSLATE", "Action to perform on the text")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output result as JSON")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Verbose output to stderr")
	cmd.Flags().IntVar(&opts.timeoutSec, "timeout", 0, "Overall timeout in seconds (default: STREAM_DEADLINE_SEC)")
	cmd.Flags().StringVar(&opts.serverHost, "server-host", "", "Override the assist server host")
	cmd.Flags().IntVar(&opts.serverPort, "server-port", 0, "Override the assist server port")
	cmd.Flags().StringVar(&opts.userID, "user-id", "", "Override the user id")

	return cmd
}

func runWithOptions(opts cliOptions) error {
	// Configure logging BEFORE any other operations.
	if !opts.verbose {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(os.Stderr)
		fmt.Fprintf(os.Stderr, "[verbose] Starting assist CLI\n")
	}

	cfg, err := config.LoadWithOptions(config.LoadOptions{
		ServerHostOverride: opts.serverHost,
		ServerPortOverride: opts.serverPort,
		UserIDOverride:     opts.userID,
	})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	text, err := readSourceText(opts)
	if err != nil {
		return err
	}

	timeout := time.Duration(cfg.StreamDeadlineSec) * time.Second
	if opts.timeoutSec > 0 {
		timeout = time.Duration(opts.timeoutSec) * time.Second
	}

	if opts.verbose {
		fmt.Fprintf(os.Stderr, "[verbose] Server: %s (user %s)\n", cfg.APIBaseURL(), cfg.UserID)
		fmt.Fprintf(os.Stderr, "[verbose] Action: %s, %d chars, timeout %v\n", opts.action, len(text), timeout)
	}

	return streamOnce(cfg, opts, text, timeout)
}

// readSourceText resolves the input, preferring --text over --file.
func readSourceText(opts cliOptions) (string, error) {
	if opts.text != "" && opts.filePath != "" {
		return "", fmt.Errorf("--text and --file are mutually exclusive")
	}

	var data []byte
	var err error
	switch {
	case opts.text != "":
		data = []byte(opts.text)
	case opts.filePath == "-":
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
	case opts.filePath != "":
		data, err = os.ReadFile(opts.filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", opts.filePath, err)
		}
	default:
		return "", fmt.Errorf("one of --text or --file is required")
	}

	if len(data) == 0 {
		return "", fmt.Errorf("input is empty")
	}
	if len(data) > maxInputSize {
		return "", fmt.Errorf("input exceeds maximum size of %d KB", maxInputSizeKB)
	}
	return string(data), nil
}

// streamOnce connects, submits the request, and writes chunks through to
// stdout until the stream finishes.
func streamOnce(cfg *config.Config, opts cliOptions, text string, timeout time.Duration) error {
	br := bridge.New()
	defer br.Shutdown()
	events, err := br.Subscribe("cli", 64)
	if err != nil {
		return err
	}

	var header http.Header
	if cfg.AuthToken != "" {
		header = http.Header{"Authorization": []string{"Bearer " + cfg.AuthToken}}
	}
	ws := wsclient.New(cfg.WSURL(), header, br)
	ws.Start()
	defer func() {
		ws.Stop()
		ws.Wait(2 * time.Second)
	}()

	deadline := time.After(timeout)
	if err := waitConnected(events, deadline); err != nil {
		return err
	}

	requestID := uuid.NewString()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	apiClient := api.New(cfg.APIBaseURL(), cfg.UserID, cfg.AuthToken)
	req := api.ProcessRequest{RequestID: requestID, Text: text, Action: opts.action}
	if err := apiClient.Process(ctx, req); err != nil {
		return fmt.Errorf("failed to submit request: %w", err)
	}
	if opts.verbose {
		fmt.Fprintf(os.Stderr, "[verbose] Submitted request %s\n", requestID)
	}

	startTime := time.Now()
	var b strings.Builder
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("event stream closed")
			}
			if ev.RequestID != requestID {
				continue
			}
			switch ev.Kind {
			case bridge.EventStreamStarted:
				if opts.verbose {
					fmt.Fprintf(os.Stderr, "[verbose] Stream started\n")
				}
			case bridge.EventChunkReceived:
				b.WriteString(ev.Content)
				if !opts.jsonOutput {
					fmt.Print(ev.Content)
				}
			case bridge.EventStreamEnded:
				if !opts.jsonOutput {
					fmt.Println()
					return nil
				}
				return outputJSON(b.String(), opts.action, time.Since(startTime))
			case bridge.EventStreamFailed:
				return fmt.Errorf("request failed: %s %s", ev.Code, ev.Message)
			}
		case <-deadline:
			ws.SendCancel(requestID)
			return fmt.Errorf("timed out after %v", timeout)
		}
	}
}

// waitConnected blocks until the worker reports a connected state.
func waitConnected(events <-chan bridge.Event, deadline <-chan time.Time) error {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("event stream closed before connect")
			}
			if ev.Kind == bridge.EventStateChanged && ev.State == "connected" {
				return nil
			}
		case <-deadline:
			return fmt.Errorf("timed out waiting for server connection")
		}
	}
}

func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}

	normalized := make([]string, len(args))
	copy(normalized, args)

	long := []string{"text", "file", "action", "json", "verbose", "timeout", "server-host", "server-port", "user-id"}
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range long {
			if arg == "-"+name {
				normalized[i] = "--" + name
				break
			}
			if strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}

	return normalized
}

type assistResult struct {
	Text      string  `json:"text"`
	Action    string  `json:"action"`
	Timestamp string  `json:"timestamp"`
	Duration  float64 `json:"duration_seconds"`
	CharCount int     `json:"character_count"`
}

func outputJSON(text, action string, elapsed time.Duration) error {
	result := assistResult{
		Text:      text,
		Action:    action,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Duration:  elapsed.Seconds(),
		CharCount: len(text),
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}
