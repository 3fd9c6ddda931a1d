package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ai-text-assist/src/api"
	"ai-text-assist/src/bridge"
	"ai-text-assist/src/clipboard"
	"ai-text-assist/src/config"
	"ai-text-assist/src/eventloop"
	"ai-text-assist/src/hotkey"
	"ai-text-assist/src/inject"
	"ai-text-assist/src/logutil"
	"ai-text-assist/src/singleinstance"
	"ai-text-assist/src/windowctx"
	"ai-text-assist/src/worker"
	"ai-text-assist/src/wsclient"
)

type mainOptions struct {
	serverHost string
	serverPort int
	userID     string
	noHotkeys  bool
}

// normalizeLegacyArgs maps single-dash long flags (-server-host) to the
// GNU-style form cobra expects.
func normalizeLegacyArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 1; i < len(out); i++ {
		arg := out[i]
		if strings.HasPrefix(arg, "-") && !strings.HasPrefix(arg, "--") && len(arg) > 2 {
			out[i] = "-" + arg
		}
	}
	return out
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "ai-text-assist",
		Short:        "Resident text-assist client: hotkey, stream, inject",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResident(opts)
		},
	}
	cmd.Flags().StringVar(&opts.serverHost, "server-host", "", "Override the assist server host")
	cmd.Flags().IntVar(&opts.serverPort, "server-port", 0, "Override the assist server port")
	cmd.Flags().StringVar(&opts.userID, "user-id", "", "Override the user id")
	cmd.Flags().BoolVar(&opts.noHotkeys, "no-hotkeys", false, "Run without installing the keyboard hook")
	return cmd
}

func main() {
	enableDPIAwareness()

	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(normalizeLegacyArgs(os.Args)[1:])
	if err := cmd.Execute(); err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}
}

func runResident(opts *mainOptions) error {
	cfg, err := config.LoadWithOptions(config.LoadOptions{
		ServerHostOverride: opts.serverHost,
		ServerPortOverride: opts.serverPort,
		UserIDOverride:     opts.userID,
	})
	if err != nil {
		return err
	}

	logutil.Setup(cfg.EnableFileLogging)

	guard, err := singleinstance.Acquire()
	if err != nil {
		return err
	}
	defer guard.Release()
	log.Printf("Instance guard on port %d", guard.Port())

	log.Printf("AI Text Assist starting")
	log.Printf("Server: %s (user %s)", cfg.APIBaseURL(), cfg.UserID)
	if cfg.AuthToken != "" {
		log.Printf("Auth token: %s", logutil.RedactKey(cfg.AuthToken))
	}
	log.Printf("Hotkeys: %v", cfg.Hotkeys)
	log.Printf("Stream deadline: %ds", cfg.StreamDeadlineSec)

	if err := clipboard.Init(); err != nil {
		return err
	}

	query := windowctx.NewQuery()
	keys, err := inject.NewKeyboard()
	if err != nil {
		return err
	}
	injector := inject.New(clipboard.Store{}, keys, query)
	pool := worker.New(1, injector)

	br := bridge.New()
	events, err := br.Subscribe("eventloop", 64)
	if err != nil {
		return err
	}

	var header http.Header
	if cfg.AuthToken != "" {
		header = http.Header{"Authorization": []string{"Bearer " + cfg.AuthToken}}
	}
	ws := wsclient.New(cfg.WSURL(), header, br)
	apiClient := api.New(cfg.APIBaseURL(), cfg.UserID, cfg.AuthToken)
	loop := eventloop.New(cfg, ws, apiClient, clipboard.Store{}, pool)

	hotkeys := hotkey.NewManager(loop.Trigger, query)
	if err := hotkeys.Reload(cfg.Hotkeys); err != nil {
		return err
	}
	if opts.noHotkeys {
		log.Printf("Keyboard hook disabled by flag")
	} else if err := hotkeys.Enable(); err != nil {
		return err
	}

	ws.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		log.Printf("Shutdown signal received")
		cancel()
	}()

	err = loop.Run(ctx, events)
	if err != nil && err != context.Canceled {
		log.Printf("event loop stopped: %v", err)
	}

	hotkeys.Disable()
	ws.Stop()
	if !ws.Wait(5 * time.Second) {
		log.Printf("Network worker did not stop in time")
	}
	br.Shutdown()
	log.Printf("AI Text Assist stopped")
	return nil
}
