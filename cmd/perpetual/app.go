package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spetersoncode/perpetual/agent"
	"github.com/spetersoncode/perpetual/config"
	"github.com/spetersoncode/perpetual/internal/logging"
	"github.com/spetersoncode/perpetual/llm"
	"github.com/spetersoncode/perpetual/store"
	"github.com/spetersoncode/perpetual/tool"
)

// app holds what the commands share: settings, the logger, the terminal
// streams and the lazily created model client.
type app struct {
	configPath string
	envFiles   []string
	output     string
	verbose    bool

	cfg      *config.Config
	logger   *slog.Logger
	closeLog func() error

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	client *llm.Client

	// chat and embedder replace the model client when set.
	chat     agent.Chatter
	embedder tool.Embedder
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *app {
	return &app{stdin: stdin, stdout: stdout, stderr: stderr}
}

// setup loads the configuration and builds the logger.
func (a *app) setup() error {
	cfg, err := config.Load(a.configPath, a.envFiles...)
	if err != nil {
		return err
	}
	opts := cfg.LoggingOptions()
	opts.Writer = a.stderr
	if a.verbose && opts.Level == "info" {
		opts.Level = "debug"
	}
	logger, closeLog, err := logging.New(opts)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.closeLog = closeLog
	return nil
}

func (a *app) close() {
	if a.closeLog != nil {
		a.closeLog()
	}
}

// llmClient returns the model client, creating it on first use. A nil
// acknowledger abandons calls once their retries are spent.
func (a *app) llmClient(ack llm.Acknowledger) *llm.Client {
	if a.client == nil {
		opts := []llm.Option{llm.WithLogger(a.logger)}
		if ack != nil {
			opts = append(opts, llm.WithAcknowledger(ack))
		}
		a.client = llm.New(a.cfg.ClientConfig(), opts...)
	}
	return a.client
}

func (a *app) chatter(ack llm.Acknowledger) agent.Chatter {
	if a.chat != nil {
		return a.chat
	}
	return a.llmClient(ack)
}

// openTools opens the tool registry in the configured directory. Tools run
// confined to the configured workspace and hosts.
func (a *app) openTools(ctx context.Context, ack llm.Acknowledger) (*tool.Registry, error) {
	embedder := a.embedder
	if embedder == nil {
		embedder = a.llmClient(ack)
	}
	if err := os.MkdirAll(a.cfg.Workspace(), 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	host := tool.NewHost(append(a.cfg.HostOptions(), tool.WithHostLogger(a.logger))...)
	opts := []tool.Option{tool.WithLogger(a.logger), tool.WithHost(host)}
	if a.cfg.Storage.IndexPath != "" {
		opts = append(opts, tool.WithIndexPath(a.cfg.Storage.IndexPath))
	}
	return tool.Open(ctx, a.cfg.ToolDir(), embedder, opts...)
}

func (a *app) openStore() (*store.SQLite, error) {
	return store.OpenSQLite(a.cfg.SessionDB())
}
