package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	agentbridge "github.com/wagiedev/agent-bridge-go"
	"github.com/wagiedev/agent-bridge-go/internal/config"
)

const version = "0.1.0"

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	url        string
	exec       string
	token      string
	codec      string
	logLevel   string
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "bridgectl",
		Short: "Command-line client for agent bridges",
		Long: `bridgectl connects to an agent bridge over WebSocket, or runs one as
a child process with --exec.

It can send a single request and print the streamed output, follow the
events a bridge pushes, or expose configured bridge actions as MCP tools
on stdio.

Settings come from flags, then the --config file, then the
` + config.TokenEnv + ` environment variable for the token.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&flags.url, "url", "", "bridge URL, e.g. ws://localhost:7331/bridge")
	pf.StringVar(&flags.exec, "exec", "", "run the bridge as a child process speaking JSON lines on stdio")
	pf.StringVar(&flags.token, "token", "", "bearer token (default $"+config.TokenEnv+")")
	pf.StringVar(&flags.codec, "codec", "", "wire codec: json|cbor")
	pf.StringVar(&flags.logLevel, "log-level", "warn", "log level: debug|info|warn|error")
	pf.DurationVar(&flags.timeout, "timeout", 0, "request timeout (default 30s)")

	root.AddCommand(newSendCmd(flags))
	root.AddCommand(newListenCmd(flags))
	root.AddCommand(newMCPCmd(flags))

	return root
}

// session is everything a command needs to talk to the bridge.
type session struct {
	log    *slog.Logger
	file   *config.File
	client agentbridge.Client
}

// open resolves settings and creates an unconnected client.
func (f *globalFlags) open(logOut io.Writer) (*session, error) {
	log, err := newLogger(logOut, f.logLevel)
	if err != nil {
		return nil, err
	}

	file := &config.File{}
	if f.configPath != "" {
		file, err = config.LoadFile(f.configPath)
		if err != nil {
			return nil, err
		}
	}

	opts := &config.Options{
		URL:            f.url,
		Token:          f.token,
		RequestTimeout: f.timeout,
		Command:        strings.Fields(f.exec),
	}

	if f.codec != "" {
		codec, err := agentbridge.LookupCodec(f.codec)
		if err != nil {
			return nil, err
		}

		opts.Codec = codec
	}

	if err := file.Apply(opts); err != nil {
		return nil, err
	}

	if opts.URL == "" && len(opts.Command) == 0 {
		return nil, fmt.Errorf("no bridge: pass --url or --exec, or set url or command in --config")
	}

	clientOpts := []agentbridge.Option{
		agentbridge.WithLogger(log),
		agentbridge.WithURL(opts.URL),
		agentbridge.WithToken(opts.Token),
		agentbridge.WithRequestTimeout(opts.RequestTimeout),
		agentbridge.WithReconnectPolicy(opts.Reconnect),
	}

	if len(opts.Command) > 0 {
		stderrLog := log.With("component", "bridge_process")
		clientOpts = append(clientOpts,
			agentbridge.WithCommand(opts.Command[0], opts.Command[1:]...),
			agentbridge.WithProcessEnv(opts.Env...),
			agentbridge.WithProcessDir(opts.Dir),
			agentbridge.WithStderr(func(line string) { stderrLog.Info(line) }),
		)
	}

	if opts.Codec != nil {
		clientOpts = append(clientOpts, agentbridge.WithCodec(opts.Codec))
	}

	for key, values := range opts.Header {
		for _, v := range values {
			clientOpts = append(clientOpts, agentbridge.WithHeader(key, v))
		}
	}

	client, err := agentbridge.New(clientOpts...)
	if err != nil {
		return nil, err
	}

	return &session{log: log, file: file, client: client}, nil
}

func newLogger(out io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", level)
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl})), nil
}
