package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/zhouzirui/fund-faq/widget/internal/config"
	"github.com/zhouzirui/fund-faq/widget/internal/model/example"
	"github.com/zhouzirui/fund-faq/widget/internal/render"
	"github.com/zhouzirui/fund-faq/widget/internal/service/backend"
	chatsvc "github.com/zhouzirui/fund-faq/widget/internal/service/chat"
	"github.com/zhouzirui/fund-faq/widget/internal/tui"
)

// errAnswerFailed 让 ask 在回复为错误消息时以非零状态退出。
var errAnswerFailed = errors.New("request failed")

type rootOptions struct {
	endpoint   string
	timeout    time.Duration
	verbose    bool
	markdown   bool
	hyperlinks bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "chat",
		Short: "Terminal client for the fund FAQ chat endpoint",
		Long: `chat sends questions to the /chat endpoint and shows the answers with
their official links.

Run without arguments to start the interactive client.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			// 全屏界面下不输出日志。
			client, err := backend.NewClient(cfg.Backend)
			if err != nil {
				return err
			}
			return tui.Run(cmd.Context(), client, example.NewMemoryStore(example.Seed()), tui.Config{
				Title:       cfg.Chat.Title,
				LoadingText: cfg.Chat.LoadingText,
				Markdown:    opts.markdown,
				Hyperlinks:  opts.hyperlinks,
			})
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.endpoint, "endpoint", "", "chat endpoint URL (overrides CHAT_API_URL)")
	flags.DurationVar(&opts.timeout, "timeout", 0, "request timeout, 0 for none (overrides CHAT_API_TIMEOUT)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log requests to stderr")
	flags.BoolVar(&opts.markdown, "markdown", false, "render answers as markdown")
	flags.BoolVar(&opts.hyperlinks, "hyperlinks", false, "print links as clickable terminal hyperlinks")

	root.AddCommand(newAskCmd(opts), newExamplesCmd())
	return root
}

func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if o.endpoint != "" {
		cfg.Backend.URL = o.endpoint
	}
	if o.timeout > 0 {
		cfg.Backend.Timeout = o.timeout
	}
	return cfg, nil
}

func (o *rootOptions) logger(w io.Writer) *zap.Logger {
	if !o.verbose {
		return zap.NewNop()
	}
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), zapcore.DebugLevel))
}

func newAskCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask one question and print the answer",
		Example: `  chat ask "What is the exit load for HDFC Large Cap?"
  chat ask --endpoint http://localhost:8000/chat expense ratio of flexi cap`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger := opts.logger(cmd.ErrOrStderr())
			defer logger.Sync()

			client, err := backend.NewClient(cfg.Backend, backend.WithLogger(logger.Named("backend")))
			if err != nil {
				return err
			}
			svc := chatsvc.NewService(client,
				chatsvc.WithPolicy(cfg.Chat.Policy),
				chatsvc.WithLoadingText(cfg.Chat.LoadingText),
				chatsvc.WithLogger(logger.Named("chat")),
			)
			defer svc.Close()

			session, err := svc.CreateSession(cmd.Context())
			if err != nil {
				return err
			}

			reply, err := svc.Ask(cmd.Context(), session.ID, strings.Join(args, " "))
			if errors.Is(err, chatsvc.ErrEmptyQuery) {
				return nil
			}
			if err != nil {
				return err
			}

			term := render.NewTerminal(render.WithHyperlinks(opts.hyperlinks))
			if opts.markdown {
				if md, err := render.NewMarkdownRenderer(100); err == nil {
					term = render.NewTerminal(render.WithHyperlinks(opts.hyperlinks), render.WithMarkdown(md))
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), term.Render(reply))
			if reply.Error {
				return errAnswerFailed
			}
			return nil
		},
	}
	return cmd
}

func newExamplesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "List the example questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for i, ex := range example.NewMemoryStore(example.Seed()).List() {
				fmt.Fprintf(out, "F%d  %-14s %s\n", i+1, ex.Label, ex.Query)
			}
			return nil
		},
	}
}
