package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/kamomai/notebot/internal/api"
	"github.com/kamomai/notebot/internal/config"
	"github.com/kamomai/notebot/internal/discord"
	"github.com/kamomai/notebot/internal/llm"
	"github.com/kamomai/notebot/internal/logger"
	"github.com/kamomai/notebot/internal/publish"
	"github.com/kamomai/notebot/internal/scheduler"
)

type stubServer struct {
	err  error
	addr *string
}

func (s stubServer) Start(ctx context.Context, addr string) error {
	if s.addr != nil {
		*s.addr = addr
	}
	return s.err
}

type stubAssembler struct {
	fragments []string
	err       error
	prompt    string
}

func (s *stubAssembler) Assemble(ctx context.Context, prompt string) ([]string, error) {
	s.prompt = prompt
	return s.fragments, s.err
}

type stubProvider struct{}

func (stubProvider) Generate(ctx context.Context, prompt string, tool llm.Tool) (*genai.GenerateContentResponse, error) {
	return nil, errors.New("not used")
}

type stubDiscord struct {
	openErr error
	opened  bool
	closed  bool
}

func (s *stubDiscord) Open() error {
	s.opened = true
	return s.openErr
}

func (s *stubDiscord) Close() error {
	s.closed = true
	return nil
}

func (s *stubDiscord) Ready() bool {
	return s.opened
}

func (s *stubDiscord) ChannelMessages(ctx context.Context, channelID string, limit int, after time.Time) ([]discord.Message, error) {
	return nil, nil
}

type stubScheduler struct {
	ran chan struct{}
}

func (s *stubScheduler) Run(ctx context.Context) error {
	close(s.ran)
	return nil
}

func captureNotebotDeps() func() {
	origLoadConfig := loadConfig
	origNewLogger := newLogger
	origNewProvider := newProvider
	origNewAssembler := newAssembler
	origNewPoster := newPoster
	origNewDiscord := newDiscord
	origNewServer := newServer
	origNewScheduler := newScheduler
	origNotifyContext := notifyContext
	origStdin := stdin

	return func() {
		loadConfig = origLoadConfig
		newLogger = origNewLogger
		newProvider = origNewProvider
		newAssembler = origNewAssembler
		newPoster = origNewPoster
		newDiscord = origNewDiscord
		newServer = origNewServer
		newScheduler = origNewScheduler
		notifyContext = origNotifyContext
		stdin = origStdin
	}
}

func stubCommonDeps(cfg config.Config, asm *stubAssembler) {
	loadConfig = func() (config.Config, error) {
		return cfg, nil
	}
	newLogger = func(string) (*logger.Logger, error) {
		return logger.NewNop(), nil
	}
	newProvider = func(context.Context, config.Config) (llm.Provider, error) {
		return stubProvider{}, nil
	}
	newAssembler = func(llm.Provider, ...llm.AssemblerOption) assembler {
		return asm
	}
	notifyContext = func(ctx context.Context, _ ...os.Signal) (context.Context, context.CancelFunc) {
		return context.WithCancel(ctx)
	}
}

func TestRunServeSuccess(t *testing.T) {
	restore := captureNotebotDeps()
	t.Cleanup(restore)

	stubCommonDeps(config.Config{Port: "9090"}, &stubAssembler{})
	var addr string
	newServer = func(api.Summarizer, ...api.Option) server {
		return stubServer{addr: &addr}
	}
	newDiscord = func(string) (discordClient, error) {
		t.Fatal("discord should not be created without a token")
		return nil, nil
	}

	require.NoError(t, runServe(context.Background()))
	require.Equal(t, ":9090", addr)
}

func TestRunServeWithDiscordAndSchedule(t *testing.T) {
	restore := captureNotebotDeps()
	t.Cleanup(restore)

	stubCommonDeps(config.Config{Port: "0", DiscordBotToken: "token", DiscordChannelID: "1", SummaryCron: "0 * * * *"}, &stubAssembler{})
	dc := &stubDiscord{}
	newDiscord = func(token string) (discordClient, error) {
		require.Equal(t, "token", token)
		return dc, nil
	}
	sched := &stubScheduler{ran: make(chan struct{})}
	var scheduledExpr string
	newScheduler = func(expr string, job scheduler.Job, _ *logger.Logger) (scheduleRunner, error) {
		scheduledExpr = expr
		return sched, nil
	}
	var optCount int
	newServer = func(_ api.Summarizer, opts ...api.Option) server {
		optCount = len(opts)
		return stubServer{}
	}

	require.NoError(t, runServe(context.Background()))
	require.True(t, dc.opened)
	require.True(t, dc.closed)
	require.Equal(t, "0 * * * *", scheduledExpr)
	<-sched.ran
	require.Equal(t, 4, optCount)
}

func TestRunServeErrors(t *testing.T) {
	t.Run("config error", func(t *testing.T) {
		restore := captureNotebotDeps()
		t.Cleanup(restore)
		loadConfig = func() (config.Config, error) {
			return config.Config{}, errors.New("invalid configuration")
		}
		require.EqualError(t, runServe(context.Background()), "invalid configuration")
	})

	t.Run("provider error", func(t *testing.T) {
		restore := captureNotebotDeps()
		t.Cleanup(restore)
		stubCommonDeps(config.Config{}, &stubAssembler{})
		newProvider = func(context.Context, config.Config) (llm.Provider, error) {
			return nil, errors.New("no credentials")
		}
		require.EqualError(t, runServe(context.Background()), "no credentials")
	})

	t.Run("discord open error", func(t *testing.T) {
		restore := captureNotebotDeps()
		t.Cleanup(restore)
		stubCommonDeps(config.Config{DiscordBotToken: "bad"}, &stubAssembler{})
		newDiscord = func(string) (discordClient, error) {
			return &stubDiscord{openErr: errors.New("401 unauthorized")}, nil
		}
		err := runServe(context.Background())
		require.Error(t, err)
		require.Contains(t, err.Error(), "401 unauthorized")
	})

	t.Run("server error", func(t *testing.T) {
		restore := captureNotebotDeps()
		t.Cleanup(restore)
		stubCommonDeps(config.Config{}, &stubAssembler{})
		newServer = func(api.Summarizer, ...api.Option) server {
			return stubServer{err: errors.New("address in use")}
		}
		require.EqualError(t, runServe(context.Background()), "address in use")
	})
}

func TestRunAskPrintsFragments(t *testing.T) {
	restore := captureNotebotDeps()
	t.Cleanup(restore)

	asm := &stubAssembler{fragments: []string{"part one", "part two"}}
	stubCommonDeps(config.Config{}, asm)
	newPoster = func(config.Config) publish.PostFunc {
		t.Fatal("poster should not be used without --publish")
		return nil
	}

	var out bytes.Buffer
	require.NoError(t, runAsk(context.Background(), []string{"今日の", "ニュース"}, false, &out))
	require.Equal(t, "今日の ニュース", asm.prompt)
	require.Equal(t, "part one"+fragmentRule+"part two\n", out.String())
}

func TestRunAskReadsStdinAndPublishes(t *testing.T) {
	restore := captureNotebotDeps()
	t.Cleanup(restore)

	asm := &stubAssembler{fragments: []string{"a", "b"}}
	stubCommonDeps(config.Config{}, asm)
	stdin = strings.NewReader("  https://example.com  \n")
	var replies []string
	newPoster = func(config.Config) publish.PostFunc {
		return func(ctx context.Context, body string, replyID string) (string, error) {
			replies = append(replies, replyID)
			return body + "-id", nil
		}
	}

	var out bytes.Buffer
	require.NoError(t, runAsk(context.Background(), nil, true, &out))
	require.Equal(t, "https://example.com", asm.prompt)
	require.Equal(t, []string{"", "a-id"}, replies)
	require.Contains(t, out.String(), "posted notes: a-id, b-id")
}

func TestRunAskErrors(t *testing.T) {
	restore := captureNotebotDeps()
	t.Cleanup(restore)

	stubCommonDeps(config.Config{}, &stubAssembler{err: llm.ErrEmptyResponse})
	stdin = strings.NewReader("   ")
	require.EqualError(t, runAsk(context.Background(), nil, false, &bytes.Buffer{}), "prompt is required")

	require.ErrorIs(t, runAsk(context.Background(), []string{"q"}, false, &bytes.Buffer{}), llm.ErrEmptyResponse)
}

func TestRootCommandWiring(t *testing.T) {
	root := newRootCmd()
	require.Equal(t, "notebot", root.Use)

	names := []string{}
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	require.ElementsMatch(t, []string{"serve", "ask"}, names)

	ask, _, err := root.Find([]string{"ask"})
	require.NoError(t, err)
	require.NotNil(t, ask.Flags().Lookup("publish"))
}

func TestAskCommandExecutes(t *testing.T) {
	restore := captureNotebotDeps()
	t.Cleanup(restore)

	stubCommonDeps(config.Config{}, &stubAssembler{fragments: []string{"answer"}})

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"ask", "hello"})
	require.NoError(t, root.Execute())
	require.Equal(t, "answer\n", out.String())
}
