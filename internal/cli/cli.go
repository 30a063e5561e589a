package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/catatsuy/kusari/internal/config"
	"github.com/catatsuy/kusari/internal/metrics"
	"github.com/catatsuy/kusari/internal/server"
)

var Version string

const shellPrompt = "kusari> "

func version() string {
	if Version != "" {
		return Version
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "(devel)"
	}

	return info.Main.Version
}

type CLI struct {
	stdout io.Writer
	stderr io.Writer
	stdin  io.Reader
}

func NewCLI(stdout, stderr io.Writer, stdin io.Reader) *CLI {
	return &CLI{
		stdout: stdout,
		stderr: stderr,
		stdin:  stdin,
	}
}

func (c *CLI) Run(args []string) int {
	opts, err := parseFlags(args[1:])
	if err != nil {
		fmt.Fprintf(c.stderr, "failed to parse flags: %v\n", err)
		return 2
	}
	if opts.showVersion {
		fmt.Fprintf(c.stdout, "kusari version %s; %s\n", version(), runtime.Version())
		return 0
	}

	var lists []config.List
	if opts.configPath != "" {
		f, err := config.Load(opts.configPath)
		if err != nil {
			fmt.Fprintf(c.stderr, "failed to load config: %v\n", err)
			return 2
		}
		lists = f.Lists
	}

	logger := slog.New(slog.NewTextHandler(c.stderr, nil))
	m := metrics.New()
	srv := server.NewServer(server.Config{
		ListenAddr:  opts.listenAddr,
		MaxElements: opts.maxElements,
		Lists:       lists,
		Observer:    m,
		Verbose:     opts.verbose,
		Logger:      logger,
	})

	if opts.shell {
		if err := srv.RunSession(c.stdin, c.stdout, c.prompt()); err != nil {
			fmt.Fprintf(c.stderr, "session failed: %v\n", err)
			return 1
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	if opts.metricsListenAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		hs := &http.Server{
			Addr:              opts.metricsListenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return hs.Shutdown(context.Background())
		})
	}

	if err := g.Wait(); err != nil {
		fmt.Fprintf(c.stderr, "server failed: %v\n", err)
		return 1
	}
	return 0
}

// prompt is only shown when a person is typing.
func (c *CLI) prompt() string {
	f, ok := c.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return ""
	}
	return shellPrompt
}
