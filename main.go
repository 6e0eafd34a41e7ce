// Command roomserver starts the multiplayer room server.
//
// It supports three commands:
//  1. "serve" (default) – runs the TCP game listener plus the admin HTTP
//     listener exposing the REST API, the WebSocket gateway and an /mcp endpoint
//  2. "mcp" – runs an MCP stdio server that inspects a running server through
//     its admin API
//  3. "validate-env" – checks env files without starting anything
//
// Settings come from an env file and the process environment; flags override
// both. The game listener can optionally be exposed through an ngrok TCP
// tunnel for easy external access during development.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/roomserver/api"
	"github.com/wricardo/roomserver/game/config"
	"github.com/wricardo/roomserver/game/service"
	"github.com/wricardo/roomserver/transport/mcp"
	"github.com/wricardo/roomserver/transport/tcp"
	"github.com/wricardo/roomserver/transport/websocket"
	"github.com/wricardo/roomserver/validate"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Room Server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

// newCommand builds the CLI. Running it without a subcommand serves.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "roomserver",
		Usage:   "multiplayer lobby and room server",
		Version: Version,
		Flags:   serveFlags(),
		Action:  serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the game and admin listeners",
				Flags:  serveFlags(),
				Action: serveAction,
			},
			{
				Name:  "mcp",
				Usage: "run an MCP stdio server inspecting a running server",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "admin-url", Value: "http://127.0.0.1:8998", Usage: "admin API of the server to inspect"},
				},
				Action: mcpAction,
			},
			{
				Name:      "validate-env",
				Usage:     "validate env files",
				ArgsUsage: "<file>...",
				Action:    validateAction,
			},
		},
	}
}

func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "env file to load; a missing default file is ignored"},
		&cli.StringFlag{Name: "host", Usage: "interface to bind"},
		&cli.IntFlag{Name: "port", Usage: "game TCP port"},
		&cli.IntFlag{Name: "admin-port", Usage: "admin HTTP port, 0 disables"},
		&cli.IntFlag{Name: "max-connections", Usage: "connection limit per listener"},
		&cli.BoolFlag{Name: "debug", Usage: "enable debug logging"},
		&cli.BoolFlag{Name: "ngrok", Usage: "expose the game listener through an ngrok TCP tunnel"},
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := config.NewLogger(cfg, os.Stderr)
	log.Info().Str("version", Version).Str("env", cfg.Env).Msg("starting " + AppName)

	a := newApp(cfg, log)
	if err := a.listen(ctx); err != nil {
		return err
	}
	return a.run(ctx)
}

// loadConfig reads the env file and applies flag overrides. The default env
// file may be absent; one named explicitly must exist.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("env-file"))
	if errors.Is(err, config.ErrEnvFileNotFound) && !cmd.IsSet("env-file") {
		cfg, err = config.Load("")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("admin-port") {
		cfg.AdminPort = int(cmd.Int("admin-port"))
	}
	if cmd.IsSet("max-connections") {
		cfg.MaxConnections = int(cmd.Int("max-connections"))
	}
	if cmd.Bool("debug") {
		cfg.LogLevel = "debug"
	}
	if cmd.Bool("ngrok") {
		cfg.NgrokEnabled = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mcpAction(ctx context.Context, cmd *cli.Command) error {
	client := mcp.NewClient(cmd.String("admin-url"))
	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

func validateAction(ctx context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return errors.New("at least one env file is required")
	}
	if !validate.Files(cmd.Root().Writer, files) {
		return errors.New("some env files have errors")
	}
	return nil
}

// app is one serving process: the room server and the listeners feeding it.
type app struct {
	cfg *config.Config
	log zerolog.Logger
	srv *service.Server

	gameAddr  string
	adminAddr string // empty disables the admin listener

	game    *tcp.Server
	hub     *websocket.Hub
	admin   *http.Server
	adminLn net.Listener
}

func newApp(cfg *config.Config, log zerolog.Logger) *app {
	a := &app{
		cfg:      cfg,
		log:      log,
		srv:      service.NewServer(cfg, log),
		gameAddr: net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
	}
	if cfg.AdminPort != 0 {
		a.adminAddr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.AdminPort))
	}
	return a
}

// listen binds the game listener, or the ngrok tunnel standing in for it, and
// the admin listener.
func (a *app) listen(ctx context.Context) error {
	opts := []tcp.Option{
		tcp.WithLogger(config.Component(a.log, "tcp")),
		tcp.WithMaxConnections(a.cfg.MaxConnections),
	}
	if a.cfg.NgrokEnabled {
		a.log.Info().Msg("starting ngrok tunnel")
		tun, err := ngrok.Listen(ctx,
			ngrokConfig.TCPEndpoint(),
			ngrok.WithAuthtoken(a.cfg.NgrokAuthToken),
		)
		if err != nil {
			return fmt.Errorf("failed to start ngrok tunnel: %w", err)
		}
		a.log.Info().Str("url", tun.URL()).Msg("ngrok tunnel established")
		opts = append(opts, tcp.WithListener(tun))
	}

	a.game = tcp.NewServer(a.gameAddr, opts...)
	if err := a.game.Listen(ctx); err != nil {
		return err
	}
	a.srv.Attach(a.game)

	if a.adminAddr == "" {
		return nil
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", a.adminAddr)
	if err != nil {
		a.game.Close()
		return fmt.Errorf("failed to listen on %s: %w", a.adminAddr, err)
	}
	a.adminLn = ln

	a.hub = websocket.NewHub(
		func(ctx context.Context, conn *websocket.Conn) error { return a.srv.ServeConn(ctx, conn) },
		websocket.WithLogger(config.Component(a.log, "websocket")),
		websocket.WithMaxConnections(a.cfg.MaxConnections),
	)
	a.srv.Attach(a.hub)

	handler := api.NewServer(a.srv, a.hub)
	handler.Handle("/mcp", mcp.NewClient("http://"+ln.Addr().String()))

	a.admin = &http.Server{
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	return nil
}

// run serves until ctx is cancelled or a listener fails, then shuts down.
func (a *app) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.srv.Run(ctx)
	})

	g.Go(func() error {
		return a.game.Serve(ctx, func(ctx context.Context, conn *tcp.Conn) error {
			return a.srv.ServeConn(ctx, conn)
		})
	})

	if a.admin != nil {
		a.admin.BaseContext = func(net.Listener) context.Context { return ctx }

		g.Go(func() error {
			addr := a.adminLn.Addr().String()
			a.log.Info().
				Str("api", "http://"+addr+"/api").
				Str("websocket", "ws://"+addr+"/ws").
				Str("mcp", "http://"+addr+"/mcp").
				Msg("admin listener ready")
			if err := a.admin.Serve(a.adminLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin server error: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := a.admin.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("admin server shutdown error: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	a.log.Info().Msg("server stopped")
	return err
}
