// Command probe is a smoke client for a running room server. It connects over
// TCP, retrying with backoff while the server comes up, asks to join a game
// and prints every frame it receives until enough frames have arrived or the
// timeout expires. It then sends disconnect and exits.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buger/jsonparser"
	"github.com/jpillora/backoff"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/roomserver/game/message"
	"github.com/wricardo/roomserver/game/session"
)

// ProbeOptions control one probe run.
type ProbeOptions struct {
	Addr    string
	RoomID  string
	Frames  int
	Retries int
	Timeout time.Duration
}

func main() {
	cmd := &cli.Command{
		Name:  "probe",
		Usage: "connect to a room server, join a game and print frames",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "127.0.0.1:8999", Usage: "game server address"},
			&cli.StringFlag{Name: "room", Usage: "room id to join instead of matchmaking"},
			&cli.IntFlag{Name: "frames", Value: 3, Usage: "frames to print before leaving"},
			&cli.IntFlag{Name: "retries", Value: 5, Usage: "connection attempts"},
			&cli.DurationFlag{Name: "timeout", Value: 5 * time.Second, Usage: "give up waiting for frames after this long"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return probe(ctx, os.Stdout, ProbeOptions{
				Addr:    cmd.String("addr"),
				RoomID:  cmd.String("room"),
				Frames:  int(cmd.Int("frames")),
				Retries: int(cmd.Int("retries")),
				Timeout: cmd.Duration("timeout"),
			})
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "probe: %v\n", err)
		os.Exit(1)
	}
}

// probe runs one session against opts.Addr and writes received frames to w.
func probe(ctx context.Context, w io.Writer, opts ProbeOptions) error {
	conn, err := dial(ctx, opts.Addr, opts.Retries)
	if err != nil {
		return err
	}
	defer conn.Close()

	if opts.Timeout > 0 {
		conn.SetDeadline(time.Now().Add(opts.Timeout))
	}
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	reader := bufio.NewReader(conn)

	greet, err := readFrame(reader)
	if err != nil {
		return fmt.Errorf("failed to read greeting: %w", err)
	}
	fmt.Fprintf(w, "< %s\n", greet)
	if msg, err := jsonparser.GetString(greet, "error"); err == nil && msg != "" {
		return fmt.Errorf("server refused connection: %s", msg)
	}

	var data any = map[string]string{}
	if opts.RoomID != "" {
		data = map[string]string{"roomId": opts.RoomID}
	}
	if err := send(conn, w, message.KeyJoinGame, data); err != nil {
		return err
	}

	for received := 0; received < opts.Frames; received++ {
		frame, err := readFrame(reader)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				fmt.Fprintf(w, "timed out after %d frames\n", received)
				break
			}
			return fmt.Errorf("failed to read frame: %w", err)
		}
		key, _ := jsonparser.GetString(frame, "key")
		fmt.Fprintf(w, "< [%s] %s\n", key, frame)
	}

	conn.SetWriteDeadline(time.Now().Add(time.Second))
	return send(conn, w, message.KeyDisconnect, nil)
}

// dial connects to addr, retrying with exponential backoff.
func dial(ctx context.Context, addr string, retries int) (net.Conn, error) {
	if retries < 1 {
		retries = 1
	}
	b := &backoff.Backoff{Min: 100 * time.Millisecond, Max: 2 * time.Second, Factor: 2}

	var d net.Dialer
	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		if attempt == retries-1 {
			break
		}
		select {
		case <-time.After(b.Duration()):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("failed to connect to %s after %d attempts: %w", addr, retries, lastErr)
}

func send(conn net.Conn, w io.Writer, key message.Key, data any) error {
	frame := session.Frame{Key: key}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		frame.Data = raw
	}

	line, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "> %s\n", line)
	if _, err := conn.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to send %s: %w", key, err)
	}
	return nil
}

func readFrame(r *bufio.Reader) ([]byte, error) {
	for {
		line, err := r.ReadBytes('\n')
		if line = bytes.TrimSpace(line); len(line) > 0 {
			return line, nil
		}
		if err != nil {
			return nil, err
		}
	}
}
