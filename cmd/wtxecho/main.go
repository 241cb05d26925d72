// Command wtxecho is a minimal demonstration of the websocket package:
// "serve" runs an echo server that broadcasts every received message to
// all connected clients via a Hub, and "client" dials it, sends one
// message, and prints whatever comes back.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wtxgo/wtx/websocket"
)

func main() {
	cmd := &cli.Command{
		Name:  "wtxecho",
		Usage: "demo WebSocket echo server and client",
		Commands: []*cli.Command{
			serveCommand(),
			clientCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "wtxecho: %v\n", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run an echo server that broadcasts messages to every connected client",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", Usage: "listen address"},
			&cli.BoolFlag{Name: "pretty-log", Usage: "human-readable console logging instead of JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := websocket.NewLogger(nil, 0, cmd.Bool("pretty-log"))
			hub := websocket.NewHub(logger)
			go hub.Run()
			defer hub.Close() //nolint:errcheck // best effort on process shutdown

			mux := http.NewServeMux()
			mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
				upgraded, err := websocket.Upgrade(w, r, websocket.UpgradeOptions{
					CheckOrigin: websocket.CheckSameOrigin,
				})
				if err != nil {
					logger.Warn().Err(err).Msg("handshake failed")
					return
				}

				conn := websocket.NewConn(upgraded.WS)
				hub.Register(conn)
				logger.Info().Stringer("conn_id", conn.ID).Msg("client connected")

				go func() {
					defer hub.Unregister(conn)
					for {
						msgType, data, err := conn.Read(r.Context())
						if err != nil {
							logger.Info().Stringer("conn_id", conn.ID).Err(err).Msg("client disconnected")
							return
						}
						switch msgType {
						case websocket.TextMessage:
							hub.BroadcastText(string(data))
						case websocket.BinaryMessage:
							hub.Broadcast(data)
						case websocket.CloseMessage:
							logger.Info().Stringer("conn_id", conn.ID).Msg("client closed connection")
							return
						}
					}
				}()
			})

			addr := cmd.String("addr")
			logger.Info().Str("addr", addr).Msg("listening")
			return http.ListenAndServe(addr, mux) //nolint:gosec // demo binary, no deadlines needed
		},
	}
}

func clientCommand() *cli.Command {
	return &cli.Command{
		Name:      "client",
		Usage:     "connect to a wtxecho server, send one message, print what comes back",
		ArgsUsage: "<ws-url> <message>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() < 2 {
				return fmt.Errorf("usage: wtxecho client <ws-url> <message>")
			}
			url := cmd.Args().Get(0)
			message := cmd.Args().Get(1)

			dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			ws, err := websocket.Dial(dialCtx, url)
			if err != nil {
				return fmt.Errorf("dial: %w", err)
			}
			conn := websocket.NewConn(ws)
			defer conn.Close(ctx) //nolint:errcheck // best effort

			if err := conn.WriteText(ctx, message); err != nil {
				return fmt.Errorf("write: %w", err)
			}

			reply, err := conn.ReadText(ctx)
			if err != nil {
				return fmt.Errorf("read: %w", err)
			}
			fmt.Println(reply)
			return nil
		},
	}
}
