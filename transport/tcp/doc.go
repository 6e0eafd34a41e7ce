// Package tcp serves the room protocol over raw TCP.
//
// Every connection carries newline-delimited JSON frames in both directions.
// Server runs the accept loop, enforces a connection limit and hands each
// accepted connection to a HandlerFunc on its own goroutine. Conn reads lines
// on the handler goroutine and queues writes for a writer goroutine, so a
// slow peer never blocks the caller of WriteFrame.
//
// Connections over the limit receive a single server-greet carrying an error
// and are closed.
//
//	srv := tcp.NewServer(":8999", tcp.WithMaxConnections(10), tcp.WithLogger(log))
//	err := srv.Serve(ctx, func(ctx context.Context, conn *tcp.Conn) error {
//		return rooms.ServeConn(ctx, conn)
//	})
package tcp
