// Package logging provides structured logging for the memory server.
//
// The package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Output to stderr and/or a log file, never stdout
//   - Automatic context field injection (trace_id, session, request)
//
// Stdout carries the MCP stdio protocol, so a log line written there would
// corrupt the stream. Config.Validate rejects configurations without a
// non-stdout sink.
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	ctx = logging.WithRequestID(ctx, uuid.NewString())
//	logger.Info(ctx, "conversation stored", zap.String("conversation_id", id))
//
// Components that only need a *zap.Logger receive logger.Underlying().
package logging
