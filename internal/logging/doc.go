// Package logging provides structured logging with OpenTelemetry integration.
//
// # Overview
//
// The package wraps Zap with:
//   - Custom Trace level (-2, below Debug)
//   - Dual output (stdout + OpenTelemetry)
//   - Automatic context field injection (trace_id, program, session, request)
//   - Encoder-level PII redaction (SIN, CRA business number, contact email)
//   - Level-aware sampling (errors never sampled)
//
// # Usage
//
// Create a logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg, otelProvider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx := logging.WithSessionID(ctx, sessionID)
//	logger.Info(ctx, "answers merged", zap.Int("turn", turn))
//
// Output includes automatic correlation:
//
//	{
//	  "ts": "2026-04-07T10:15:30Z",
//	  "level": "info",
//	  "msg": "answers merged",
//	  "trace_id": "abc123",
//	  "session.id": "6f3c...",
//	  "turn": 2
//	}
//
// # PII Redaction
//
// Submissions carry personal identifiers, so redaction happens at multiple
// layers:
//  1. Domain primitives (config.Secret type)
//  2. Encoder-level field name filtering (sin, cra_business_number, ...)
//  3. Encoder-level value pattern matching (nine-digit identifier shapes)
//
// Use helpers when a value must be acknowledged without exposure:
//
//	logger.Info(ctx, "identifier received",
//	    logging.RedactedString("sin", rawSIN))
//
// # Sampling
//
// Level-aware sampling prevents log floods:
//   - Trace: first 1 per second, drop rest
//   - Debug: first 10 per second, drop rest
//   - Info: first 100, then 1 every 10
//   - Warn: first 100, then 1 every 100
//   - Error+: never sampled
//
// Disable for debugging:
//
//	cfg.Sampling.Enabled = false
//
// # Testing
//
// Use TestLogger for test assertions:
//
//	tl := logging.NewTestLogger()
//	tl.Info(ctx, "test message", zap.String("key", "value"))
//	tl.AssertLogged(t, zapcore.InfoLevel, "test message")
//	tl.AssertNoPII(t)
//
// # Concurrency Safety
//
// Logger is safe for concurrent use. Child loggers (With, Named) are
// independent and do not affect parent or siblings.
package logging
