package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/shandysiswandi/gotp/internal/pkg/stacktrace"
)

// dispatch runs handler with panic recovery and, when autoAck is set and the
// handler did not respond itself, acks or nacks based on its result.
func dispatch(ctx context.Context, driver string, handler Handler, msg Message, responded func() bool, autoAck bool) error {
	herr := callHandler(ctx, driver, handler, msg)
	if !autoAck || responded() {
		return herr
	}

	if herr == nil {
		return msg.Ack(ctx)
	}

	slog.WarnContext(ctx, "messaging handler failed, message nacked", "driver", driver, "msg_id", msg.ID(), "error", herr)
	return msg.Nack(ctx)
}

func callHandler(ctx context.Context, driver string, handler Handler, msg Message) (err error) {
	defer func() {
		rvr := recover()
		if rvr == nil {
			return
		}

		stack := debug.Stack()
		if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
			slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "panic", rvr, "stack", paths)
		} else {
			slog.ErrorContext(ctx, "panic in messaging handler", "driver", driver, "panic", rvr, "stack", string(stack))
		}
		err = fmt.Errorf("messaging: panic in %s handler: %v", driver, rvr)
	}()

	return handler(ctx, msg)
}
