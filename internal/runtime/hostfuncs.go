package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/risor-io/risor/object"
)

// collector accumulates the findings a rule reports during one run.
type collector struct {
	rule     string
	findings []Finding
}

// makeReportFn creates the report(code, message[, line]) builtin.
func makeReportFn(c *collector) *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 2 || len(args) > 3 {
			return object.Errorf("report: takes 2 or 3 arguments (%d given)", len(args))
		}
		code, err := toString(args[0])
		if err != nil {
			return object.Errorf("report: code: %v", err)
		}
		msg, err := toString(args[1])
		if err != nil {
			return object.Errorf("report: message: %v", err)
		}
		f := Finding{Rule: c.rule, Code: code, Message: msg}
		if len(args) == 3 {
			line, err := toInt64(args[2])
			if err != nil {
				return object.Errorf("report: line: %v", err)
			}
			f.Line = int(line)
		}
		c.findings = append(c.findings, f)
		return object.Nil
	})
}

func toInt64(obj object.Object) (int64, error) {
	if i, ok := obj.(*object.Int); ok {
		return i.Value(), nil
	}
	if f, ok := obj.(*object.Float); ok {
		return int64(f.Value()), nil
	}
	return 0, fmt.Errorf("expected int, got %s", obj.Type())
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg, "source", "rule")
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg, "source", "rule")
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg, "source", "rule")
}
