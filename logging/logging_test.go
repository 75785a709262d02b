package logging

import (
	"context"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Warnw("unknown action", "ns", "a", "id", 3)
	logger.Sublogger("markers").Debug("added")

	test.That(t, logs.Len(), test.ShouldEqual, 2)
	entries := logs.All()
	test.That(t, entries[0].Level, test.ShouldEqual, zapcore.WarnLevel)
	test.That(t, entries[0].ContextMap()["ns"], test.ShouldEqual, "a")
	test.That(t, entries[1].LoggerName, test.ShouldContainSubstring, "markers")
}

func TestCDebugf(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)

	logger.CDebugf(context.Background(), "quiet %d", 1)
	test.That(t, logs.FilterLevelExact(zapcore.DebugLevel).Len(), test.ShouldEqual, 1)

	ctx := EnableDebugMode(context.Background(), "")
	test.That(t, IsDebugMode(ctx), test.ShouldBeTrue)
	test.That(t, GetName(ctx), test.ShouldNotBeEmpty)

	logger.CDebugw(ctx, "loud", "topic", "/map")
	loud := logs.FilterMessage("loud").All()
	test.That(t, loud, test.ShouldHaveLength, 1)
	test.That(t, loud[0].Level, test.ShouldEqual, zapcore.InfoLevel)
	test.That(t, loud[0].ContextMap()["debug_key"], test.ShouldEqual, GetName(ctx))
}
