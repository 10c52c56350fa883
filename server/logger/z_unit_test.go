package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLogMode(t *testing.T) {
	for _, m := range []LogMode{ModeDev, ModeProd, ModeSilence} {
		got, err := ParseLogMode(strings.ToUpper(m.String()))
		require.NoError(t, err)
		require.Equal(t, m, got)
	}
	_, err := ParseLogMode("verbose")
	require.Error(t, err)
}

func TestAsyncHandlerDrainsOnClose(t *testing.T) {
	var buf bytes.Buffer
	ah := NewAsyncHandler(slog.NewTextHandler(&buf, nil), 64)
	log := slog.New(ah).With(slog.String("component", "sim"))

	for range 10 {
		log.Info("generation done")
	}
	ah.Close()

	require.Equal(t, 10, strings.Count(buf.String(), "generation done"))
	require.Equal(t, 10, strings.Count(buf.String(), "component=sim"))
	require.Equal(t, uint64(0), ah.Dropped())

	// Close 之後的 log 一律丟棄
	log.Info("late")
	require.Equal(t, uint64(1), ah.Dropped())
	require.NotContains(t, buf.String(), "late")
}

func TestAsyncHandlerDropsWhenFull(t *testing.T) {
	// 下游卡住時佇列塞滿，之後的紀錄計入 Dropped 而不阻塞呼叫端
	release := make(chan struct{})
	ah := NewAsyncHandler(blockingHandler{release: release}, 2)
	log := slog.New(ah)
	for range 10 {
		log.Info("x")
	}
	require.GreaterOrEqual(t, ah.Dropped(), uint64(7))
	require.LessOrEqual(t, ah.Pending(), 2)
	close(release)
	ah.Close()
	require.Equal(t, 0, ah.Pending())
	ah.Close()
}

func TestNewHandler(t *testing.T) {
	require.False(t, New(ModeSilence).Enabled(context.Background(), slog.LevelError))

	var buf bytes.Buffer
	slog.New(NewHandler(ModeProd, &buf)).Debug("hidden")
	slog.New(NewHandler(ModeProd, &buf)).Info("shown", slog.Int("n", 3))
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"shown"`)
	require.Contains(t, buf.String(), `"n":3`)

	buf.Reset()
	slog.New(NewHandler(ModeDev, &buf)).Debug("trace")
	require.Contains(t, buf.String(), "level=DEBUG")
}

// blockingHandler 在 release 關閉前卡住每一次 Handle
type blockingHandler struct{ release chan struct{} }

func (b blockingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (b blockingHandler) Handle(context.Context, slog.Record) error {
	<-b.release
	return nil
}
func (b blockingHandler) WithAttrs([]slog.Attr) slog.Handler { return b }
func (b blockingHandler) WithGroup(string) slog.Handler      { return b }
