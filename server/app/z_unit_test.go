package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// blockingComp 阻塞直到 Shutdown，或在 fail 非 nil 時立即返回該錯誤
type blockingComp struct {
	stop     chan struct{}
	fail     error
	shutdown atomic.Int32
}

func newBlockingComp(fail error) *blockingComp {
	return &blockingComp{stop: make(chan struct{}), fail: fail}
}

func (c *blockingComp) Run() error {
	if c.fail != nil {
		return c.fail
	}
	<-c.stop
	return nil
}

func (c *blockingComp) Shutdown(context.Context) error {
	if c.shutdown.Add(1) == 1 {
		close(c.stop)
	}
	return nil
}

func TestRunContextCancel(t *testing.T) {
	a, b := newBlockingComp(nil), newBlockingComp(nil)
	app := NewWith(a, b)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, app.RunContext(ctx))
	require.Equal(t, int32(1), a.shutdown.Load())
	require.Equal(t, int32(1), b.shutdown.Load())
}

func TestRunContextComponentError(t *testing.T) {
	boom := errors.New("listen failed")
	ok, bad := newBlockingComp(nil), newBlockingComp(boom)
	app := New()
	app.Register(ok)
	app.Register(bad)

	err := app.RunContext(context.Background())
	require.ErrorIs(t, err, boom)
	require.Equal(t, int32(1), ok.shutdown.Load())
}

func TestCloserOrder(t *testing.T) {
	var order []string
	first := newBlockingComp(nil)
	c := Closer(func() { order = append(order, "closer") })
	app := NewWith(first, c)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, app.RunContext(ctx))
	require.Equal(t, int32(1), first.shutdown.Load())
	require.Equal(t, []string{"closer"}, order)

	// 重複關閉只呼叫一次
	require.NoError(t, c.Shutdown(context.Background()))
	require.Len(t, order, 1)
	require.NoError(t, c.Run())
}
