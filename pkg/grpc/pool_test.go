package grpc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestPool_ReusesConnection(t *testing.T) {
	p := NewPool()
	t.Cleanup(func() { _ = p.Close() })

	a, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
	b, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := p.GetConnection("localhost:50052")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, p.Len())
}

func TestPool_ConcurrentGetCreatesOne(t *testing.T) {
	p := NewPool()
	t.Cleanup(func() { _ = p.Close() })

	var wg sync.WaitGroup
	conns := make([]*grpc.ClientConn, 50)
	for i := range conns {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := p.GetConnection("localhost:50051")
			assert.NoError(t, err)
			conns[i] = conn
		}()
	}
	wg.Wait()

	for _, conn := range conns {
		assert.Same(t, conns[0], conn)
	}
	assert.Equal(t, 1, p.Len())
}

func TestPool_ReplacesShutdownConnection(t *testing.T) {
	p := NewPool()
	t.Cleanup(func() { _ = p.Close() })

	first, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestPool_Close(t *testing.T) {
	noop := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		return invoker(ctx, method, req, reply, cc, opts...)
	}
	p := NewPool(WithInterceptor(noop), WithDialOptions(grpc.WithDefaultCallOptions(grpc.CallContentSubtype("json"))))

	_, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
	require.NoError(t, p.Close())
	assert.Equal(t, 0, p.Len())
}

func TestPool_WithKeepalive(t *testing.T) {
	p := NewPool()
	assert.Equal(t, 10*time.Second, p.keepalive.Time)
	assert.True(t, p.keepalive.PermitWithoutStream)

	p = NewPool(WithKeepalive(30*time.Second, 3*time.Second))
	assert.Equal(t, 30*time.Second, p.keepalive.Time)
	assert.Equal(t, 3*time.Second, p.keepalive.Timeout)
	assert.True(t, p.keepalive.PermitWithoutStream)

	conn, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
	assert.NotNil(t, conn)
	require.NoError(t, p.Close())
}
