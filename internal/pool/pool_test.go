package pool

import (
    "context"
    "errors"
    "fmt"
    "sync/atomic"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestSettleAll_NeverExceedsLimit(t *testing.T) {
    const limit = 5
    var inFlight, peak int32
    inputs := make([]int, 40)
    for i := range inputs { inputs[i] = i }

    results := SettleAll(context.Background(), limit, inputs, func(_ context.Context, n int) (int, error) {
        cur := atomic.AddInt32(&inFlight, 1)
        for {
            p := atomic.LoadInt32(&peak)
            if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) { break }
        }
        time.Sleep(2 * time.Millisecond)
        atomic.AddInt32(&inFlight, -1)
        return n * 2, nil
    })

    require.Len(t, results, len(inputs))
    assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(limit))
    assert.Greater(t, atomic.LoadInt32(&peak), int32(1), "tasks should overlap")
    for i, r := range results {
        assert.NoError(t, r.Err)
        assert.Equal(t, i*2, r.Value)
    }
}

func TestSettleAll_FailureDoesNotCancelOthers(t *testing.T) {
    inputs := []string{"a", "b", "c", "d"}
    var calls int32
    results := SettleAll(context.Background(), 2, inputs, func(ctx context.Context, s string) (string, error) {
        atomic.AddInt32(&calls, 1)
        if s == "b" { return "", errors.New("upstream 500") }
        assert.NoError(t, ctx.Err())
        return s + s, nil
    })

    assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
    assert.False(t, results[1].OK())
    assert.Equal(t, []string{"aa", "", "cc", "dd"}, []string{results[0].Value, results[1].Value, results[2].Value, results[3].Value})
}

func TestSettleAll_RecoversPanics(t *testing.T) {
    results := SettleAll(context.Background(), 3, []int{1, 2, 3}, func(_ context.Context, n int) (int, error) {
        if n == 2 { panic("nil map") }
        return n, nil
    })
    var pe *PanicError
    require.ErrorAs(t, results[1].Err, &pe)
    assert.Equal(t, "nil map", pe.Value)
    assert.Equal(t, 3, results[2].Value)
}

func TestSettleAll_CancelledContextSettlesRemaining(t *testing.T) {
    ctx, cancel := context.WithCancel(context.Background())
    release := make(chan struct{})
    started := make(chan struct{}, 1)

    done := make(chan []Result[int])
    go func() {
        done <- SettleAll(ctx, 1, []int{0, 1, 2}, func(_ context.Context, n int) (int, error) {
            if n == 0 {
                started <- struct{}{}
                <-release
            }
            return n, nil
        })
    }()

    <-started
    cancel()
    close(release)
    results := <-done

    require.Len(t, results, 3)
    assert.NoError(t, results[0].Err)
    for _, r := range results[1:] { assert.ErrorIs(t, r.Err, context.Canceled) }
}

func TestValues_Empty(t *testing.T) {
    vals, failed := Values[int](nil)
    assert.Empty(t, vals)
    assert.Zero(t, failed)
    assert.Equal(t, "pool: task panicked: x", fmt.Sprint((&PanicError{Value: "x"}).Error()))
}
