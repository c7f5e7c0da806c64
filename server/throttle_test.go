package server

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

// throttleRig 假时钟上的广播节流测试台。延迟冲刷先落到 flush 通道，
// 由测试代码亲手调用 Flush，模拟协调者队列的转投
type throttleRig struct {
	clock   *clockwork.FakeClock
	b       *Broadcaster
	sent    [][]byte
	state   []byte
	flush   chan struct{}
	metrics *Metrics
}

func newThrottleRig() *throttleRig {
	rig := &throttleRig{
		clock:   clockwork.NewFakeClock(),
		state:   []byte(`"s0"`),
		flush:   make(chan struct{}, 4),
		metrics: &Metrics{},
	}
	rig.b = NewBroadcaster(
		NewScheduler(rig.clock),
		defaultBroadcastGap,
		rig.metrics,
		func(b []byte) { rig.sent = append(rig.sent, b) },
		func() ([]byte, error) { return rig.state, nil },
		func() { rig.flush <- struct{}{} },
	)
	return rig
}

func (r *throttleRig) awaitFlush(t *testing.T) {
	t.Helper()
	select {
	case <-r.flush:
		r.b.Flush()
	case <-time.After(2 * time.Second):
		t.Fatal("deferred flush never fired")
	}
}

func (r *throttleRig) noFlush(t *testing.T) {
	t.Helper()
	select {
	case <-r.flush:
		t.Fatal("flush fired too early")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestThrottleFirstRequestSendsImmediately(t *testing.T) {
	rig := newThrottleRig()
	rig.b.RequestUpdate()

	require.Equal(t, [][]byte{[]byte(`"s0"`)}, rig.sent)
	require.EqualValues(t, 1, rig.metrics.BroadcastsSent)
	require.Zero(t, rig.metrics.FlushesScheduled)
}

func TestThrottleCoalescesWithinGapAndSendsLatestState(t *testing.T) {
	rig := newThrottleRig()
	rig.b.RequestUpdate()

	// 窗口内的两次请求只换来一次发送，且带的是冲刷时刻的最新状态
	rig.state = []byte(`"s1"`)
	rig.b.RequestUpdate()
	rig.state = []byte(`"s2"`)
	rig.b.RequestUpdate()
	require.Len(t, rig.sent, 1)
	require.EqualValues(t, 1, rig.metrics.FlushesScheduled)
	require.EqualValues(t, 1, rig.metrics.BroadcastsCoalesced)

	rig.clock.Advance(defaultBroadcastGap)
	rig.awaitFlush(t)
	require.Equal(t, [][]byte{[]byte(`"s0"`), []byte(`"s2"`)}, rig.sent)
}

func TestThrottleSpacedRequestsBothSend(t *testing.T) {
	rig := newThrottleRig()
	rig.b.RequestUpdate()

	rig.clock.Advance(60 * time.Millisecond)
	rig.state = []byte(`"s1"`)
	rig.b.RequestUpdate()

	require.Equal(t, [][]byte{[]byte(`"s0"`), []byte(`"s1"`)}, rig.sent)
	require.Zero(t, rig.metrics.FlushesScheduled)
}

func TestThrottleExactGapBoundarySendsImmediately(t *testing.T) {
	rig := newThrottleRig()
	rig.b.RequestUpdate()

	// 恰好踩在窗口边上算窗口外：直发，不挂延迟冲刷
	rig.clock.Advance(defaultBroadcastGap)
	rig.state = []byte(`"s1"`)
	rig.b.RequestUpdate()

	require.Equal(t, [][]byte{[]byte(`"s0"`), []byte(`"s1"`)}, rig.sent)
	require.Zero(t, rig.metrics.FlushesScheduled)
	require.Zero(t, rig.metrics.BroadcastsCoalesced)
}

func TestThrottleSchedulesOnlyRemainingWait(t *testing.T) {
	rig := newThrottleRig()
	rig.b.RequestUpdate()

	rig.clock.Advance(30 * time.Millisecond)
	rig.b.RequestUpdate()

	// 距窗口关闭还剩 20ms，19ms 处不该冲刷，补上最后 1ms 才冲
	rig.clock.Advance(19 * time.Millisecond)
	rig.noFlush(t)
	rig.clock.Advance(time.Millisecond)
	rig.awaitFlush(t)
	require.Len(t, rig.sent, 2)
}

func TestThrottleImmediatePushesWindowButDeferredStillFires(t *testing.T) {
	rig := newThrottleRig()
	rig.b.RequestUpdate()
	rig.b.RequestUpdate()

	rig.clock.Advance(20 * time.Millisecond)
	rig.b.Immediate([]byte(`"evt"`))

	// 立即路径不撤销在途冲刷，到点后多发一帧无妨
	rig.clock.Advance(30 * time.Millisecond)
	rig.awaitFlush(t)
	require.Equal(t, [][]byte{[]byte(`"s0"`), []byte(`"evt"`), []byte(`"s0"`)}, rig.sent)
	require.EqualValues(t, 3, rig.metrics.BroadcastsSent)
}

func TestThrottleSetGap(t *testing.T) {
	rig := newThrottleRig()
	rig.b.SetGap(10 * time.Millisecond)
	require.Equal(t, 10*time.Millisecond, rig.b.Gap())

	rig.b.RequestUpdate()
	rig.b.RequestUpdate()
	rig.clock.Advance(10 * time.Millisecond)
	rig.awaitFlush(t)
	require.Len(t, rig.sent, 2)
}
