package server

import "time"

// defaultBroadcastGap 两次名单广播之间的最小间隔
const defaultBroadcastGap = 50 * time.Millisecond

// Broadcaster 名单广播节流器。移动类高频更新走 RequestUpdate：距上次
// 发送不足间隔时只挂一个延迟冲刷，窗口内再多的请求都合并进同一次；
// 加入/离开/性别这类低频事件走 Immediate 直发。两条路径共享 lastSent，
// 直发也会把窗口往后推。只允许在协调者的单线程队列里调用
type Broadcaster struct {
	sched *Scheduler
	gap   time.Duration

	lastSent time.Time
	pending  *Task

	// fanout 把一帧编码好的数据发给所有会话
	fanout func([]byte)
	// snapshot 在真正发送的那一刻取当前名单编码，保证合并后发的是最新状态
	snapshot func() ([]byte, error)
	// enqueueFlush 把延迟冲刷转投回协调者队列
	enqueueFlush func()
	metrics      *Metrics
}

func NewBroadcaster(sched *Scheduler, gap time.Duration, m *Metrics, fanout func([]byte), snapshot func() ([]byte, error), enqueueFlush func()) *Broadcaster {
	return &Broadcaster{
		sched:        sched,
		gap:          gap,
		fanout:       fanout,
		snapshot:     snapshot,
		enqueueFlush: enqueueFlush,
		metrics:      m,
	}
}

// Immediate 绕过节流直接发送一帧已编码数据，并推后节流窗口
func (b *Broadcaster) Immediate(data []byte) {
	b.fanout(data)
	b.lastSent = b.sched.Now()
	b.metrics.IncBroadcastsSent()
}

// RequestUpdate 请求一次名单广播。窗口已过直接发；窗口未过且已有
// 在途冲刷则合并；否则按剩余时间挂一个延迟冲刷
func (b *Broadcaster) RequestUpdate() {
	now := b.sched.Now()
	elapsed := now.Sub(b.lastSent)
	if elapsed >= b.gap {
		b.sendRoster(now)
		return
	}
	if b.pending != nil {
		b.metrics.IncBroadcastsCoalesced()
		return
	}
	b.pending = b.sched.Schedule(b.gap-elapsed, b.enqueueFlush)
	b.metrics.IncFlushesScheduled()
}

// Flush 执行延迟冲刷。由协调者在收到冲刷消息时调用
func (b *Broadcaster) Flush() {
	b.pending = nil
	b.sendRoster(b.sched.Now())
}

// SetGap 热调节流间隔
func (b *Broadcaster) SetGap(gap time.Duration) {
	b.gap = gap
}

// Gap 当前节流间隔
func (b *Broadcaster) Gap() time.Duration {
	return b.gap
}

func (b *Broadcaster) sendRoster(now time.Time) {
	data, err := b.snapshot()
	if err != nil {
		Log.Errorf("encode roster broadcast failed: %v", err)
		return
	}
	b.fanout(data)
	b.lastSent = now
	b.metrics.IncBroadcastsSent()
}
