package server

import "time"

// DefaultRoundSeconds 每回合倒计时的默认秒数
const DefaultRoundSeconds = 20

// roundTickInterval 倒计时步进间隔
const roundTickInterval = time.Second

// RoundTimer 回合倒计时状态机。全进程只有一个实例在生产装配里运转，
// 但它不是包级单例：由协调者持有并注入，测试可并行建多个互不干扰。
// 所有方法都只允许在协调者的单线程队列里调用
type RoundTimer struct {
	Counter int
	Running bool
	Paused  bool

	seconds int
	gen     int
	pending *Task

	sched   *Scheduler
	metrics *Metrics

	// emit 把计时器快照走立即路径广播出去
	emit func(TimerState)
	// enqueue 把到期的 tick 转投回协调者队列，带上代号以便识别过期 tick
	enqueue func(gen int)
}

func NewRoundTimer(sched *Scheduler, seconds int, m *Metrics, emit func(TimerState), enqueue func(gen int)) *RoundTimer {
	return &RoundTimer{
		Counter: seconds,
		seconds: seconds,
		sched:   sched,
		metrics: m,
		emit:    emit,
		enqueue: enqueue,
	}
}

// Snapshot 当前对外快照
func (t *RoundTimer) Snapshot() TimerState {
	return TimerState{Timer: t.Counter, Running: t.Running, Paused: t.Paused}
}

// Start 开始回合：已在跑则无事发生；否则起跑并立刻广播一次快照
func (t *RoundTimer) Start() {
	if t.Running {
		return
	}
	t.Running = true
	t.Paused = false
	t.metrics.IncRoundsStarted()
	t.arm()
	t.emit(t.Snapshot())
}

// Stop 外部停止：撤掉在途 tick，强制回到初始状态并广播
func (t *RoundTimer) Stop() {
	t.disarm()
	t.Counter = t.seconds
	t.Running = false
	t.Paused = false
	t.emit(t.Snapshot())
}

// Pause 置暂停并无条件广播；tick 继续在摆，只是空转
func (t *RoundTimer) Pause() {
	t.Paused = true
	t.emit(t.Snapshot())
}

// Resume 解除暂停并无条件广播（即便本就没暂停）
func (t *RoundTimer) Resume() {
	t.Paused = false
	t.emit(t.Snapshot())
}

// Tick 处理一次到期的秒级 tick。gen 与当前安排不符说明该 tick 在
// 停止/重开之间已作废，直接丢弃。暂停期间照常续摆但不减数不广播；
// 减到 0 时先广播 0 值，再复位回初始状态补发一次
func (t *RoundTimer) Tick(gen int) {
	if !t.Running || gen != t.gen {
		return
	}
	if t.Paused {
		t.arm()
		return
	}

	t.Counter--
	t.emit(t.Snapshot())

	if t.Counter <= 0 {
		t.disarm()
		t.Counter = t.seconds
		t.Running = false
		t.Paused = false
		t.metrics.IncRoundsExpired()
		t.emit(t.Snapshot())
		return
	}
	t.arm()
}

// SetRoundSeconds 热调回合时长；回合没在跑时同步重置当前计数
func (t *RoundTimer) SetRoundSeconds(n int) {
	t.seconds = n
	if !t.Running {
		t.Counter = n
	}
}

// RoundSeconds 当前配置的回合时长
func (t *RoundTimer) RoundSeconds() int {
	return t.seconds
}

func (t *RoundTimer) arm() {
	t.gen++
	gen := t.gen
	t.pending = t.sched.Schedule(roundTickInterval, func() { t.enqueue(gen) })
}

func (t *RoundTimer) disarm() {
	if t.pending != nil {
		t.pending.Cancel()
		t.pending = nil
	}
	t.gen++
}
