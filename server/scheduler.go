package server

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler 把"延时执行一段回调"收敛成带显式取消的任务句柄，
// 取代用置空共享变量表示"没有定时器在等"的写法。时钟可注入，
// 测试用 clockwork 假时钟推进时间而不真睡
type Scheduler struct {
	clock clockwork.Clock
}

func NewScheduler(clock clockwork.Clock) *Scheduler {
	return &Scheduler{clock: clock}
}

// Now 当前时钟读数
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// Schedule 安排 d 之后执行 fn。fn 在调度协程上运行，只应做入队转投，
// 不要直接动共享状态
func (s *Scheduler) Schedule(d time.Duration, fn func()) *Task {
	t := &Task{
		timer: s.clock.NewTimer(d),
		stop:  make(chan struct{}),
	}
	go func() {
		select {
		case <-t.timer.Chan():
			fn()
		case <-t.stop:
		}
	}()
	return t
}

// Task 一次性的延时任务句柄
type Task struct {
	timer clockwork.Timer
	stop  chan struct{}
	once  sync.Once
}

// Cancel 取消任务；已触发或已取消时调用无副作用。
// Stop 失败说明定时器已走到，按 time.Timer 文档的套路排空通道
func (t *Task) Cancel() {
	if !t.timer.Stop() {
		select {
		case <-t.timer.Chan():
		default:
		}
	}
	t.once.Do(func() { close(t.stop) })
}
