package server

import (
	"sync/atomic"
)

// Metrics 记录服务运行期的关键指标（用于监控与调试）
type Metrics struct {
	Dispatched          int64 // 协调者处理过的消息总数
	DecodeErrors        int64 // 入站解码失败数
	UnknownTypes        int64 // 未知类型而被忽略的消息数
	BroadcastsSent      int64 // 实际发出的广播帧数
	BroadcastsCoalesced int64 // 被并入在途冲刷的更新请求数
	FlushesScheduled    int64 // 安排过的延迟冲刷数
	PlacementFallbacks  int64 // 采样耗尽后使用兜底出生点的次数
	Collisions          int64 // 判定成立的碰撞次数
	Infections          int64 // 感染标记变更次数
	RoundsStarted       int64 // 回合启动次数
	RoundsExpired       int64 // 回合自然走完的次数
	Joins               int64 // 入场玩家数
	Leaves              int64 // 离场会话数
	Sessions            int64 // 当前在线会话数（计量值）
	TotalDispatchNs     int64 // 消息处理累计耗时（纳秒）
}

func (m *Metrics) IncDecodeErrors()        { atomic.AddInt64(&m.DecodeErrors, 1) }
func (m *Metrics) IncUnknownTypes()        { atomic.AddInt64(&m.UnknownTypes, 1) }
func (m *Metrics) IncBroadcastsSent()      { atomic.AddInt64(&m.BroadcastsSent, 1) }
func (m *Metrics) IncBroadcastsCoalesced() { atomic.AddInt64(&m.BroadcastsCoalesced, 1) }
func (m *Metrics) IncFlushesScheduled()    { atomic.AddInt64(&m.FlushesScheduled, 1) }
func (m *Metrics) IncPlacementFallbacks()  { atomic.AddInt64(&m.PlacementFallbacks, 1) }
func (m *Metrics) IncCollisions()          { atomic.AddInt64(&m.Collisions, 1) }
func (m *Metrics) IncInfections()          { atomic.AddInt64(&m.Infections, 1) }
func (m *Metrics) IncRoundsStarted()       { atomic.AddInt64(&m.RoundsStarted, 1) }
func (m *Metrics) IncRoundsExpired()       { atomic.AddInt64(&m.RoundsExpired, 1) }
func (m *Metrics) IncJoins()               { atomic.AddInt64(&m.Joins, 1) }
func (m *Metrics) IncLeaves()              { atomic.AddInt64(&m.Leaves, 1) }
func (m *Metrics) AddSession()             { atomic.AddInt64(&m.Sessions, 1) }
func (m *Metrics) RemoveSession()          { atomic.AddInt64(&m.Sessions, -1) }
func (m *Metrics) AddDispatch(ns int64) {
	atomic.AddInt64(&m.Dispatched, 1)
	atomic.AddInt64(&m.TotalDispatchNs, ns)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	dispatched := atomic.LoadInt64(&m.Dispatched)
	total := atomic.LoadInt64(&m.TotalDispatchNs)
	var avgUs float64
	if dispatched > 0 {
		avgUs = float64(total) / float64(dispatched) / 1e3
	}
	return map[string]any{
		"dispatched":           dispatched,
		"decode_errors":        atomic.LoadInt64(&m.DecodeErrors),
		"unknown_types":        atomic.LoadInt64(&m.UnknownTypes),
		"broadcasts_sent":      atomic.LoadInt64(&m.BroadcastsSent),
		"broadcasts_coalesced": atomic.LoadInt64(&m.BroadcastsCoalesced),
		"flushes_scheduled":    atomic.LoadInt64(&m.FlushesScheduled),
		"placement_fallbacks":  atomic.LoadInt64(&m.PlacementFallbacks),
		"collisions":           atomic.LoadInt64(&m.Collisions),
		"infections":           atomic.LoadInt64(&m.Infections),
		"rounds_started":       atomic.LoadInt64(&m.RoundsStarted),
		"rounds_expired":       atomic.LoadInt64(&m.RoundsExpired),
		"joins":                atomic.LoadInt64(&m.Joins),
		"leaves":               atomic.LoadInt64(&m.Leaves),
		"sessions":             atomic.LoadInt64(&m.Sessions),
		"avg_dispatch_us":      avgUs,
	}
}
