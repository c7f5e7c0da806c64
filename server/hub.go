package server

import (
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"
)

// inboxDepth 协调者收件箱容量。写端阻塞而不丢弃，保证消息不丢、顺序不乱
const inboxDepth = 256

// command 协调者收件箱里流转的一条事件。连接、断开、入站消息、
// 计时器 tick、延迟冲刷与管理口操作都走同一条队列，严格按到达顺序处理
type command interface {
	cmd()
}

type connectCmd struct{ sess *Session }

type disconnectCmd struct{ sid SessionID }

type inboundCmd struct {
	sid  SessionID
	data []byte
}

type timerTickCmd struct{ gen int }

type flushCmd struct{}

type adminGetCmd struct{ reply chan Tuning }

type adminSetCmd struct {
	patch TuningPatch
	reply chan Tuning
}

func (connectCmd) cmd()    {}
func (disconnectCmd) cmd() {}
func (inboundCmd) cmd()    {}
func (timerTickCmd) cmd()  {}
func (flushCmd) cmd()      {}
func (adminGetCmd) cmd()   {}
func (adminSetCmd) cmd()   {}

// Hub 单线程协调者：独占会话表、计时器、放置引擎与广播器，
// 一次只处理一条事件，处理完才取下一条，因此内部状态不需要锁。
// 计时器到期和延迟冲刷也以事件形式回投收件箱，与玩家消息排同一个队
type Hub struct {
	inbox chan command
	quit  chan struct{}

	sessions sessionTable
	timer    *RoundTimer
	placer   *Placer
	caster   *Broadcaster
	sched    *Scheduler
	metrics  *Metrics
}

// NewHub 生产装配：真实时钟 + 时间种子随机源
func NewHub(cfg Config) *Hub {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return newHub(cfg, clockwork.NewRealClock(), rng)
}

// newHub 测试装配入口：时钟与随机源都可注入
func newHub(cfg Config, clock clockwork.Clock, rng *rand.Rand) *Hub {
	h := &Hub{
		inbox:    make(chan command, inboxDepth),
		quit:     make(chan struct{}),
		sessions: make(sessionTable),
		sched:    NewScheduler(clock),
		metrics:  &Metrics{},
	}
	h.placer = NewPlacer(rng, cfg.Tuning.SpawnAttempts, h.metrics)
	h.caster = NewBroadcaster(
		h.sched,
		time.Duration(cfg.Tuning.BroadcastGapMs)*time.Millisecond,
		h.metrics,
		h.fanout,
		h.rosterFrame,
		func() { h.inbox <- flushCmd{} },
	)
	h.timer = NewRoundTimer(
		h.sched,
		cfg.Tuning.RoundSeconds,
		h.metrics,
		h.emitTimer,
		func(gen int) { h.inbox <- timerTickCmd{gen} },
	)
	return h
}

// Run 事件循环。阻塞运行直到 Stop，被调用方通常放在独立 goroutine 里
func (h *Hub) Run() {
	Log.Infof("hub loop started")
	for {
		select {
		case c := <-h.inbox:
			h.handle(c)
		case <-h.quit:
			Log.Infof("hub loop exited")
			return
		}
	}
}

// Stop 结束事件循环。不排空收件箱，也不等在线连接收尾
func (h *Hub) Stop() {
	close(h.quit)
}

func (h *Hub) handle(c command) {
	start := time.Now()
	switch c := c.(type) {
	case connectCmd:
		h.handleConnect(c.sess)
	case disconnectCmd:
		h.handleDisconnect(c.sid)
	case inboundCmd:
		h.handleInbound(c.sid, c.data)
	case timerTickCmd:
		h.timer.Tick(c.gen)
	case flushCmd:
		h.caster.Flush()
	case adminGetCmd:
		c.reply <- h.currentTuning()
	case adminSetCmd:
		h.applyTuning(c.patch)
		c.reply <- h.currentTuning()
	}
	h.metrics.AddDispatch(time.Since(start).Nanoseconds())
}

// handleConnect 登记新会话。此时还没有玩家实体，不广播
func (h *Hub) handleConnect(sess *Session) {
	h.sessions[sess.ID] = sess
	h.metrics.AddSession()
	Log.Debugf("session %s connected", sess.ID)
}

// handleDisconnect 摘除会话并关闭出站通道。玩家记录随会话一起永久消失，
// 之后同一客户端再来按全新玩家对待。名单广播无条件发一次
func (h *Hub) handleDisconnect(sid SessionID) {
	sess, ok := h.sessions[sid]
	if !ok {
		return
	}
	delete(h.sessions, sid)
	sess.Channel.Close()
	h.metrics.RemoveSession()
	h.metrics.IncLeaves()
	Log.Debugf("session %s disconnected", sid)
	h.broadcastRoster(MsgPlayersUpdate)
}

// handleInbound 解码一条入站消息并分发。解码失败记连接级诊断日志后丢弃；
// 未知类型静默忽略；未登记的会话发来的消息同样丢弃
func (h *Hub) handleInbound(sid SessionID, data []byte) {
	msg, err := DecodeInbound(data)
	if err != nil {
		h.metrics.IncDecodeErrors()
		Log.Warnf("session %s: drop undecodable message: %v", sid, err)
		return
	}
	if msg == nil {
		h.metrics.IncUnknownTypes()
		return
	}
	sess, ok := h.sessions[sid]
	if !ok {
		return
	}

	switch m := msg.(type) {
	case JoinMsg:
		h.handleJoin(sess, m)
	case GameStartMsg:
		h.timer.Start()
	case GameStopMsg:
		h.timer.Stop()
	case GenderMsg:
		h.handleGender(m)
	case MoveMsg:
		h.handleMove(sess, m)
	case InfectMsg:
		h.handleInfect(m)
	case AnswerCorrectMsg:
		h.handleAnswerCorrect()
	case FeedbackMsg:
		h.handleFeedback(m)
	}
}

// handleJoin 入场：按感染态向放置引擎要出生点，挂到会话上，立即广播
// 全量名单，再单发一份计时器快照给新人。同一会话重复 join 视为换人
func (h *Hub) handleJoin(sess *Session, m JoinMsg) {
	p := &Player{
		ID:         PlayerID(m.Player.ID),
		Name:       m.Player.Name,
		Gender:     m.Player.Gender,
		IsInfected: m.Player.IsInfected,
	}
	p.X, p.Y = h.placer.Place(p.IsInfected, h.sessions.players())

	if sess.Player != nil {
		Log.Debugf("session %s rejoined as %s, replacing %s", sess.ID, p.ID, sess.Player.ID)
	}
	sess.Player = p
	h.metrics.IncJoins()
	Log.Infof("player %s joined at (%.1f, %.1f), infected=%v", p.ID, p.X, p.Y, p.IsInfected)

	h.broadcastRoster(MsgPlayersUpdate)
	h.sendTo(sess, MsgTimerUpdate, h.timer.Snapshot())
}

// handleMove 位移：先加位移并夹回场内，再套用可选的感染态覆写，
// 然后跑碰撞检测，命中就暂停计时器，最后请求一次节流名单广播
func (h *Hub) handleMove(sess *Session, m MoveMsg) {
	p := sess.Player
	if p == nil {
		return
	}
	p.X = clamp(p.X+m.DX, 0, ArenaWidth-PlayerSize)
	p.Y = clamp(p.Y+m.DY, 0, ArenaHeight-PlayerSize)
	if m.IsInfected != nil {
		p.IsInfected = *m.IsInfected
	}
	if DetectCollisions(p, h.sessions.players()) {
		h.metrics.IncCollisions()
		Log.Debugf("player %s collided with %s", p.ID, p.CollidingWith)
		h.timer.Pause()
	}
	h.caster.RequestUpdate()
}

// handleGender 改性别：回合进行中一律忽略。按 id 线性扫描，所有同 id
// 的记录一起改（自报 id 不保证唯一，这是有意为之），完了立即广播
func (h *Hub) handleGender(m GenderMsg) {
	if h.timer.Running {
		return
	}
	for _, p := range h.sessions.players() {
		if p.ID == PlayerID(m.PlayerID) {
			p.Gender = m.Gender
		}
	}
	h.broadcastRoster(MsgPlayersUpdate)
}

// handleInfect 感染：按 id 扫描标记，随后全员重新落位（感染者先占
// 中心区，健康者再避开所有人），立即广播重置名单，并恢复计时器
func (h *Hub) handleInfect(m InfectMsg) {
	for _, p := range h.sessions.players() {
		if p.ID == PlayerID(m.PlayerID) {
			p.IsInfected = true
			h.metrics.IncInfections()
			Log.Infof("player %s infected", p.ID)
		}
	}
	h.placer.ResetAll(h.sessions.players())
	h.broadcastRoster(MsgPlayersReset)
	h.timer.Resume()
}

// handleAnswerCorrect 答对题：不改感染态，只做全员重新落位 + 重置名单
// 广播 + 恢复计时器
func (h *Hub) handleAnswerCorrect() {
	h.placer.ResetAll(h.sessions.players())
	h.broadcastRoster(MsgPlayersReset)
	h.timer.Resume()
}

// handleFeedback 答题反馈：原样转播给所有人，不碰任何状态
func (h *Hub) handleFeedback(m FeedbackMsg) {
	data, err := EncodeEnvelope(MsgAnswerFeedback, m.Raw)
	if err != nil {
		Log.Errorf("encode feedback relay failed: %v", err)
		return
	}
	h.caster.Immediate(data)
}

// broadcastRoster 立即路径发一帧全量名单，msgType 区分常规更新与重置
func (h *Hub) broadcastRoster(msgType string) {
	data, err := EncodeEnvelope(msgType, h.sessions.snapshots())
	if err != nil {
		Log.Errorf("encode roster broadcast failed: %v", err)
		return
	}
	h.caster.Immediate(data)
}

// rosterFrame 节流路径的名单取帧回调，发送那一刻才编码，天然带最新状态
func (h *Hub) rosterFrame() ([]byte, error) {
	return EncodeEnvelope(MsgPlayersUpdate, h.sessions.snapshots())
}

// emitTimer 计时器快照走立即路径广播
func (h *Hub) emitTimer(ts TimerState) {
	data, err := EncodeEnvelope(MsgTimerUpdate, ts)
	if err != nil {
		Log.Errorf("encode timer broadcast failed: %v", err)
		return
	}
	h.caster.Immediate(data)
}

// sendTo 单发一条消息给指定会话，不影响广播节流窗口
func (h *Hub) sendTo(sess *Session, msgType string, payload any) {
	data, err := EncodeEnvelope(msgType, payload)
	if err != nil {
		Log.Errorf("encode unicast %s failed: %v", msgType, err)
		return
	}
	sess.Channel.Enqueue(data)
}

// fanout 把一帧数据投递给所有会话的出站通道。投递不阻塞也不确认
func (h *Hub) fanout(data []byte) {
	for _, s := range h.sessions {
		s.Channel.Enqueue(data)
	}
}

func (h *Hub) currentTuning() Tuning {
	return Tuning{
		BroadcastGapMs: int(h.caster.Gap().Milliseconds()),
		RoundSeconds:   h.timer.RoundSeconds(),
		SpawnAttempts:  h.placer.Attempts(),
	}
}

func (h *Hub) applyTuning(p TuningPatch) {
	if p.BroadcastGapMs != nil {
		h.caster.SetGap(time.Duration(*p.BroadcastGapMs) * time.Millisecond)
		Log.Infof("tuning: broadcast gap -> %dms", *p.BroadcastGapMs)
	}
	if p.RoundSeconds != nil {
		h.timer.SetRoundSeconds(*p.RoundSeconds)
		Log.Infof("tuning: round seconds -> %d", *p.RoundSeconds)
	}
	if p.SpawnAttempts != nil {
		h.placer.SetAttempts(*p.SpawnAttempts)
		Log.Infof("tuning: spawn attempts -> %d", *p.SpawnAttempts)
	}
}
