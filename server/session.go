package server

import "github.com/google/uuid"

// SessionID 服务端为每条连接生成的会话标识，与玩家自报的 id 无关
type SessionID string

// NewSessionID 生成一个随机会话标识
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// Sender 会话的出站通道。Enqueue 永不阻塞，队列满了就丢帧
type Sender interface {
	Enqueue(data []byte)
	Close()
}

// Session 一条连接的服务端视角：会话标识、出站通道、以及 join 之后
// 才会出现的玩家实体。未 join 的会话 Player 为 nil，不进名单
type Session struct {
	ID      SessionID
	Channel Sender
	Player  *Player
}

// sessionTable 协调者私有的会话表，只在单线程队列里读写
type sessionTable map[SessionID]*Session

// players 已入场玩家的实体列表，遍历顺序不保证
func (st sessionTable) players() []*Player {
	out := make([]*Player, 0, len(st))
	for _, s := range st {
		if s.Player != nil {
			out = append(out, s.Player)
		}
	}
	return out
}

// snapshots 已入场玩家的对外快照。空表也返回非 nil 切片，
// 序列化成 [] 而不是 null
func (st sessionTable) snapshots() []PlayerState {
	out := make([]PlayerState, 0, len(st))
	for _, s := range st {
		if s.Player != nil {
			out = append(out, s.Player.Snapshot())
		}
	}
	return out
}
