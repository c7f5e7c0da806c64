package server

// 场地与判定尺寸（单位与客户端渲染一致，玩家以 64×64 方块绘制）
const (
	ArenaWidth  = 1200.0
	ArenaHeight = 600.0
	PlayerSize  = 64.0
)

// PlayerID 玩家自报的标识。服务端不强制唯一：按 id 修改属性时
// 会命中所有同 id 记录
type PlayerID string

// Player 房间内的玩家实体（服务端权威状态），由协调者单线程修改
type Player struct {
	ID         PlayerID
	X          float64
	Y          float64
	IsInfected bool
	Name       string
	Gender     string

	// CollidingWith 最近一次碰撞到的对方 id，空串表示无。
	// 只在该玩家自己移动或全场重置时刷新，静止一方可能短暂残留旧值
	CollidingWith PlayerID
}

// PlayerState 广播给客户端的玩家快照
type PlayerState struct {
	ID            string  `json:"id"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	IsInfected    bool    `json:"isInfected"`
	Name          string  `json:"name,omitempty"`
	Gender        string  `json:"gender,omitempty"`
	CollidingWith *string `json:"collidingWith"`
}

// Snapshot 转换为出站快照；CollidingWith 为空时序列化为 null
func (p *Player) Snapshot() PlayerState {
	s := PlayerState{
		ID:         string(p.ID),
		X:          p.X,
		Y:          p.Y,
		IsInfected: p.IsInfected,
		Name:       p.Name,
		Gender:     p.Gender,
	}
	if p.CollidingWith != "" {
		id := string(p.CollidingWith)
		s.CollidingWith = &id
	}
	return s
}

// clamp 越界裁剪到 [lo, hi]
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
