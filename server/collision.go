package server

// 碰撞判定框。比放置用的 64×64 小一圈，贴合角色贴图的实际躯干
const (
	hitboxWidth  = 24.0
	hitboxHeight = 40.0
)

// DetectCollisions 用缩小判定框检测移动者与其余所有玩家的碰撞。
// 只有感染状态不同的两人才算碰撞；命中时双方互写 CollidingWith。
// 开扫前仅重置移动者自己的标记，静止一方的旧标记由它自己下次移动清理。
// 返回本次移动是否撞到任何人（调用方据此暂停回合计时，一次移动只暂停一次）
func DetectCollisions(mover *Player, all []*Player) bool {
	mover.CollidingWith = ""
	hit := false
	for _, other := range all {
		if other == mover {
			continue
		}
		if other.IsInfected == mover.IsInfected {
			continue
		}
		if mover.X < other.X+hitboxWidth && mover.X+hitboxWidth > other.X &&
			mover.Y < other.Y+hitboxHeight && mover.Y+hitboxHeight > other.Y {
			mover.CollidingWith = other.ID
			other.CollidingWith = mover.ID
			hit = true
		}
	}
	return hit
}
