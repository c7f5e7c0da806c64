package server

import "math/rand"

// 出生点采样参数：感染者挤在场地中心的小矩形里，健康者贴四条边的安全带
const (
	spawnMargin      = 80.0
	centerZoneWidth  = 200.0
	centerZoneHeight = 150.0

	// DefaultSpawnAttempts 拒绝采样的默认尝试上限，超出后落到确定性兜底位置
	DefaultSpawnAttempts = 100
)

// Placer 出生点放置引擎。随机源由外部注入，测试可用固定种子复现采样序列
type Placer struct {
	rng      *rand.Rand
	attempts int
	metrics  *Metrics
}

func NewPlacer(rng *rand.Rand, attempts int, m *Metrics) *Placer {
	return &Placer{rng: rng, attempts: attempts, metrics: m}
}

// SetAttempts 热调采样次数上限
func (pl *Placer) SetAttempts(n int) {
	pl.attempts = n
}

// Attempts 当前采样次数上限
func (pl *Placer) Attempts() int {
	return pl.attempts
}

// Place 为一名玩家挑选与已落位者不重叠的出生点。采样失败达到上限时
// 退回固定兜底位置（可能与他人重叠），只告警不报错
func (pl *Placer) Place(infected bool, placed []*Player) (float64, float64) {
	for i := 0; i < pl.attempts; i++ {
		var x, y float64
		if infected {
			x, y = pl.sampleCenterZone()
		} else {
			x, y = pl.sampleEdgeBand()
		}
		if !overlapsAny(x, y, placed) {
			return x, y
		}
	}

	pl.metrics.IncPlacementFallbacks()
	if infected {
		Log.Warnf("spawn sampling exhausted after %d attempts, falling back to arena center (infected)", pl.attempts)
		return ArenaWidth/2 - PlayerSize/2, ArenaHeight/2 - PlayerSize/2
	}
	Log.Warnf("spawn sampling exhausted after %d attempts, falling back to margin corner (healthy)", pl.attempts)
	return spawnMargin, spawnMargin
}

// ResetAll 全场重新落位：感染者先互相竞争中心区，健康者随后避开所有已落位者。
// 两组共用同一份已落位列表，避免组间重叠；残留的碰撞标记一并清掉
func (pl *Placer) ResetAll(players []*Player) {
	placed := make([]*Player, 0, len(players))
	for _, p := range players {
		if p.IsInfected {
			p.X, p.Y = pl.Place(true, placed)
			p.CollidingWith = ""
			placed = append(placed, p)
		}
	}
	for _, p := range players {
		if !p.IsInfected {
			p.X, p.Y = pl.Place(false, placed)
			p.CollidingWith = ""
			placed = append(placed, p)
		}
	}
}

// sampleCenterZone 在场地中心 200×150 矩形内均匀取点
func (pl *Placer) sampleCenterZone() (float64, float64) {
	x := ArenaWidth/2 - centerZoneWidth/2 + pl.rng.Float64()*centerZoneWidth
	y := ArenaHeight/2 - centerZoneHeight/2 + pl.rng.Float64()*centerZoneHeight
	return x, y
}

// sampleEdgeBand 每次尝试独立等概率选一条边，再在 80 宽的边带内均匀取点。
// 沿边坐标限定在 [margin, 边长-margin-PlayerSize]，纵深方向收缩 PlayerSize，
// 保证整个方块落在边带（也即场地）之内
func (pl *Placer) sampleEdgeBand() (float64, float64) {
	depth := spawnMargin - PlayerSize
	switch pl.rng.Intn(4) {
	case 0: // 上
		return pl.alongEdge(ArenaWidth), pl.rng.Float64() * depth
	case 1: // 下
		return pl.alongEdge(ArenaWidth), ArenaHeight - spawnMargin + pl.rng.Float64()*depth
	case 2: // 左
		return pl.rng.Float64() * depth, pl.alongEdge(ArenaHeight)
	default: // 右
		return ArenaWidth - spawnMargin + pl.rng.Float64()*depth, pl.alongEdge(ArenaHeight)
	}
}

func (pl *Placer) alongEdge(dimension float64) float64 {
	return spawnMargin + pl.rng.Float64()*(dimension-2*spawnMargin-PlayerSize)
}

// overlapsAny 以完整 64×64 方块对所有已落位者做 AABB 相交检查
func overlapsAny(x, y float64, placed []*Player) bool {
	for _, p := range placed {
		if x < p.X+PlayerSize && x+PlayerSize > p.X &&
			y < p.Y+PlayerSize && y+PlayerSize > p.Y {
			return true
		}
	}
	return false
}
