package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// TuningPatch 热调参数的部分更新载荷，nil 字段表示不改
type TuningPatch struct {
	BroadcastGapMs *int `json:"broadcastGapMs,omitempty"`
	RoundSeconds   *int `json:"roundSeconds,omitempty"`
	SpawnAttempts  *int `json:"spawnAttempts,omitempty"`
}

func (p TuningPatch) validate() error {
	if p.BroadcastGapMs != nil && *p.BroadcastGapMs <= 0 {
		return fmt.Errorf("broadcastGapMs must be positive, got %d", *p.BroadcastGapMs)
	}
	if p.RoundSeconds != nil && *p.RoundSeconds <= 0 {
		return fmt.Errorf("roundSeconds must be positive, got %d", *p.RoundSeconds)
	}
	if p.SpawnAttempts != nil && *p.SpawnAttempts <= 0 {
		return fmt.Errorf("spawnAttempts must be positive, got %d", *p.SpawnAttempts)
	}
	return nil
}

// HandleAdminConfig 提供热调参数的读取与更新（热更新基本规则）
// GET /admin/config  返回当前值
// POST /admin/config 以 JSON 载荷更新部分字段，返回更新后的全量值
// 读写都经协调者队列走一个来回，和游戏消息排同一个队，免锁
func (h *Hub) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		reply := make(chan Tuning, 1)
		h.inbox <- adminGetCmd{reply: reply}
		cur := <-reply
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cur)
		return
	case http.MethodPost:
		var patch TuningPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := patch.validate(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		reply := make(chan Tuning, 1)
		h.inbox <- adminSetCmd{patch: patch, reply: reply}
		cur := <-reply
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cur)
		Log.Infof("config updated: gap=%dms round=%ds attempts=%d",
			cur.BroadcastGapMs, cur.RoundSeconds, cur.SpawnAttempts)
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

// HandleMetrics 输出运行指标
// GET /metrics
func (h *Hub) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.metrics.Snapshot())
}
