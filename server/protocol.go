package server

import (
	"encoding/json"
	"fmt"
)

// 出入站消息类型（线上统一信封 {"type":..., "payload":...}）
const (
	MsgJoin           = "join"
	MsgGameStart      = "game:start"
	MsgGameStop       = "game:stop"
	MsgPlayerGender   = "player:gender"
	MsgMove           = "move"
	MsgPlayerInfect   = "player:infect"
	MsgAnswerCorrect  = "answer:correct"
	MsgAnswerFeedback = "answer:feedback"

	MsgPlayersUpdate = "players:update"
	MsgPlayersReset  = "players:reset"
	MsgTimerUpdate   = "timer:update"
)

// Envelope WebSocket 文本消息的统一信封
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound 入站消息的标签联合；DecodeInbound 在边界完成解码与必填校验，
// 处理器内部不再读取可能缺失的字段
type Inbound interface {
	inbound()
}

// JoinProfile join 消息携带的玩家资料
type JoinProfile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Gender     string `json:"gender"`
	IsInfected bool   `json:"isInfected"`
}

type JoinMsg struct {
	Player JoinProfile
}

type GameStartMsg struct{}

type GameStopMsg struct{}

type GenderMsg struct {
	PlayerID string `json:"playerId"`
	Gender   string `json:"gender"`
}

// MoveMsg 位移意图；IsInfected 缺省时保持原状态
type MoveMsg struct {
	DX         float64 `json:"dx"`
	DY         float64 `json:"dy"`
	IsInfected *bool   `json:"isInfected"`
}

type InfectMsg struct {
	PlayerID string `json:"playerId"`
}

type AnswerCorrectMsg struct{}

// FeedbackMsg 答题反馈。Raw 保留客户端原始载荷，转发时原样回放
type FeedbackMsg struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	IsCorrect  bool   `json:"isCorrect"`

	Raw json.RawMessage `json:"-"`
}

func (JoinMsg) inbound()          {}
func (GameStartMsg) inbound()     {}
func (GameStopMsg) inbound()      {}
func (GenderMsg) inbound()        {}
func (MoveMsg) inbound()          {}
func (InfectMsg) inbound()        {}
func (AnswerCorrectMsg) inbound() {}
func (FeedbackMsg) inbound()      {}

// DecodeInbound 解析一条入站消息。未知类型返回 (nil, nil)（上层静默忽略）；
// 信封或载荷不合法、必填字段缺失时返回错误，由上层记一条连接级诊断日志
func DecodeInbound(data []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("bad envelope: %w", err)
	}

	switch env.Type {
	case MsgJoin:
		var body struct {
			Player *JoinProfile `json:"player"`
		}
		if err := unmarshalPayload(env, &body); err != nil {
			return nil, err
		}
		if body.Player == nil || body.Player.ID == "" {
			return nil, fmt.Errorf("%s: missing player id", env.Type)
		}
		return JoinMsg{Player: *body.Player}, nil

	case MsgGameStart:
		return GameStartMsg{}, nil

	case MsgGameStop:
		return GameStopMsg{}, nil

	case MsgPlayerGender:
		var m GenderMsg
		if err := unmarshalPayload(env, &m); err != nil {
			return nil, err
		}
		if m.PlayerID == "" {
			return nil, fmt.Errorf("%s: missing playerId", env.Type)
		}
		return m, nil

	case MsgMove:
		var m MoveMsg
		if err := unmarshalPayload(env, &m); err != nil {
			return nil, err
		}
		return m, nil

	case MsgPlayerInfect:
		var m InfectMsg
		if err := unmarshalPayload(env, &m); err != nil {
			return nil, err
		}
		if m.PlayerID == "" {
			return nil, fmt.Errorf("%s: missing playerId", env.Type)
		}
		return m, nil

	case MsgAnswerCorrect:
		return AnswerCorrectMsg{}, nil

	case MsgAnswerFeedback:
		var m FeedbackMsg
		if err := unmarshalPayload(env, &m); err != nil {
			return nil, err
		}
		if m.PlayerID == "" {
			return nil, fmt.Errorf("%s: missing playerId", env.Type)
		}
		m.Raw = env.Payload
		return m, nil
	}

	return nil, nil
}

// unmarshalPayload 载荷缺失按空对象处理（字段读取保持宽松），格式错误才报错
func unmarshalPayload(env Envelope, dst any) error {
	if len(env.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Payload, dst); err != nil {
		return fmt.Errorf("%s: bad payload: %w", env.Type, err)
	}
	return nil
}

// EncodeEnvelope 序列化一条出站消息
func EncodeEnvelope(msgType string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msgType, err)
	}
	return json.Marshal(Envelope{Type: msgType, Payload: body})
}

// TimerState timer:update 的载荷
type TimerState struct {
	Timer   int  `json:"timer"`
	Running bool `json:"running"`
	Paused  bool `json:"paused"`
}
