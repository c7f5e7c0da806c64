package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeJoin(t *testing.T) {
	msg, err := DecodeInbound([]byte(`{"type":"join","payload":{"player":{"id":"alice","name":"Alice","gender":"f","isInfected":true}}}`))
	require.NoError(t, err)
	join, ok := msg.(JoinMsg)
	require.True(t, ok)
	require.Equal(t, JoinProfile{ID: "alice", Name: "Alice", Gender: "f", IsInfected: true}, join.Player)
}

func TestDecodeMovePayloadIsPermissive(t *testing.T) {
	// 载荷整个缺失按零值处理
	msg, err := DecodeInbound([]byte(`{"type":"move"}`))
	require.NoError(t, err)
	move, ok := msg.(MoveMsg)
	require.True(t, ok)
	require.Zero(t, move.DX)
	require.Zero(t, move.DY)
	require.Nil(t, move.IsInfected)

	msg, err = DecodeInbound([]byte(`{"type":"move","payload":{"dx":1.5,"dy":-2,"isInfected":false}}`))
	require.NoError(t, err)
	move = msg.(MoveMsg)
	require.Equal(t, 1.5, move.DX)
	require.Equal(t, -2.0, move.DY)
	require.NotNil(t, move.IsInfected)
	require.False(t, *move.IsInfected)
}

func TestDecodeBareCommands(t *testing.T) {
	msg, err := DecodeInbound([]byte(`{"type":"game:start"}`))
	require.NoError(t, err)
	require.IsType(t, GameStartMsg{}, msg)

	msg, err = DecodeInbound([]byte(`{"type":"game:stop","payload":{}}`))
	require.NoError(t, err)
	require.IsType(t, GameStopMsg{}, msg)

	msg, err = DecodeInbound([]byte(`{"type":"answer:correct"}`))
	require.NoError(t, err)
	require.IsType(t, AnswerCorrectMsg{}, msg)
}

func TestDecodeUnknownTypeIsSilentlyNil(t *testing.T) {
	msg, err := DecodeInbound([]byte(`{"type":"mystery","payload":{"a":1}}`))
	require.NoError(t, err)
	require.Nil(t, msg)
}

func TestDecodeRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"bad envelope":            `not json at all`,
		"join without id":         `{"type":"join","payload":{"player":{"name":"x"}}}`,
		"join without player":     `{"type":"join","payload":{}}`,
		"gender without id":       `{"type":"player:gender","payload":{"gender":"f"}}`,
		"infect without id":       `{"type":"player:infect","payload":{}}`,
		"feedback without id":     `{"type":"answer:feedback","payload":{"isCorrect":true}}`,
		"move with array body":    `{"type":"move","payload":[1,2]}`,
		"gender with string body": `{"type":"player:gender","payload":"f"}`,
	}
	for name, raw := range cases {
		msg, err := DecodeInbound([]byte(raw))
		require.Error(t, err, name)
		require.Nil(t, msg, name)
	}
}

func TestDecodeFeedbackKeepsRawPayload(t *testing.T) {
	raw := `{"type":"answer:feedback","payload":{"playerId":"a","playerName":"Alice","isCorrect":true,"streak":3}}`
	msg, err := DecodeInbound([]byte(raw))
	require.NoError(t, err)
	fb, ok := msg.(FeedbackMsg)
	require.True(t, ok)
	require.Equal(t, "a", fb.PlayerID)
	require.Equal(t, "Alice", fb.PlayerName)
	require.True(t, fb.IsCorrect)

	// 原始载荷原封保留，转播时不丢未知字段
	out, err := EncodeEnvelope(MsgAnswerFeedback, fb.Raw)
	require.NoError(t, err)
	require.JSONEq(t, raw, string(out))
}

func TestEncodeEnvelopeShapes(t *testing.T) {
	out, err := EncodeEnvelope(MsgTimerUpdate, TimerState{Timer: 20})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"timer:update","payload":{"timer":20,"running":false,"paused":false}}`, string(out))

	// 空名单序列化成 []，不是 null
	out, err = EncodeEnvelope(MsgPlayersUpdate, sessionTable{}.snapshots())
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"players:update","payload":[]}`, string(out))
}

func TestPlayerSnapshotJSON(t *testing.T) {
	p := &Player{ID: "alice", X: 80, Y: 16, IsInfected: false}
	out, err := json.Marshal(p.Snapshot())
	require.NoError(t, err)
	// 没撞到人时 collidingWith 显式输出 null；空 name/gender 则省略
	require.JSONEq(t, `{"id":"alice","x":80,"y":16,"isInfected":false,"collidingWith":null}`, string(out))

	p.Name = "Alice"
	p.CollidingWith = "bob"
	out, err = json.Marshal(p.Snapshot())
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"alice","x":80,"y":16,"isInfected":false,"name":"Alice","collidingWith":"bob"}`, string(out))
}
