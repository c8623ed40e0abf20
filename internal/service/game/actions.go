package game

import "encoding/json"

type ActionType string

const (
	ActionBet   ActionType = "bet"
	ActionCheck ActionType = "check"
	ActionCall  ActionType = "call"
	ActionRaise ActionType = "raise"
	ActionFold  ActionType = "fold"
	ActionHit   ActionType = "hit"
	ActionStand ActionType = "stand"
	ActionJoin  ActionType = "join"
	ActionLeave ActionType = "leave"

	// Injected by the transport and scheduler only; never accepted from a
	// client payload.
	actionDisconnect ActionType = "__disconnect"
	actionReconnect  ActionType = "__reconnect"
	actionSubscribe  ActionType = "__subscribe"
	actionResume     ActionType = "__resume"
	actionDeal       ActionType = "__deal"
)

// Action is one unit of input to a session's serialized queue. Synthetic
// actions (timeouts, disconnect bookkeeping, forced leaves) travel the
// same queue as client actions, so queue order is the only arbiter.
type Action struct {
	ChannelID string          `json:"channelId"`
	PlayerID  int64           `json:"playerId"`
	Type      ActionType      `json:"actionType"`
	Payload   json.RawMessage `json:"payload"`
	ClientSeq int64           `json:"clientSeq"`

	synthetic bool
	epoch     uint64
	subID     string
	lastKnown int64
	reply     chan error
}

// ClientActionType reports whether t is part of the public action
// contract.
func ClientActionType(t ActionType) bool {
	switch t {
	case ActionBet, ActionCheck, ActionCall, ActionRaise, ActionFold,
		ActionHit, ActionStand, ActionJoin, ActionLeave:
		return true
	}
	return false
}

type joinPayload struct {
	BuyIn    int64  `json:"buyIn"`
	Nickname string `json:"nickname"`
}

type amountPayload struct {
	Amount int64 `json:"amount"`
}

// decodePayload tolerates empty payloads; callers validate the decoded
// values themselves.
func decodePayload(raw json.RawMessage, v interface{}) {
	if len(raw) == 0 {
		return
	}
	_ = json.Unmarshal(raw, v)
}
