package policy

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/Adhikkesh/Erflog/interview"
)

// cursor is the policy position carried in the continuation token.
type cursor struct {
	Kind  interview.Kind `json:"k"`
	Stage int            `json:"s"`
	Asked int            `json:"a"`
	Turns int            `json:"t"`
}

func (c cursor) encode() (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode continuation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func decodeCursor(token string) (cursor, error) {
	var c cursor
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return c, fmt.Errorf("decode continuation token: %w", err)
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse continuation token: %w", err)
	}
	return c, nil
}

// advance moves past a finished stage and enforces the turn cap.
func (c cursor) advance(p Plan) cursor {
	c.Turns++
	if c.Stage < p.last() && c.Asked >= p.Stages[c.Stage].Questions {
		c.Stage++
		c.Asked = 0
	}
	if p.MaxTurns > 0 && c.Turns >= p.MaxTurns {
		c.Stage = p.last()
		c.Asked = 0
	}
	return c
}

// resume restores the cursor from the token, or rebuilds it from the stage
// name when the token is missing or belongs to another kind.
func resume(p Plan, token, stage string) (cursor, bool) {
	if token != "" {
		if c, err := decodeCursor(token); err == nil && c.Kind == p.Kind && c.Stage >= 0 && c.Stage <= p.last() {
			return c, true
		}
	}
	c := cursor{Kind: p.Kind}
	if i := p.StageIndex(stage); i >= 0 {
		c.Stage = i
		c.Asked = p.Stages[i].Questions
	}
	return c, false
}
