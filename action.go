package studymcq

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ActionKind is what a button does when pressed.
type ActionKind int

const (
	ActAnswer ActionKind = iota + 1
	ActRetry
	ActShowSolution
	ActNext
	ActEnd
	ActEdit
	ActDelete
	ActConfirmDelete
	ActYes
	ActNo
	ActPickLabel
	ActCancel
	ActSetDaily
	ActSetTime
	ActSetChunk
	ActClearKnowledge
	ActClearQuestions
	ActClose
)

// actionCodes are kept short: Telegram limits callback data to 64 bytes.
var actionCodes = map[ActionKind]string{
	ActAnswer:         "ans",
	ActRetry:          "retry",
	ActShowSolution:   "sol",
	ActNext:           "next",
	ActEnd:            "end",
	ActEdit:           "edit",
	ActDelete:         "del",
	ActConfirmDelete:  "cdel",
	ActYes:            "yes",
	ActNo:             "no",
	ActPickLabel:      "pick",
	ActCancel:         "cancel",
	ActSetDaily:       "sdaily",
	ActSetTime:        "stime",
	ActSetChunk:       "schunk",
	ActClearKnowledge: "clrkb",
	ActClearQuestions: "clrqb",
	ActClose:          "close",
}

var actionKinds = func() map[string]ActionKind {
	m := make(map[string]ActionKind, len(actionCodes))
	for kind, code := range actionCodes {
		m[code] = kind
	}
	return m
}()

// Action is the typed payload behind a button.
type Action struct {
	Kind       ActionKind
	Label      string
	QuestionID int64
}

// Encode renders the action as "code:label:id".
func (a Action) Encode() string {
	return fmt.Sprintf("%s:%s:%d", actionCodes[a.Kind], a.Label, a.QuestionID)
}

// DecodeAction parses the output of Encode.
func DecodeAction(data string) (Action, error) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		return Action{}, fmt.Errorf("malformed action %q", data)
	}
	kind, ok := actionKinds[parts[0]]
	if !ok {
		return Action{}, fmt.Errorf("unknown action %q", parts[0])
	}
	if parts[1] != "" && !IsOptionLabel(parts[1]) {
		return Action{}, fmt.Errorf("invalid label in action %q", data)
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Action{}, fmt.Errorf("invalid question id in action %q: %w", data, err)
	}
	return Action{Kind: kind, Label: parts[1], QuestionID: id}, nil
}

// Button is one inline button.
type Button struct {
	Text   string
	Action Action
}

// MarshalJSON exposes the encoded action so web clients can post it back.
func (b Button) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Text   string `json:"text"`
		Action string `json:"action"`
	}{b.Text, b.Action.Encode()})
}

// Reply is one message for the transport to render.
type Reply struct {
	Text     string     `json:"text"`
	Markdown bool       `json:"markdown"`
	Buttons  [][]Button `json:"buttons,omitempty"`
}
