package slack

// Block Kit shapes, limited to what the notification cards need. A message's
// actions section carries at most a handful of buttons; each button's value
// is an opaque string routed back on the interaction callback.

// Text is a Block Kit text object
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Markdown returns an mrkdwn text object
func Markdown(s string) Text {
	return Text{Type: "mrkdwn", Text: s}
}

// PlainText returns a plain_text text object
func PlainText(s string) Text {
	return Text{Type: "plain_text", Text: s}
}

// Button is an interactive button element
type Button struct {
	Type     string `json:"type"`
	Text     Text   `json:"text"`
	ActionID string `json:"action_id"`
	Value    string `json:"value"`
	Style    string `json:"style,omitempty"`
}

// NewButton creates a button element. style may be "", "primary" or "danger".
func NewButton(label, actionID, value, style string) Button {
	return Button{
		Type:     "button",
		Text:     PlainText(label),
		ActionID: actionID,
		Value:    value,
		Style:    style,
	}
}

// Block is a single layout block
type Block struct {
	Type     string        `json:"type"`
	Text     *Text         `json:"text,omitempty"`
	Elements []interface{} `json:"elements,omitempty"`
}

// Section returns a section block with mrkdwn text
func Section(md string) Block {
	t := Markdown(md)
	return Block{Type: "section", Text: &t}
}

// Context returns a context block of mrkdwn fragments
func Context(fragments ...string) Block {
	elements := make([]interface{}, 0, len(fragments))
	for _, f := range fragments {
		elements = append(elements, Markdown(f))
	}
	return Block{Type: "context", Elements: elements}
}

// Actions returns an actions block holding the given buttons
func Actions(buttons ...Button) Block {
	elements := make([]interface{}, 0, len(buttons))
	for _, b := range buttons {
		elements = append(elements, b)
	}
	return Block{Type: "actions", Elements: elements}
}
