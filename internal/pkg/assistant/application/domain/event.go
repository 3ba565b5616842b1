package assistant

// Webhook payload shapes for the Instagram messaging platform. Only the
// fields the assistant consumes are modeled; everything else in the payload
// is carried opaquely inside the queued raw event.

type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []Messaging `json:"messaging"`
}

// Messaging is one inbound event: a message (text and/or attachments) or a
// reaction from an operator.
type Messaging struct {
	Sender    Principal     `json:"sender"`
	Recipient Principal     `json:"recipient"`
	Timestamp int64         `json:"timestamp,omitempty"`
	Message   *EventMessage `json:"message,omitempty"`
	Reaction  *Reaction     `json:"reaction,omitempty"`
}

type Principal struct {
	ID string `json:"id"`
}

type EventMessage struct {
	MID         string       `json:"mid,omitempty"`
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

const AttachmentTypeImage = "image"

type Attachment struct {
	Type    string            `json:"type"`
	Payload AttachmentPayload `json:"payload"`
}

type AttachmentPayload struct {
	URL string `json:"url"`
}

// Reaction is a human operator acting on a message; a designated emoji from
// the studio account mutes the automated assistant for the conversation.
type Reaction struct {
	MID    string `json:"mid,omitempty"`
	Action string `json:"action,omitempty"`
	Emoji  string `json:"emoji,omitempty"`
}
