package notify

import "context"

// Message is one outbound email. It is also the payload of the mail queue.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Sender interface {
	SendEmail(ctx context.Context, body, to, subject string) error
}
