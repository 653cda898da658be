package notify

import (
	"encoding/json"
	"fmt"

	"github.com/go-stomp/stomp/v3"

	"github.com/rmacdonaldsmith/lpar-forwarder/pkg/console"
)

// STOMP headers set by the HMC on every notification
const (
	headerNotificationType = "notification-type"
	headerObjectURI        = "object-uri"
	headerClass            = "class"
	headerName             = "name"
	headerDestination      = "destination"
	headerSubscription     = "subscription"
)

type osMessagesBody struct {
	Messages []osMessage `json:"os-messages"`
}

type osMessage struct {
	SequenceNumber int64  `json:"sequence-number"`
	MessageText    string `json:"message-text"`
}

// Decode turns the headers and body of a STOMP message into a notification.
// Only os-message bodies are parsed; other kinds carry headers only.
func Decode(header func(string) string, body []byte) (*console.Notification, error) {
	n := &console.Notification{
		Kind:         header(headerNotificationType),
		ObjectURI:    header(headerObjectURI),
		ObjectClass:  header(headerClass),
		ObjectName:   header(headerName),
		Destination:  header(headerDestination),
		Subscription: header(headerSubscription),
	}
	if n.Kind != console.KindOSMessage {
		return n, nil
	}

	var decoded osMessagesBody
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("invalid os-message body from %s: %w", n.ObjectURI, err)
	}
	n.Messages = make([]console.OSMessage, 0, len(decoded.Messages))
	for _, m := range decoded.Messages {
		n.Messages = append(n.Messages, console.OSMessage{SequenceNumber: m.SequenceNumber, Text: m.MessageText})
	}
	return n, nil
}

// decodeMessage decodes a message received on a subscription
func decodeMessage(msg *stomp.Message) (*console.Notification, error) {
	header := func(key string) string {
		if msg.Header == nil {
			return ""
		}
		return msg.Header.Get(key)
	}
	return Decode(header, msg.Body)
}
