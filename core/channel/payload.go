package channel

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/koscakluka/ema-voice/core/events"
)

const (
	eventAsk      = "ask"
	eventResponse = "response"
	eventSetName  = "set_name"
)

type askPayload struct {
	Text string `json:"text"`
}

type responsePayload struct {
	Msg *struct {
		Text          *string `json:"text"`
		URL           string  `json:"url"`
		URLAutoLaunch flag    `json:"url_autolaunch"`
		Silent        flag    `json:"silent"`
		CanRespond    flag    `json:"canRespond"`
	} `json:"msg"`
}

// flag is a JSON boolean that may also arrive as "true" or "false".
type flag bool

func (f *flag) UnmarshalJSON(data []byte) error {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}

	switch v := value.(type) {
	case nil:
		*f = false
	case bool:
		*f = flag(v)
	case string:
		switch {
		case strings.EqualFold(v, "true"):
			*f = true
		case strings.EqualFold(v, "false"):
			*f = false
		default:
			return fmt.Errorf("%q is not a boolean", v)
		}
	default:
		return fmt.Errorf("%s is not a boolean", data)
	}
	return nil
}

type setNamePayload struct {
	Name *string `json:"name"`
}

func decodeResponse(payload json.RawMessage) (events.Response, error) {
	var parsed responsePayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return events.Response{}, fmt.Errorf("%w: response: %v", ErrMalformedPayload, err)
	}
	if parsed.Msg == nil {
		return events.Response{}, fmt.Errorf("%w: response without msg", ErrMalformedPayload)
	}
	if parsed.Msg.Text == nil {
		return events.Response{}, fmt.Errorf("%w: response without text", ErrMalformedPayload)
	}

	return events.Response{
		Text:          *parsed.Msg.Text,
		URL:           parsed.Msg.URL,
		URLAutoLaunch: bool(parsed.Msg.URLAutoLaunch),
		Silent:        bool(parsed.Msg.Silent),
		CanRespond:    bool(parsed.Msg.CanRespond),
	}, nil
}

func decodeName(payload json.RawMessage) (string, error) {
	var parsed setNamePayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", fmt.Errorf("%w: set_name: %v", ErrMalformedPayload, err)
	}
	if parsed.Name == nil || strings.TrimSpace(*parsed.Name) == "" {
		return "", fmt.Errorf("%w: set_name without name", ErrMalformedPayload)
	}
	return strings.TrimSpace(*parsed.Name), nil
}
