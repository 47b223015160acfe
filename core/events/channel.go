package events

import "strings"

const (
	// KindChannelConnected identifies an established dialogue connection.
	KindChannelConnected Kind = "channel.connected"
	// KindChannelDisconnected identifies a lost or closed dialogue connection.
	KindChannelDisconnected Kind = "channel.disconnected"
	// KindChannelResponse identifies a response from the dialogue service.
	KindChannelResponse Kind = "channel.response"
	// KindChannelNameAssigned identifies a name (wake word) assignment.
	KindChannelNameAssigned Kind = "channel.name_assigned"
)

// Response is the message the dialogue service sends back for a turn.
type Response struct {
	// Text is the spoken form of the response.
	Text          string `json:"text"`
	URL           string `json:"url,omitempty"`
	URLAutoLaunch bool   `json:"url_autolaunch,omitempty"`
	// Silent responses are displayed but never played.
	Silent bool `json:"silent,omitempty"`
	// CanRespond marks responses the user may answer without the wake word.
	CanRespond bool `json:"canRespond,omitempty"`
}

// Displayed returns the written form of the response: the spoken text
// followed by the URL, if any.
func (r Response) Displayed() string {
	if r.URL == "" {
		return r.Text
	}
	return strings.TrimSpace(r.Text + " " + r.URL)
}

// ExpectsReply reports whether playback should be followed by a capture
// without the wake word.
func (r Response) ExpectsReply() bool {
	return r.CanRespond && !r.Silent
}

type ChannelConnected struct{ Base }

func NewChannelConnected() ChannelConnected {
	return ChannelConnected{Base: NewBase(KindChannelConnected)}
}

type ChannelDisconnected struct {
	Base
	// Err is the read/dial error that caused the drop, nil on a clean close.
	Err error
}

func NewChannelDisconnected(err error) ChannelDisconnected {
	return ChannelDisconnected{Base: NewBase(KindChannelDisconnected), Err: err}
}

type ChannelResponse struct {
	Base
	Response Response
}

func NewChannelResponse(response Response) ChannelResponse {
	return ChannelResponse{Base: NewBase(KindChannelResponse), Response: response}
}

type ChannelNameAssigned struct {
	Base
	Name string
}

func NewChannelNameAssigned(name string) ChannelNameAssigned {
	return ChannelNameAssigned{Base: NewBase(KindChannelNameAssigned), Name: name}
}
