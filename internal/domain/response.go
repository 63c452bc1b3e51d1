package domain

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Response is the synchronous reply sent to the requesting client only.
type Response struct {
	Status string        `json:"status"`
	Info   *ResponseInfo `json:"info,omitempty"`
}

// ResponseInfo carries the optional details of a Response.
// TotalSubscribers is a pointer so a count of zero is still serialized when set.
type ResponseInfo struct {
	Detail           string   `json:"detail,omitempty"`
	ChannelName      string   `json:"channel_name,omitempty"`
	ClientName       string   `json:"client_name,omitempty"`
	TotalSubscribers *int     `json:"total_subscribers,omitempty"`
	Channels         []string `json:"channels,omitzero"`
}

// OK returns a bare success response.
func OK() Response {
	return Response{Status: StatusOK}
}

// Ack is the unsolicited first frame confirming the client's identity.
func Ack(clientName string) Response {
	return Response{Status: StatusOK, Info: &ResponseInfo{ClientName: clientName}}
}

// Subscribed reports the subscriber count of a topic after a subscribe.
func Subscribed(channel string, total int) Response {
	return Response{Status: StatusOK, Info: &ResponseInfo{ChannelName: channel, TotalSubscribers: &total}}
}

// Subscriptions lists the topics a client is subscribed to.
// A non-nil empty slice keeps "channels":[] in the JSON instead of dropping the field.
func Subscriptions(channels []string) Response {
	if channels == nil {
		channels = []string{}
	}
	return Response{Status: StatusOK, Info: &ResponseInfo{Channels: channels}}
}

// ErrorResponse converts err into an error reply with err's text as detail.
func ErrorResponse(err error) Response {
	return ErrorDetail(err.Error())
}

// ErrorDetail builds an error reply carrying detail verbatim.
func ErrorDetail(detail string) Response {
	return Response{Status: StatusError, Info: &ResponseInfo{Detail: detail}}
}

// IsOK reports whether the response signals success.
func (r Response) IsOK() bool {
	return r.Status == StatusOK
}
