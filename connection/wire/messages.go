package wire

// Ping is the outbound liveness probe.
type Ping struct {
	Header
}

func NewPing() Ping {
	return Ping{Header{Type: HeartbeatPing}}
}

// Pong answers a ping; the backend sends these to us, and mirrors ours back.
type Pong struct {
	Header
}

func NewPong(requestId string) Pong {
	return Pong{Header{Type: HeartbeatPong, RequestId: requestId}}
}

// ResponseEncoding values for proxied call bodies.
const (
	EncodingText   = "text"
	EncodingBase64 = "base64"
)

// ProxyRequest instructs the gateway to perform an HTTP call with the
// browser's ambient session.
type ProxyRequest struct {
	Header
	Url                string            `json:"url"`
	Method             string            `json:"method"`
	Headers            map[string]string `json:"headers,omitempty"`
	Body               string            `json:"body,omitempty"`
	ResponseEncoding   string            `json:"responseEncoding,omitempty"`
	IncludeCredentials bool              `json:"includeCredentials,omitempty"`
}

// ProxyResponse is the single answer to a ProxyRequest. Exactly one of these
// is sent per request, even on failure, so the remote caller never times out
// silently for a failure we can detect.
type ProxyResponse struct {
	Header
	StatusCode int               `json:"statusCode,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body,omitempty"`
	Encoding   string            `json:"encoding,omitempty"`
	Error      string            `json:"error,omitempty"`
}

func NewProxyResponse(requestId string) ProxyResponse {
	return ProxyResponse{Header: Header{Type: ProxyResponseMessage, RequestId: requestId}}
}

func NewProxyErrorResponse(requestId string, err error) ProxyResponse {
	return ProxyResponse{
		Header: Header{Type: ProxyResponseMessage, RequestId: requestId},
		Error:  err.Error(),
	}
}

// SessionInfoMessage reports the gateway's identity and the acting user. Sent
// on every successful open and whenever the backend asks for a refresh. The
// acting user is informational only; it never gates the connection.
type SessionInfoMessage struct {
	Header
	InstanceId    string `json:"instanceId"`
	ActingUser    string `json:"actingUser,omitempty"`
	SchemaVersion string `json:"schemaVersion"`
}

func NewSessionInfo(requestId string, instanceId string, actingUser string) SessionInfoMessage {
	return SessionInfoMessage{
		Header:        Header{Type: SessionInfo, RequestId: requestId},
		InstanceId:    instanceId,
		ActingUser:    actingUser,
		SchemaVersion: CurrentVersion,
	}
}

// NotificationMessage is a one-way informational frame from the backend.
type NotificationMessage struct {
	Header
	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`
}
