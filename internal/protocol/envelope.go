package protocol

type RequestType string

const (
	TypeRegister          RequestType = "REGISTER"
	TypeLogin             RequestType = "LOGIN"
	TypeCall              RequestType = "CALL"
	TypeDisconnect        RequestType = "DISCONNECT"
	TypeSendMessage       RequestType = "SEND_MESSAGE"
	TypeSendFile          RequestType = "SEND_FILE"
	TypeGetConnectedUsers RequestType = "GET_CONNECTED_USERS"
)

type CallAction string

const (
	ActionInitiate     CallAction = "initiate"
	ActionAccept       CallAction = "accept"
	ActionReject       CallAction = "reject"
	ActionHangup       CallAction = "hangup"
	ActionOffer        CallAction = "offer"
	ActionAnswer       CallAction = "answer"
	ActionICECandidate CallAction = "ice-candidate"
	ActionAudioData    CallAction = "audio-data"

	// server -> client notifications, same envelope shape
	ActionIncomingCall CallAction = "incoming-call"
	ActionCallAccepted CallAction = "call-accepted"
	ActionCallRejected CallAction = "call-rejected"
	ActionCallEnded    CallAction = "call-ended"
)

// payload keys
const (
	FieldCaller   = "caller"
	FieldCallee   = "callee"
	FieldAction   = "action"
	FieldData     = "data"
	FieldUsername = "username"
	FieldPassword = "password"
	FieldTo       = "to"
	FieldFrom     = "from"
	FieldContent  = "content"
	FieldFilename = "filename"
)

// Request is the client->server envelope. Server->client signaling pushes
// reuse the same shape so pass-through signals can be relayed verbatim.
type Request struct {
	Type    RequestType       `json:"type"`
	Payload map[string]string `json:"payload"`
}

func (r Request) Action() CallAction {
	return CallAction(r.Payload[FieldAction])
}

// CallSignal builds a CALL envelope addressed by the caller/callee pair.
func CallSignal(action CallAction, caller, callee string) Request {
	return Request{
		Type: TypeCall,
		Payload: map[string]string{
			FieldAction: string(action),
			FieldCaller: caller,
			FieldCallee: callee,
		},
	}
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func OK(msg string, data any) Response {
	return Response{Success: true, Message: msg, Data: data}
}

func Fail(msg string) Response {
	return Response{Success: false, Message: msg}
}
