package protocol

// Command is one of the fixed STOMP frame verbs.
type Command uint8

const (
	// Server commands
	Connected Command = iota + 1
	Message
	Receipt
	Error

	// Client commands
	Send
	Unsubscribe
	Subscribe
	Begin
	Commit
	Abort
	Nack
	Ack
	Disconnect
	Connect
	Stomp
)

type commandPolicy struct {
	token       string
	server      bool
	mayHaveBody bool
	escapes     bool
}

// commandTable is indexed by Command. Slot 0 is the invalid zero value.
var commandTable = [...]commandPolicy{
	Connected:   {token: "CONNECTED", server: true, mayHaveBody: false, escapes: false},
	Message:     {token: "MESSAGE", server: true, mayHaveBody: true, escapes: true},
	Receipt:     {token: "RECEIPT", server: true, mayHaveBody: false, escapes: true},
	Error:       {token: "ERROR", server: true, mayHaveBody: true, escapes: true},
	Send:        {token: "SEND", mayHaveBody: true, escapes: true},
	Unsubscribe: {token: "UNSUBSCRIBE", escapes: true},
	Subscribe:   {token: "SUBSCRIBE", escapes: true},
	Begin:       {token: "BEGIN", escapes: true},
	Commit:      {token: "COMMIT", escapes: true},
	Abort:       {token: "ABORT", escapes: true},
	Nack:        {token: "NACK", escapes: true},
	Ack:         {token: "ACK", escapes: true},
	Disconnect:  {token: "DISCONNECT", escapes: true},
	Connect:     {token: "CONNECT", escapes: false},
	Stomp:       {token: "STOMP", escapes: true},
}

var commandsByToken = func() map[string]Command {
	m := make(map[string]Command, len(commandTable))
	for i := range commandTable {
		if commandTable[i].token != "" {
			m[commandTable[i].token] = Command(i)
		}
	}
	return m
}()

// ParseCommand resolves a wire token to its Command. Matching is exact and case-sensitive.
func ParseCommand(token string) (Command, bool) {
	cmd, ok := commandsByToken[token]
	return cmd, ok
}

// Commands returns every known command in declaration order.
func Commands() []Command {
	out := make([]Command, 0, len(commandTable)-1)
	for i := range commandTable {
		if commandTable[i].token != "" {
			out = append(out, Command(i))
		}
	}
	return out
}

// Valid reports whether c is one of the known commands.
func (c Command) Valid() bool {
	return int(c) > 0 && int(c) < len(commandTable)
}

// String returns the canonical wire token, e.g. "SEND".
func (c Command) String() string {
	if !c.Valid() {
		return "UNKNOWN"
	}
	return commandTable[c].token
}

// MayHaveBody reports whether frames of this command may carry a body.
// Only SEND, MESSAGE and ERROR do.
func (c Command) MayHaveBody() bool {
	return c.Valid() && commandTable[c].mayHaveBody
}

// EscapesHeaders reports whether header keys and values are backslash-escaped.
// CONNECT and CONNECTED headers are sent verbatim.
func (c Command) EscapesHeaders() bool {
	return c.Valid() && commandTable[c].escapes
}

// IsServerCommand reports whether the command is sent by the server.
func (c Command) IsServerCommand() bool {
	return c.Valid() && commandTable[c].server
}

// IsClientCommand reports whether the command is sent by the client.
func (c Command) IsClientCommand() bool {
	return c.Valid() && !commandTable[c].server
}
