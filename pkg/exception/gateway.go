package exception

import "github.com/yanun0323/errors"

// Gateway session errors
var (
	ErrGatewayNoToken          = errors.New("gateway: auth token is empty")
	ErrGatewaySessionClosed    = errors.New("gateway: session closed")
	ErrGatewayRetriesExhausted = errors.New("gateway: reconnect attempts exhausted")
	ErrGatewayStaleConnection  = errors.New("gateway: heartbeat ack overdue")
	ErrGatewayTerminalClose    = errors.New("gateway: server closed the session permanently")
	ErrGatewayInvalidConfig    = errors.New("gateway: invalid config")
)
