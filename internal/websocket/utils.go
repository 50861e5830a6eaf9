// internal/websocket/utils.go
package websocket

import wstypes "ledgerdesk/internal/domain/websocket"

// mapToStruct converts a message payload to a specific struct
func mapToStruct(msg *wstypes.WSMessage, target interface{}) error {
	return msg.DecodeData(target)
}
