package clients

import (
	"context"
	"fmt"

	ws "collections-ledger/internal/transport/websocket"
)

type WebSocketClient struct {
	hub *ws.Hub
}

func NewWebSocketClient(hub *ws.Hub) *WebSocketClient {
	return &WebSocketClient{
		hub: hub,
	}
}

// NotifyActivity tells an agent's open console that a new event landed on an
// account timeline so it can refresh without polling.
func (c *WebSocketClient) NotifyActivity(
	ctx context.Context,
	agentID string,
	accountID string,
	eventID string,
	module string,
	action string,
) error {
	if c.hub == nil {
		return nil
	}

	message := &ws.Message{
		Type:    "activity_appended",
		Channel: fmt.Sprintf("account_activity#%s", accountID),
		Data: map[string]interface{}{
			"account_id": accountID,
			"event_id":   eventID,
			"module":     module,
			"action":     action,
		},
	}

	c.hub.Broadcast(agentID, message)
	return nil
}

// NotifyReplyAttached signals that an inbound reply was correlated onto an
// outbound communication thread.
func (c *WebSocketClient) NotifyReplyAttached(
	ctx context.Context,
	agentID string,
	accountID string,
	correlationKey string,
	replyStatus string,
) error {
	if c.hub == nil {
		return nil
	}

	message := &ws.Message{
		Type:    "reply_attached",
		Channel: fmt.Sprintf("account_activity#%s", accountID),
		Data: map[string]interface{}{
			"account_id":      accountID,
			"correlation_key": correlationKey,
			"reply_status":    replyStatus,
		},
	}

	c.hub.Broadcast(agentID, message)
	return nil
}

func (c *WebSocketClient) NotifyExportProgress(
	ctx context.Context,
	agentID string,
	exportID string,
	progress float64,
	stage string,
) error {
	if c.hub == nil {
		return nil
	}

	channel := fmt.Sprintf("notify_agent_of_progress_export#%s", agentID)
	data := map[string]interface{}{
		"id":       exportID,
		"progress": progress,
	}
	if stage != "" {
		data["stage"] = stage
	}

	message := &ws.Message{
		Type:    "export_progress",
		Channel: channel,
		Data:    data,
	}

	c.hub.Broadcast(agentID, message)
	return nil
}

func (c *WebSocketClient) NotifyExportComplete(
	ctx context.Context,
	agentID string,
	exportID string,
	url string,
	filename string,
) error {
	if c.hub == nil {
		return nil
	}

	channel := fmt.Sprintf("notify_agent_when_export_complete#%s", agentID)
	message := &ws.Message{
		Type:    "export_complete",
		Channel: channel,
		Data: map[string]interface{}{
			"id":       exportID,
			"url":      url,
			"filename": filename,
			"agent_id": agentID,
		},
	}

	c.hub.Broadcast(agentID, message)
	return nil
}

// NotifyExportFailed notifies an agent that an export failed with the provided error message.
func (c *WebSocketClient) NotifyExportFailed(ctx context.Context, agentID string, exportID string, errMsg string) error {
	if c.hub == nil {
		return nil
	}

	channel := fmt.Sprintf("notify_agent_when_export_failed#%s", agentID)
	message := &ws.Message{
		Type:    "export_failed",
		Channel: channel,
		Data: map[string]interface{}{
			"id":       exportID,
			"message":  errMsg,
			"agent_id": agentID,
		},
	}

	c.hub.Broadcast(agentID, message)
	return nil
}
