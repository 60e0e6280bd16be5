package yunzhijia

// RobotMsg is the payload the group robot posts to the webhook.
type RobotMsg struct {
	Type           int    `json:"type"`
	RobotID        string `json:"robotId,omitempty"`
	RobotName      string `json:"robotName,omitempty"`
	OperatorName   string `json:"operatorName,omitempty"`
	MsgID          string `json:"msgId,omitempty"`
	OperatorOpenid string `json:"operatorOpenid"`
	Content        string `json:"content"`
	Time           int64  `json:"time"`
	// SessionID comes from the sessionId header, not the body.
	SessionID string `json:"-"`
}

// ackData is the synchronous reply shown in the group.
type ackData struct {
	Type    int    `json:"type"`
	Content string `json:"content"`
}

type ackResponse struct {
	Success bool    `json:"success"`
	Data    ackData `json:"data"`
}

func ack(success bool, content string) ackResponse {
	return ackResponse{Success: success, Data: ackData{Type: 2, Content: content}}
}

type notifyParam struct {
	Type   string   `json:"type"`
	Values []string `json:"values"`
}

type textPayload struct {
	Content      string        `json:"content"`
	NotifyParams []notifyParam `json:"notifyParams"`
}

type cardBaseInfo struct {
	TemplateID  string `json:"templateId"`
	DataContent string `json:"dataContent"`
}

type cardParam struct {
	BaseInfo cardBaseInfo `json:"baseInfo"`
}

type cardPayload struct {
	MsgType      int           `json:"msgType"`
	Param        cardParam     `json:"param"`
	NotifyParams []notifyParam `json:"notifyParams"`
}

func notifyOpenID(openid string) []notifyParam {
	return []notifyParam{{Type: "openIds", Values: []string{openid}}}
}
