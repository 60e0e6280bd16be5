package yunzhijia

import (
	"fmt"

	"github.com/kiosk404/ferry/pkg/utils/json"
)

// buildCard renders one image card. The first image is bigImageUrl, the
// following ones bigImage1Url, bigImage2Url and so on.
func buildCard(templateID, openid string, urls []string) (*cardPayload, error) {
	data := make(map[string]string, len(urls))
	for i, u := range urls {
		if i == 0 {
			data["bigImageUrl"] = u
			continue
		}
		data[fmt.Sprintf("bigImage%dUrl", i)] = u
	}
	content, err := json.MarshalToString(data)
	if err != nil {
		return nil, err
	}
	return &cardPayload{
		MsgType: 2,
		Param: cardParam{BaseInfo: cardBaseInfo{
			TemplateID:  templateID,
			DataContent: content,
		}},
		NotifyParams: notifyOpenID(openid),
	}, nil
}
