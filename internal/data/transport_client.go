package data

import (
	"context"
	"time"

	"sms-service/internal/biz"
	"sms-service/internal/conf"
	smsErrors "sms-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	kratoshttp "github.com/go-kratos/kratos/v2/transport/http"
)

// TransportClient 短信运营商客户端（实现 biz.TransportClient）
// 直接使用 biz.TransportClient 接口，避免重复定义
type TransportClient = biz.TransportClient

// transportClient 运营商 HTTP 客户端实现
type transportClient struct {
	client *kratoshttp.Client
	apiKey string
	log    *log.Helper
}

// transportSendBody 运营商下发请求体
type transportSendBody struct {
	To     string `json:"to"`
	Text   string `json:"text"`
	Type   string `json:"type"`
	ApiKey string `json:"api_key"`
}

// transportSendResult 运营商下发响应体
type transportSendResult struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"` // accepted|rejected
	Error     string `json:"error"`
}

// NewTransportClient 创建运营商客户端
func NewTransportClient(c *conf.Bootstrap, logger log.Logger) (TransportClient, error) {
	if c.Sms == nil || c.Sms.Transport == nil {
		return nil, pkgErrors.NewBizErrorWithLang(context.Background(), smsErrors.ErrCodeTransportUnavailable)
	}

	timeout := 5 * time.Second
	if c.Sms.Transport.TimeoutSeconds > 0 {
		timeout = time.Duration(c.Sms.Transport.TimeoutSeconds) * time.Second
	}

	client, err := kratoshttp.NewClient(
		context.Background(),
		kratoshttp.WithEndpoint(c.Sms.Transport.Endpoint),
		kratoshttp.WithTimeout(timeout),
		kratoshttp.WithMiddleware(
			recovery.Recovery(),
		),
	)
	if err != nil {
		return nil, pkgErrors.WrapErrorWithLang(context.Background(), err, smsErrors.ErrCodeTransportUnavailable)
	}

	return &transportClient{
		client: client,
		apiKey: c.Sms.Transport.ApiKey,
		log:    log.NewHelper(logger),
	}, nil
}

// Send 提交单条消息给运营商
// 超时或网络错误原样返回，调用方保持记录 pending 等待回执。
func (c *transportClient) Send(ctx context.Context, req *biz.TransportSendRequest) (*biz.TransportSendReply, error) {
	body := &transportSendBody{
		To:     req.Phone,
		Text:   req.Text,
		Type:   req.Type,
		ApiKey: c.apiKey,
	}

	var result transportSendResult
	if err := c.client.Invoke(ctx, "POST", "/v1/messages", body, &result); err != nil {
		return nil, err
	}

	reply := &biz.TransportSendReply{
		ProviderMessageID: result.MessageID,
		ErrorDetail:       result.Error,
	}
	if result.Status == "accepted" {
		reply.Outcome = biz.TransportOutcomeSent
	} else {
		reply.Outcome = biz.TransportOutcomeRejected
	}
	return reply, nil
}
