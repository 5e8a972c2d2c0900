package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mengeric/scrape-trigger-go/logging"
)

// maxBodyBytes 读取响应体的上限。
const maxBodyBytes = 1 << 20

// TriggerClient 发起启动远端爬虫任务的单次调用，便于 gomock 打桩。
// Invoke 永远返回结果值，不返回 error，也不向调用方抛出 panic。
type TriggerClient interface {
	Invoke(ctx context.Context, endpoint, credential string) TriggerResult
}

// httpTriggerClient 实现 TriggerClient。
type httpTriggerClient struct {
	hc     *http.Client
	header string
}

// NewHTTPTriggerClient 构造 HTTP 实现。
// 参数：timeout 为 0 时沿用 net/http 默认行为（不设客户端超时）；header 为空时使用 X-API-Key。
func NewHTTPTriggerClient(timeout time.Duration, header string) TriggerClient {
	if header == "" {
		header = DefaultCredentialHeader
	}
	return &httpTriggerClient{hc: &http.Client{Timeout: timeout}, header: header}
}

// Invoke 向 endpoint 发起恰好一次 POST，不重试。
func (h *httpTriggerClient) Invoke(ctx context.Context, endpoint, credential string) TriggerResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, http.NoBody)
	if err != nil {
		return TransportFailure(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set(h.header, credential)
	req.Header.Set("Accept", "application/json")

	res, err := h.hc.Do(req)
	if err != nil {
		return TransportFailure(err.Error())
	}
	defer res.Body.Close()

	b, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		r := TransportFailure(fmt.Sprintf("read response: %v", err))
		r.StatusCode = res.StatusCode
		return r
	}
	r := interpret(res.StatusCode, b)
	logging.L().Debug(ctx, "trigger response", "endpoint", endpoint, "http_status", res.StatusCode, "kind", r.Kind.String())
	return r
}

// interpret 把 HTTP 状态码与响应体映射为结果。
// 只有 2xx 且 status=success 才算成功；非 2xx 即使声称成功也按应用层失败处理。
func interpret(code int, body []byte) TriggerResult {
	var resp triggerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return TriggerResult{Kind: ResultApplicationFailure, StatusCode: code,
			Message: fmt.Sprintf("invalid response (HTTP %d): %v", code, err)}
	}
	if code/100 == 2 && resp.Status == "success" {
		msg := resp.Message
		if msg == "" {
			msg = DefaultSuccessMessage
		}
		return TriggerResult{Kind: ResultSuccess, StatusCode: code, Message: msg}
	}
	msg := resp.Message
	if msg == "" {
		msg = UnknownErrorMessage
	}
	return TriggerResult{Kind: ResultApplicationFailure, StatusCode: code, Message: msg}
}

// SafeLogErr 打印但不打断流程。
func SafeLogErr(err error, msg string) {
	if err != nil {
		logging.L().Errorf(context.Background(), "%s: %v", msg, err)
	}
}
