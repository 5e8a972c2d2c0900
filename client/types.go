package client

import "fmt"

// ResultKind 触发结果的类别。
type ResultKind int

const (
	// ResultSuccess 远端返回 status=success。
	ResultSuccess ResultKind = iota + 1
	// ResultApplicationFailure 请求已完成，但远端拒绝或响应无法按约定解析。
	ResultApplicationFailure
	// ResultTransportFailure 请求本身未能完成（网络、超时、地址不可达）。
	ResultTransportFailure
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultApplicationFailure:
		return "application_failure"
	case ResultTransportFailure:
		return "transport_failure"
	default:
		return fmt.Sprintf("ResultKind(%d)", int(k))
	}
}

const (
	// DefaultSuccessMessage 远端成功但未给出 message 时记录的固定文案。
	DefaultSuccessMessage = "success"
	// UnknownErrorMessage 远端失败且未给出 message 时记录的文案。
	UnknownErrorMessage = "unknown error"
	// DefaultCredentialHeader 携带 API 密钥的默认请求头。
	DefaultCredentialHeader = "X-API-Key"
)

// TriggerResult 一次触发调用的结果，三选一。
type TriggerResult struct {
	Kind       ResultKind
	Message    string
	StatusCode int // 传输失败时为 0
}

// OK 是否为成功结果。
func (r TriggerResult) OK() bool { return r.Kind == ResultSuccess }

// Success 构造成功结果。
func Success(msg string) TriggerResult { return TriggerResult{Kind: ResultSuccess, Message: msg} }

// ApplicationFailure 构造应用层失败结果。
func ApplicationFailure(msg string) TriggerResult {
	return TriggerResult{Kind: ResultApplicationFailure, Message: msg}
}

// TransportFailure 构造传输层失败结果。
func TransportFailure(msg string) TriggerResult {
	return TriggerResult{Kind: ResultTransportFailure, Message: msg}
}

// triggerResponse 远端响应体约定：{"status": "success"|..., "message"?: "..."}。
type triggerResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
