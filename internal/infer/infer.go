// Package infer 是本地推理守护进程的最小 HTTP 客户端。
// 守护进程承载实际的 seq2seq 模型；本包只做协议搬运，不理解模型内部。
// 协议：
//
//	GET  /device           → {"cuda":bool,"total_memory_gb":float}
//	POST /load             → {"model","device"} ⇒ {"loaded":bool,"device":string}
//	POST /unload           → {"model"} ⇒ 204
//	GET  /models/{m}/cached→ 200 已缓存 / 404 未缓存
//	POST /translate        → {"model","texts","source","target","max_length"} ⇒ {"translations":[...]}
//
// 错误体统一为 {"error":{"code","message"}}；code=oom 映射为 ErrResourceExhausted。
package infer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"subtrans/pkg/contract"
)

// Client 为守护进程客户端。同步、无内部并发。
type Client struct {
	hc   *http.Client
	base string
}

// New 构造客户端。timeout 为 0 表示不设超时（长推理阻塞直至完成或取消）。
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		hc:   &http.Client{Timeout: timeout},
		base: strings.TrimRight(baseURL, "/"),
	}
}

// DeviceInfo 为守护进程报告的加速器状态。
type DeviceInfo struct {
	CUDA          bool    `json:"cuda"`
	TotalMemoryGB float64 `json:"total_memory_gb"`
}

// Device 查询加速器可用性与显存总量。
func (c *Client) Device(ctx context.Context) (DeviceInfo, error) {
	var info DeviceInfo
	if err := c.call(ctx, http.MethodGet, "/device", nil, &info); err != nil {
		return DeviceInfo{}, err
	}
	return info, nil
}

// ModelCached 报告模型权重是否已在本地缓存（命中时跳过磁盘预检）。
func (c *Client) ModelCached(ctx context.Context, model string) (bool, error) {
	err := c.call(ctx, http.MethodGet, "/models/"+url.PathEscape(model)+"/cached", nil, nil)
	if err == nil {
		return true, nil
	}
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, err
}

type loadReq struct {
	Model  string `json:"model"`
	Device string `json:"device"`
}

type loadResp struct {
	Loaded bool   `json:"loaded"`
	Device string `json:"device"`
}

// Load 请求加载模型到指定设备；返回实际授予的设备。幂等。
func (c *Client) Load(ctx context.Context, model string, device contract.Device) (contract.Device, error) {
	var resp loadResp
	if err := c.call(ctx, http.MethodPost, "/load", loadReq{Model: model, Device: string(device)}, &resp); err != nil {
		return "", err
	}
	if !resp.Loaded {
		return "", fmt.Errorf("%w: daemon reported not loaded", contract.ErrBackendLoad)
	}
	return contract.Device(resp.Device), nil
}

// Unload 卸载模型并释放其执行资源（降级路径）。
func (c *Client) Unload(ctx context.Context, model string) error {
	return c.call(ctx, http.MethodPost, "/unload", loadReq{Model: model}, nil)
}

// TranslateRequest 为一次批量翻译调用。
type TranslateRequest struct {
	Model     string   `json:"model"`
	Texts     []string `json:"texts"`
	Source    string   `json:"source"`
	Target    string   `json:"target"`
	MaxLength int      `json:"max_length,omitempty"`
}

type translateResp struct {
	Translations []string `json:"translations"`
}

// Translate 执行批量翻译。输出与输入等长（协议违例即报错）。
func (c *Client) Translate(ctx context.Context, req TranslateRequest) ([]string, error) {
	var resp translateResp
	if err := c.call(ctx, http.MethodPost, "/translate", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Translations) != len(req.Texts) {
		return nil, fmt.Errorf("%w: daemon returned %d translations for %d texts",
			contract.ErrInvariantViolation, len(resp.Translations), len(req.Texts))
	}
	return resp.Translations, nil
}

// StatusError 承载 HTTP 上游错误的最小诊断信息。
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("inference daemon: %s (%d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("inference daemon: http %d: %s", e.StatusCode, e.Message)
}

// Unwrap 将显存耗尽错误码映射到哨兵，供 Manager 的降级策略判定。
func (e *StatusError) Unwrap() error {
	if e.Code == "oom" || e.StatusCode == http.StatusInsufficientStorage {
		return contract.ErrResourceExhausted
	}
	return nil
}

type errBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("infer encode: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("infer request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("infer call %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errBody
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, &eb)
		msg := strings.TrimSpace(eb.Error.Message)
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return &StatusError{StatusCode: resp.StatusCode, Code: eb.Error.Code, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("infer decode %s: %w", path, err)
	}
	return nil
}
