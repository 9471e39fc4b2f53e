// Package transcribe 是语音转写守护进程的 HTTP 客户端与产物序列化。
// 协议：
//
//	POST /transcribe → {"audio_path","model","language"} ⇒ Transcript
//
// 错误体与推理守护进程一致：{"error":{"code","message"}}。
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"subtrans/pkg/contract"
)

// 可用的转写模型档位。
var models = map[string]bool{
	"tiny": true, "base": true, "small": true, "medium": true, "large": true,
}

// ValidModel 报告模型档位是否可用。
func ValidModel(name string) bool { return models[name] }

// Client 为守护进程客户端。同步、无内部并发。
type Client struct {
	hc       *http.Client
	base     string
	model    string
	language string
}

// New 构造客户端。language 为空时由模型自行检测；timeout 为 0 表示不设超时。
func New(baseURL, model, language string, timeout time.Duration) (*Client, error) {
	if !ValidModel(model) {
		return nil, fmt.Errorf("unknown transcription model %q", model)
	}
	return &Client{
		hc:       &http.Client{Timeout: timeout},
		base:     strings.TrimRight(baseURL, "/"),
		model:    model,
		language: language,
	}, nil
}

type transcribeReq struct {
	AudioPath string `json:"audio_path"`
	Model     string `json:"model"`
	Language  string `json:"language,omitempty"`
}

// Transcribe 提交音频路径并取回转写结果。
func (c *Client) Transcribe(ctx context.Context, audioPath string) (contract.Transcript, error) {
	body, err := json.Marshal(transcribeReq{AudioPath: audioPath, Model: c.model, Language: c.language})
	if err != nil {
		return contract.Transcript{}, fmt.Errorf("transcribe encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/transcribe", bytes.NewReader(body))
	if err != nil {
		return contract.Transcript{}, fmt.Errorf("transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.hc.Do(req)
	if err != nil {
		return contract.Transcript{}, fmt.Errorf("transcribe call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, &eb)
		msg := strings.TrimSpace(eb.Error.Message)
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return contract.Transcript{}, fmt.Errorf("transcription daemon: http %d: %s", resp.StatusCode, msg)
	}
	var tr contract.Transcript
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return contract.Transcript{}, fmt.Errorf("transcribe decode: %w", err)
	}
	return tr, nil
}

var _ contract.Transcriber = (*Client)(nil)
