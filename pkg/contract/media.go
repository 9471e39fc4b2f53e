package contract

import "context"

// 上游协作者接口（黑盒）：媒体解码与语音转写。
// 核心只消费其产物（受支持的文档格式），不关心实现细节。

// TimeRange: 秒为单位的截取区间；零值表示整段。
type TimeRange struct {
	Start float64
	End   float64
}

// AudioExtractor: 外部媒体解码服务。从容器中抽取音频轨并落盘。
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, path string, rng TimeRange) (audioPath string, err error)
}

// Segment: 转写分段（秒级时间戳）。
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript: 转写结果（全文 + 分段）。
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// Transcriber: 外部语音转写服务。
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (Transcript, error)
}
