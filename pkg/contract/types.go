package contract

// FileID: 逻辑文档ID（通常为路径，需规范化，跨平台一致）。
type FileID string

// Index: 单文档内稳定递增的单元索引（0..n-1）。
type Index int64

// Lang: 目标语言短码（ISO 639-1，如 "fr"）。合法性由 language 包校验。
type Lang string

// Meta: 可选的轻量元信息；核心流程不读取其键值。
// 各格式处理器用它保存需原样回写的非文本字段（字幕序号/时间轴等）。
type Meta map[string]string

// Unit: 原子可译单元（不可跨文档）。
// 约束：
// - FileID 一致；
// - Index 自 0 严格递增；解析后数量与顺序不可变；
// - 翻译仅改写 Translated，Text 原样保留（经 CRLF→LF 归一）。
type Unit struct {
	Index      Index
	FileID     FileID
	Text       string
	Translated string
	// Path: 结构路径（JSON 指针 / 行区间等），用于按位置回写；可为空。
	Path string
	Meta Meta // 可为 nil
}

// Output 返回应写回文档的文本：已译则为译文，否则保留原文（降级策略）。
func (u Unit) Output() string {
	if u.Translated != "" {
		return u.Translated
	}
	return u.Text
}

// Chunk: 长文本单元的有界片段。
// 约束：同一单元的有序 Chunk 以拆分分隔符拼接后语义等价于原文；长度 ≤ 配置上限（含边界容差）。
type Chunk struct {
	Text   string
	Offset int // 源文本中的起始字节偏移
}

// Tier: 主模型质量档位。影响模型变体与磁盘/显存阈值。
type Tier string

const (
	TierStandard Tier = "standard"
	TierLarge    Tier = "large"
)

// Device: 执行设备。加载时选定一次；降级后整个会话固定为 CPU。
type Device string

const (
	DeviceCUDA Device = "cuda"
	DeviceCPU  Device = "cpu"
)

// Handle: 后端句柄快照（仅用于展示/日志，不承载行为）。
type Handle struct {
	Kind   string
	Device Device
	Loaded bool
}

// IssueKind: 校验器问题分类。
type IssueKind string

const (
	IssueLengthRatio   IssueKind = "length_ratio"
	IssueSentenceRatio IssueKind = "sentence_ratio"
	IssueLowSimilarity IssueKind = "low_similarity"
	IssuePattern       IssueKind = "pattern"
)

// Issue: 校验器输出。仅供参考，永不阻断交付。
type Issue struct {
	Kind   IssueKind
	Detail string
}
