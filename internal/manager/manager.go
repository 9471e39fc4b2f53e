// Package manager 管理一次翻译会话的后端生命周期：
// 设备选择、磁盘预检、下载互斥、主备回退与显存降级。
// 会话内后端串行使用；Manager 不做请求级并发。
package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofrs/flock"

	"subtrans/internal/diag"
	"subtrans/internal/infer"
	"subtrans/pkg/contract"
)

// Prober 抽象守护进程的环境探测面；infer.Client 满足。
type Prober interface {
	Device(ctx context.Context) (infer.DeviceInfo, error)
	ModelCached(ctx context.Context, model string) (bool, error)
}

// Options 为会话参数。零值可用（纯 CPU、无预检、无锁），便于测试注入。
type Options struct {
	Log *diag.Logger
	// Probe 为 nil 时跳过设备探测与缓存查询，直接使用 CPU。
	Probe Prober
	// ForceDevice 非空时覆盖自动设备选择。
	ForceDevice contract.Device
	// CacheDir 为模型权重缓存目录；空串跳过磁盘预检与下载锁。
	CacheDir string
	// DiskFree 报告目录可用空间（GB）；nil 用系统默认实现。
	DiskFree func(path string) (float64, error)
}

// Manager 持有活动后端与降级状态。
type Manager struct {
	log      *diag.Logger
	primary  contract.Backend
	fallback contract.Backend
	opts     Options

	active  contract.Backend
	device  contract.Device
	demoted bool
}

// New 构造会话管理器。fallback 可为 nil（无备用链）。
func New(primary, fallback contract.Backend, opts Options) *Manager {
	if opts.DiskFree == nil {
		opts.DiskFree = diskFreeGB
	}
	return &Manager{log: opts.Log, primary: primary, fallback: fallback, opts: opts}
}

// Start 选择设备、预检资源并加载主后端；主失败时回退备用。
// 两者皆失败时返回聚合错误。
func (m *Manager) Start(ctx context.Context) error {
	primaryErr := m.bringUp(ctx, m.primary)
	if primaryErr == nil {
		return nil
	}
	if m.fallback == nil {
		return primaryErr
	}
	m.log.Warn("manager", string(diag.Classify(primaryErr)),
		fmt.Sprintf("primary backend %s failed, falling back to %s: %v",
			m.primary.Name(), m.fallback.Name(), primaryErr), nil)
	if err := m.bringUp(ctx, m.fallback); err != nil {
		return fmt.Errorf("%w: primary: %v; fallback: %v", contract.ErrBackendLoad, primaryErr, err)
	}
	return nil
}

func (m *Manager) bringUp(ctx context.Context, b contract.Backend) error {
	if b == nil {
		return fmt.Errorf("%w: no backend configured", contract.ErrBackendLoad)
	}
	spec := b.Spec()
	cached, err := m.modelCached(ctx, spec.Model)
	if err != nil {
		return err
	}
	if !cached {
		if err := m.preflightDisk(spec); err != nil {
			return err
		}
	}
	device, err := m.chooseDevice(ctx, spec)
	if err != nil {
		return err
	}
	unlock, err := m.acquireDownloadLock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	t := m.log.Start("manager", fmt.Sprintf("loading %s on %s", spec.Model, device))
	if err := b.Load(ctx, device); err != nil {
		return err
	}
	t.Finish("model ready", 0)
	m.active = b
	m.device = b.Handle().Device
	return nil
}

// modelCached 查询权重是否已在本地；无探测器时视为未缓存。
func (m *Manager) modelCached(ctx context.Context, model string) (bool, error) {
	if m.opts.Probe == nil {
		return m.opts.CacheDir == "", nil
	}
	return m.opts.Probe.ModelCached(ctx, model)
}

// preflightDisk 校验缓存目录可用空间是否容得下待下载的权重。
func (m *Manager) preflightDisk(spec contract.BackendSpec) error {
	if m.opts.CacheDir == "" || spec.RequiredDiskGB <= 0 {
		return nil
	}
	if err := os.MkdirAll(m.opts.CacheDir, 0o755); err != nil {
		return fmt.Errorf("ensure model cache dir: %w", err)
	}
	free, err := m.opts.DiskFree(m.opts.CacheDir)
	if err != nil {
		return fmt.Errorf("disk preflight: %w", err)
	}
	if free < spec.RequiredDiskGB {
		return fmt.Errorf("%w: %s needs %.0f GB, %.1f GB free at %s",
			contract.ErrDiskSpace, spec.Model, spec.RequiredDiskGB, free, m.opts.CacheDir)
	}
	return nil
}

// chooseDevice 决定加载设备：配置覆盖优先；
// 自动模式下显存总量达到阈值才用加速器，否则退 CPU。
func (m *Manager) chooseDevice(ctx context.Context, spec contract.BackendSpec) (contract.Device, error) {
	if m.opts.ForceDevice != "" {
		return m.opts.ForceDevice, nil
	}
	if m.opts.Probe == nil {
		return contract.DeviceCPU, nil
	}
	info, err := m.opts.Probe.Device(ctx)
	if err != nil {
		return "", fmt.Errorf("device probe: %w", err)
	}
	m.log.Debugf("manager", "device probe", map[string]string{
		"cuda":            strconv.FormatBool(info.CUDA),
		"total_memory_gb": strconv.FormatFloat(info.TotalMemoryGB, 'f', 1, 64),
	})
	if info.CUDA && info.TotalMemoryGB >= spec.RequiredMemGB {
		return contract.DeviceCUDA, nil
	}
	return contract.DeviceCPU, nil
}

// acquireDownloadLock 对缓存目录加文件锁，避免并行会话重复下载权重。
func (m *Manager) acquireDownloadLock(ctx context.Context) (func(), error) {
	if m.opts.CacheDir == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(m.opts.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure model cache dir: %w", err)
	}
	fl := flock.New(filepath.Join(m.opts.CacheDir, ".download.lock"))
	ok, err := fl.TryLockContext(ctx, 500*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("download lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("download lock: not acquired")
	}
	return func() { _ = fl.Unlock() }, nil
}

// Active 返回当前后端；Start 成功前为 nil。
func (m *Manager) Active() contract.Backend { return m.active }

// Device 返回活动设备。
func (m *Manager) Device() contract.Device { return m.device }

// Demoted 报告是否发生过显存降级。
func (m *Manager) Demoted() bool { return m.demoted }

// Prepare 确认目标语言可译且模型就绪。
func (m *Manager) Prepare(ctx context.Context, target contract.Lang) error {
	if m.active == nil {
		return contract.ErrBackendNotReady
	}
	return m.active.Prepare(ctx, target)
}

// TranslateBatch 转发批量翻译；显存耗尽时降级到 CPU 并重试一次。
// 降级是永久的：本会话后续批次均走 CPU。CPU 上再次耗尽直接上抛。
func (m *Manager) TranslateBatch(ctx context.Context, texts []string, target contract.Lang) ([]string, error) {
	if m.active == nil {
		return nil, contract.ErrBackendNotReady
	}
	out, err := m.active.TranslateBatch(ctx, texts, target)
	if err == nil || !errors.Is(err, contract.ErrResourceExhausted) {
		return out, err
	}
	if m.device != contract.DeviceCUDA {
		return nil, err
	}
	m.log.Warn("manager", string(diag.CodeResource),
		fmt.Sprintf("accelerator memory exhausted, demoting %s to cpu", m.active.Name()), nil)
	if rerr := m.active.Release(ctx); rerr != nil {
		m.log.Warn("manager", string(diag.CodeBackend), fmt.Sprintf("release during demotion: %v", rerr), nil)
	}
	if lerr := m.active.Load(ctx, contract.DeviceCPU); lerr != nil {
		return nil, fmt.Errorf("%w: reload on cpu after exhaustion: %v", contract.ErrBackendLoad, lerr)
	}
	m.device = contract.DeviceCPU
	m.demoted = true
	return m.active.TranslateBatch(ctx, texts, target)
}

// Close 释放活动后端。幂等。
func (m *Manager) Close(ctx context.Context) error {
	if m.active == nil {
		return nil
	}
	err := m.active.Release(ctx)
	m.active = nil
	m.device = ""
	return err
}
