//go:build unix

package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/memwatch/internal/app"
	"github.com/weisyn/memwatch/internal/core/host/process"
	clockimpl "github.com/weisyn/memwatch/internal/core/infrastructure/clock"
	"github.com/weisyn/memwatch/internal/core/leak"
	"github.com/weisyn/memwatch/internal/core/telemetry"
	"github.com/weisyn/memwatch/pkg/types"
)

const bytesPerMB = 1 << 20

// WatchFlags watch 子命令标志
type WatchFlags struct {
	PIDs           []int
	ReloadSignal   string
	Critical       string // 如 "3.8GiB"
	Warning        string
	HTTP           bool
	HTTPPort       int
	ReportInterval time.Duration
}

var watchFlags WatchFlags

// watchCmd 监控进程
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "监控进程内存并在需要时发送重载信号",
	Long: `监控一个或多个进程的内存，按配置阈值、增长速率和系统压力决定是否重载。

重载以信号通知被监控进程（默认 SIGHUP）。
向 memwatch 发送 SIGUSR1 视为宿主休眠，SIGUSR2 视为唤醒，SIGINT/SIGTERM 退出。`,
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.IntSliceVarP(&watchFlags.PIDs, "pid", "p", nil, "要监控的进程号，可重复")
	f.StringVar(&watchFlags.ReloadSignal, "reload-signal", "SIGHUP", "重载时发送的信号")
	f.StringVar(&watchFlags.Critical, "critical", "", "立即重载的内存上限，如 3.8GiB")
	f.StringVar(&watchFlags.Warning, "warning", "", "预警内存，如 3.5GiB")
	f.BoolVar(&watchFlags.HTTP, "http", false, "启用诊断 HTTP 服务")
	f.IntVar(&watchFlags.HTTPPort, "http-port", 28690, "诊断 HTTP 服务端口（仅监听 127.0.0.1）")
	f.DurationVar(&watchFlags.ReportInterval, "report-interval", time.Minute, "打印目标状态的间隔，0 表示不打印")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(_ *cobra.Command, _ []string) error {
	if len(watchFlags.PIDs) == 0 {
		return errors.New("至少指定一个 --pid")
	}
	reloadSig, err := process.ParseSignal(watchFlags.ReloadSignal)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyLimitFlags(cfg); err != nil {
		return err
	}

	opts := []app.Option{app.WithAppConfig(cfg)}
	if watchFlags.HTTP {
		opts = append(opts, app.WithHTTP("127.0.0.1", watchFlags.HTTPPort))
	}
	a, err := app.Start(opts...)
	if err != nil {
		return err
	}
	svc := a.Service()

	clk := clockimpl.NewSystemClock()
	for _, pid := range watchFlags.PIDs {
		t, err := process.NewTarget(pid, process.Options{ReloadSignal: reloadSig}, clk)
		if err != nil {
			_ = a.Stop()
			return err
		}
		if err := svc.AttachTarget(t); err != nil {
			_ = a.Stop()
			return err
		}
		pterm.Info.Printfln("监控进程 %d（%s）", pid, t.ID())
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	var report <-chan time.Time
	if watchFlags.ReportInterval > 0 {
		ticker := time.NewTicker(watchFlags.ReportInterval)
		defer ticker.Stop()
		report = ticker.C
	}

	for {
		select {
		case sig := <-signals:
			switch sig {
			case syscall.SIGUSR1:
				pterm.Info.Println("宿主休眠")
				svc.NotifySleep()
			case syscall.SIGUSR2:
				pterm.Info.Println("宿主唤醒")
				svc.NotifyResume()
			default:
				fmt.Print(telemetry.FormatPressure(svc.GetCurrentSystemPressure(), svc.GetPressureHistory(), svc.Targets()))
				fmt.Print(leak.FormatLeaks(svc.GetDetectedLeaks()))
				_ = renderRemediations(svc.GetRemediationHistory())
				return a.Stop()
			}
		case <-report:
			_ = renderTargets(svc.Targets())
		}
	}
}

// applyLimitFlags 把 --critical/--warning 写入修复配置
func applyLimitFlags(cfg *types.AppConfig) error {
	set := func(flag string, dst **uint64) error {
		if flag == "" {
			return nil
		}
		n, err := humanize.ParseBytes(flag)
		if err != nil {
			return fmt.Errorf("解析内存大小 %q: %w", flag, err)
		}
		mb := n / bytesPerMB
		*dst = &mb
		return nil
	}
	if watchFlags.Critical == "" && watchFlags.Warning == "" {
		return nil
	}
	if cfg.Memwatch == nil {
		cfg.Memwatch = &types.UserMemwatchConfig{}
	}
	if cfg.Memwatch.Remediation == nil {
		cfg.Memwatch.Remediation = &types.UserRemediationConfig{}
	}
	r := cfg.Memwatch.Remediation
	if err := set(watchFlags.Critical, &r.CriticalMB); err != nil {
		return err
	}
	return set(watchFlags.Warning, &r.WarningMB)
}
