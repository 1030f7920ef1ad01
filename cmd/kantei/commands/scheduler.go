package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/kantei/internal/scheduler"
	"github.com/wonny/kantei/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `정기 재평가 스케줄러를 시작하거나 작업을 즉시 실행합니다.
DATABASE_URL 이 필요합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/kantei scheduler start
  go run ./cmd/kantei scheduler run revalue_pending`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- revalue_pending: REVALUE_SCHEDULE (기본 매일 05:00:00), pending 매물 재평가

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// initScheduler 의존성 생성 후 작업 등록. cleanup 은 항상 호출
func initScheduler(ctx context.Context) (*scheduler.Scheduler, func(), error) {
	a, err := loadApp()
	if err != nil {
		return nil, func() {}, err
	}

	repo, closeDB, err := a.openRepository(ctx)
	if err != nil {
		return nil, func() {}, err
	}
	if repo == nil {
		closeDB()
		return nil, func() {}, fmt.Errorf("scheduler requires DATABASE_URL")
	}

	pub, err := a.openPublisher()
	if err != nil {
		closeDB()
		return nil, func() {}, err
	}
	cleanup := func() {
		pub.Close()
		closeDB()
	}

	sched := scheduler.New(a.log)
	job := jobs.NewRevalueJob(repo, a.pipeline, pub, a.cfg.RevalueSchedule, a.cfg.RevalueLimit, a.cfg.BatchWorkers, a.log)
	if err := sched.AddJob(job); err != nil {
		cleanup()
		return nil, func() {}, err
	}

	return sched, cleanup, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	out := cmd.ErrOrStderr()
	fmt.Fprintln(out, "=== kantei Scheduler ===")

	sched, cleanup, err := initScheduler(context.Background())
	defer cleanup()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	fmt.Fprintln(out, "\nRegistered jobs:")
	for _, name := range sched.GetAllJobs() {
		fmt.Fprintf(out, "  - %s\n", name)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := initScheduler(context.Background())
	defer cleanup()
	if err != nil {
		return err
	}

	stats := sched.GetJobStats()
	for _, name := range sched.GetAllJobs() {
		fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", name, stats[name].Schedule)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, cleanup, err := initScheduler(ctx)
	defer cleanup()
	if err != nil {
		return err
	}

	res, err := sched.RunJob(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d attempt(s), %s)\n", res.JobName, res.Attempts, res.Duration)
	return nil
}
