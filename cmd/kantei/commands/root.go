package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags (비어 있으면 환경변수 값 유지)
	coefficientDir  string
	calibrationPath string
	loanProfile     string
	gradeScheme     string
	asOfYear        int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kantei",
	Short: "도쿄 맨션 적정가 / 10년 시나리오 평가",
	Long: `kantei CLI

매물 레코드에서 현재 적정가, 3개 매크로 시나리오의 10년 후 가격,
투자 등급(S/A/B/C)과 수익 확률 버킷을 계산합니다.

Usage:
  go run ./cmd/kantei [command]

Examples:
  echo '{"price":85000000,"address":"東京都港区芝浦"}' | go run ./cmd/kantei value
  go run ./cmd/kantei batch -i listings.jsonl --workers 8
  go run ./cmd/kantei tables
  go run ./cmd/kantei api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&coefficientDir, "coefficients", "", "coefficient table directory (COEFFICIENT_DIR)")
	rootCmd.PersistentFlags().StringVar(&calibrationPath, "calibration", "", "calibration YAML path (CALIBRATION_PATH)")
	rootCmd.PersistentFlags().StringVar(&loanProfile, "loan-profile", "", "loan profile: standard|conservative (LOAN_PROFILE)")
	rootCmd.PersistentFlags().StringVar(&gradeScheme, "grade-scheme", "", "grade scheme: three_band|two_band (GRADE_SCHEME)")
	rootCmd.PersistentFlags().IntVar(&asOfYear, "as-of", 0, "valuation year for building age (AS_OF_YEAR, 0 = current)")
}
