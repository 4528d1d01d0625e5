package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wonny/catalyst/internal/matching"
)

// tickersCmd represents the tickers command
var tickersCmd = &cobra.Command{
	Use:   "tickers",
	Short: "SEC 티커 디렉터리 관리",
}

var tickersSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "company_tickers.json 재다운로드 후 캐시 갱신",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)

		a, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.sec.Sync(ctx)
		if err != nil {
			return fmt.Errorf("sync tickers: %w", err)
		}

		fmt.Printf("✅ %d tickers synced\n", n)
		return nil
	},
}

var tickersLookupCmd = &cobra.Command{
	Use:   "lookup SYMBOL...",
	Short: "티커를 발행사 이름과 정규화 이름으로 해석",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)

		a, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		directory, err := a.sec.GetAll(ctx)
		if err != nil {
			return fmt.Errorf("load ticker directory: %w", err)
		}

		resolver, err := matching.NewResolver(directory, matching.NewNormalizer(a.strategy.Matching.NoiseTable.Table()))
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tCIK\tISSUER\tNORMALIZED")
		for _, symbol := range args {
			entity, ok := resolver.Resolve(symbol)
			if !ok {
				fmt.Fprintf(w, "%s\t-\t(unresolved)\t-\n", symbol)
				continue
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				entity.Record.Symbol, entity.Record.IssuerID, entity.Record.IssuerName, entity.Normalized)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(tickersCmd)
	tickersCmd.AddCommand(tickersSyncCmd)
	tickersCmd.AddCommand(tickersLookupCmd)
}

// commandContext returns the cobra context or a background context
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
