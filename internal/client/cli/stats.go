package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/puffpass/internal/client/currency"
	"github.com/dmitrijs2005/puffpass/internal/client/insights"
	"github.com/dmitrijs2005/puffpass/internal/common"
	"github.com/shopspring/decimal"
)

// maxStatsPages bounds how many extra pages Stats pulls in.
const maxStatsPages = 50

// Stats loads the remaining pages and prints consumption insights.
func (a *App) Stats(ctx context.Context) error {
	for i := 0; i < maxStatsPages && a.entries.Snapshot().HasMore; i++ {
		if err := a.entries.LoadMore(ctx); err != nil {
			a.printErr(common.ActionLoadEntries, err)
			break
		}
	}

	st := a.entries.Snapshot()
	price := decimal.Zero
	if p, ok := a.profiles.Profile(); ok {
		price = p.UnitPrice
	}
	code := a.profiles.CurrentCurrency().Code
	money := func(d decimal.Decimal) string { return currency.Format(d, code) }

	today := insights.TodayCount(st.Entries, a.now(), a.loc)
	avg := insights.DailyAverage(st.Entries, a.loc)
	forecast := insights.MonthlyForecast(avg)

	a.println(a.styles.title.Render("Statistics"))
	a.row("Today", fmt.Sprintf("%d (%s)", today, money(insights.TotalSpent(today, price))))
	a.row("All time", fmt.Sprintf("%d (%s)", len(st.Entries), money(insights.TotalSpent(len(st.Entries), price))))
	a.row("Daily average", fmt.Sprintf("%.1f", avg))
	a.row("Next 30 days", fmt.Sprintf("%d expected (%s)", forecast, money(insights.TotalSpent(forecast, price))))
	if st.HasMore {
		a.println(a.styles.muted.Render("Only the most recent entries are included."))
	}

	if weeks := insights.GroupByWeek(st.Entries, price, a.loc); len(weeks) > 0 {
		a.println(a.styles.title.Render("By week"))
		for _, b := range weeks {
			a.row(b.Label, fmt.Sprintf("%d (%s)", b.Count, money(b.Spent)))
		}
	}
	if months := insights.GroupByMonth(st.Entries, price, a.loc); len(months) > 1 {
		a.println(a.styles.title.Render("By month"))
		for _, b := range months {
			a.row(b.Label, fmt.Sprintf("%d (%s)", b.Count, money(b.Spent)))
		}
	}
	if reasons :=insights.ReasonBreakdown(st.Entries); len(reasons) > 0 {
		a.println(a.styles.title.Render("Reasons"))
		for _, r := range reasons {
			a.row(r.Reason, fmt.Sprintf("%d (%.0f%%)", r.Count, r.Percent))
		}
	}
	return nil
}
