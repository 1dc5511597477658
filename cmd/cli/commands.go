package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ercot-forecast/internal/analysis"
	"ercot-forecast/internal/catalog"
	"ercot-forecast/internal/data"
	"ercot-forecast/internal/forecast"
	"ercot-forecast/internal/market"
	"ercot-forecast/internal/model"
	"ercot-forecast/internal/normalize"
)

const dateLayout = "2006-01-02"

func parseDate(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be in YYYY-MM-DD format", flag)
	}
	return d, nil
}

func newFetchCmd(a *app) *cobra.Command {
	var p market.FetchParams
	cmd := &cobra.Command{
		Use:   "fetch ENDPOINT",
		Short: "Fetch and normalize a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.svc.FetchAndNormalize(cmd.Context(), args[0], p)
			if err != nil {
				return err
			}
			return a.emitTable(cmd.OutOrStdout(), t)
		},
	}
	cmd.Flags().StringVar(&p.From, "from", "", "first delivery date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&p.To, "to", "", "last delivery date, defaults to --from")
	cmd.Flags().StringVar(&p.SettlementPoint, "settlement-point", "", "settlement point filter")
	cmd.Flags().StringVar(&p.ResourceType, "resource-type", "", "resource type filter")
	cmd.Flags().IntVar(&p.Size, "size", 0, "records per page")
	cmd.Flags().StringToStringVar(&p.Extra, "param", nil, "extra query parameter as key=value")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func newEndpointsCmd(a *app) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "List available endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			eps, err := a.svc.ListEndpoints(category)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.emitJSON(cmd.OutOrStdout(), eps)
			}
			t := model.Table{Columns: []string{"name", "category", "date_key", "summary"}}
			for _, ep := range eps {
				t.Rows = append(t.Rows, model.Row{"name": ep.Name, "category": ep.Category, "date_key": ep.DateKey, "summary": ep.Summary})
			}
			printTable(cmd.OutOrStdout(), t, 0)
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", catalog.AllCategories, "prices, forecasts, actuals, market_data, other or all")
	return cmd
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info ENDPOINT",
		Short: "Describe one endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ep, err := a.svc.EndpointInfo(args[0])
			if err != nil {
				return err
			}
			return a.emitJSON(cmd.OutOrStdout(), ep)
		},
	}
}

func newNormalizeCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Normalize a table saved as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := data.LoadTableJSON(file)
			if err != nil {
				return err
			}
			t, err := a.svc.Normalize(raw)
			if err != nil {
				return err
			}
			return a.emitTable(cmd.OutOrStdout(), t)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to a table JSON document")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newVintageCmd(a *app) *cobra.Command {
	var from, to, point string
	cmd := &cobra.Command{
		Use:   "vintage ENDPOINT",
		Short: "Fetch a forecast as it stood at 07:00 the day before",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseDate("from", from)
			if err != nil {
				return err
			}
			t2, err := parseDate("to", to)
			if err != nil {
				return err
			}
			t, err := a.svc.GetVintageForecast(cmd.Context(), args[0], f, t2, market.FetchParams{SettlementPoint: point})
			if err != nil {
				return err
			}
			return a.emitTable(cmd.OutOrStdout(), t)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first delivery date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last delivery date, defaults to --from")
	cmd.Flags().StringVar(&point, "settlement-point", "", "settlement point filter")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func newNetLoadCmd(a *app) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "netload",
		Short: "Hourly net load forecast (load minus solar and wind)",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseDate("from", from)
			if err != nil {
				return err
			}
			t2, err := parseDate("to", to)
			if err != nil {
				return err
			}
			rows, err := a.svc.GetNetLoadForecast(cmd.Context(), f, t2)
			if err != nil {
				return err
			}
			return a.emitTable(cmd.OutOrStdout(), model.NetLoadTable(rows))
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first delivery date, defaults to tomorrow")
	cmd.Flags().StringVar(&to, "to", "", "last delivery date, defaults to --from")
	return cmd
}

func newSplitsCmd(a *app) *cobra.Command {
	var (
		file  string
		days  int
		fixed bool
	)
	cmd := &cobra.Command{
		Use:   "splits",
		Short: "Show the walk-forward folds of a table saved as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := data.LoadTableJSON(file)
			if err != nil {
				return err
			}
			t, err := a.svc.Normalize(raw)
			if err != nil {
				return err
			}
			folds, err := a.svc.CreateRollingSplits(t, days, !fixed)
			if err != nil {
				return err
			}
			out := model.Table{Columns: []string{"split", "test_date", "train_start", "train_end", "train_rows", "test_rows"}}
			for i, f := range folds {
				out.Rows = append(out.Rows, model.Row{
					"split":       fmt.Sprint(i + 1),
					"test_date":   f.TestDate.Format(dateLayout),
					"train_start": f.TrainStart.Format(dateLayout),
					"train_end":   f.TrainEnd.Format(dateLayout),
					"train_rows":  fmt.Sprint(len(f.Train)),
					"test_rows":   fmt.Sprint(len(f.Test)),
				})
			}
			return a.emitTable(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to a table JSON document")
	cmd.Flags().IntVar(&days, "initial-days", forecast.DefaultTrainingDays, "days used only for training")
	cmd.Flags().BoolVar(&fixed, "fixed-window", false, "train on a fixed window instead of all earlier days")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newDayAheadCmd(a *app) *cobra.Command {
	var (
		date string
		p    forecast.DayAheadParams
	)
	cmd := &cobra.Command{
		Use:   "dayahead",
		Short: "Forecast tomorrow's hourly system lambda from net load",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDate("date", date)
			if err != nil {
				return err
			}
			p.ForecastDate = d
			res, err := a.svc.DayAheadForecast(cmd.Context(), p)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.emitJSON(cmd.OutOrStdout(), res)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Forecast %s trained on %s..%s (%d hours, degree %d)\n",
				res.Parameters.ForecastDate, res.Parameters.TrainingStart, res.Parameters.TrainingEnd,
				res.TrainingHours, res.Parameters.PolynomialDegree)
			fmt.Fprintf(w, "Training MAE=%.2f RMSE=%.2f R2=%.3f\n",
				res.TrainingPerformance.MAE, res.TrainingPerformance.RMSE, res.TrainingPerformance.RSquared)
			if s := res.PriceSummary; s != nil {
				fmt.Fprintf(w, "Price mean=%.2f min=%.2f max=%.2f p05=%.2f p95=%.2f\n", s.Mean, s.Min, s.Max, s.P05, s.P95)
			}
			return a.emitTable(w, forecastTable(res.Forecast))
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "forecast date, defaults to tomorrow")
	cmd.Flags().IntVar(&p.TrainingDays, "training-days", forecast.DefaultTrainingDays, "days of history to train on")
	cmd.Flags().IntVar(&p.PolynomialDegree, "degree", forecast.DefaultPolynomialDegree, "polynomial degree")
	return cmd
}

func forecastTable(rows []forecast.ForecastRow) model.Table {
	load := make([]model.NetLoadRow, len(rows))
	for i, r := range rows {
		load[i] = r.NetLoadRow
	}
	t := model.NetLoadTable(load)
	t.AddColumn("PredictedLambda")
	for i, r := range rows {
		if r.PredictedLambda.Valid {
			t.Rows[i]["PredictedLambda"] = r.PredictedLambda.Float64
		}
	}
	return t
}

func newCVCmd(a *app) *cobra.Command {
	var (
		start, end string
		fixed      bool
		p          forecast.CVParams
	)
	cmd := &cobra.Command{
		Use:   "cv",
		Short: "Walk-forward cross-validation of the price model",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if p.Start, err = parseDate("start", start); err != nil {
				return err
			}
			if p.End, err = parseDate("end", end); err != nil {
				return err
			}
			p.FixedWindow = fixed
			res, err := a.svc.RollingForecastCV(cmd.Context(), p)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.emitJSON(cmd.OutOrStdout(), res)
			}
			w := cmd.OutOrStdout()
			o := res.OverallPerformance
			fmt.Fprintf(w, "%s..%s: %d forecast days, %d failed, MAE=%.2f RMSE=%.2f R2=%.3f\n",
				res.Parameters.StartDate, res.Parameters.EndDate, o.ForecastDays, res.Parameters.FailedSplits,
				o.MAE, o.RMSE, o.RSquared)
			t := model.Table{Columns: []string{"date", "hours", "mae", "rmse", "r_squared"}}
			for _, d := range res.DailyMetrics {
				t.Rows = append(t.Rows, model.Row{"date": d.Date, "hours": fmt.Sprint(d.Hours), "mae": d.MAE, "rmse": d.RMSE, "r_squared": d.RSquared})
			}
			return a.emitTable(w, t)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day, defaults to 30 days ago")
	cmd.Flags().StringVar(&end, "end", "", "last day, defaults to yesterday")
	cmd.Flags().IntVar(&p.InitialTrainingDays, "initial-days", forecast.DefaultTrainingDays, "days used only for training")
	cmd.Flags().IntVar(&p.PolynomialDegree, "degree", forecast.DefaultPolynomialDegree, "polynomial degree")
	cmd.Flags().BoolVar(&fixed, "fixed-window", false, "train on a fixed window instead of all earlier days")
	return cmd
}

func newRankCmd(a *app) *cobra.Command {
	var (
		p     market.FetchParams
		limit int
	)
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank settlement points by hourly real-time price spread (P95-P05)",
		RunE: func(cmd *cobra.Command, args []string) error {
			hourly, err := a.svc.HourlyRealTimePrices(cmd.Context(), p)
			if err != nil {
				return err
			}
			byPoint, err := analysis.GroupPrices(hourly, normalize.SettlementPointColumn, normalize.HourlyPriceColumn)
			if err != nil {
				return err
			}
			ranked := analysis.RankBySpread(byPoint)
			if limit > 0 && len(ranked) > limit {
				ranked = ranked[:limit]
			}
			if a.asJSON {
				return a.emitJSON(cmd.OutOrStdout(), ranked)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-4s %-18s %-8s %-10s %-10s %-10s\n", "rank", "settlement_point", "hours", "p95-p05", "min", "max")
			for i, r := range ranked {
				fmt.Fprintf(w, "%-4d %-18s %-8d %-10.2f %-10.2f %-10.2f\n", i+1, r.SettlementPoint, r.Count, r.Spread, r.Min, r.Max)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&p.From, "from", "", "first delivery date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&p.To, "to", "", "last delivery date, defaults to --from")
	cmd.Flags().StringVar(&p.SettlementPoint, "settlement-point", "", "restrict to one settlement point")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of settlement points to show")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
