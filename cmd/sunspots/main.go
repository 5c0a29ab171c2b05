package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/lox/sunspots/internal/api"
	"github.com/lox/sunspots/internal/charts"
	"github.com/lox/sunspots/internal/dataset"
	"github.com/lox/sunspots/internal/describe"
	"github.com/lox/sunspots/internal/export"
	"github.com/lox/sunspots/internal/forecast"
	"github.com/lox/sunspots/internal/imagegen"
	"github.com/lox/sunspots/internal/stats"
	"github.com/lox/sunspots/internal/store"
)

// Globals are shared by every command.
type Globals struct {
	EnvFile      kongdotenv.ENVFileConfig `kong:"optional,name='env-file',default='.env',help='Path to .env file.'"`
	Data         string                   `help:"Descriptive dataset (path or URL) with YEAR and SUNACTIVITY columns." default:"data/sunspots.csv" env:"SUNSPOTS_DATA"`
	ForecastData string                   `help:"Forecast dataset (path or URL) with ds and y columns." default:"data/sunspots_for_prophet.csv" env:"SUNSPOTS_FORECAST_DATA"`
	DB           string                   `help:"Path to SQLite database for run history. Empty disables history." default:"data/sunspots.db" env:"SUNSPOTS_DB"`
}

type CLI struct {
	Globals

	Serve    ServeCmd    `cmd:"" default:"1" help:"Run the dashboard server."`
	Describe DescribeCmd `cmd:"" help:"Render the descriptive charts to a PNG."`
	Forecast ForecastCmd `cmd:"" help:"Fit the forecast model and write its outputs."`
	Prepare  PrepareCmd  `cmd:"" help:"Derive the ds/y forecast dataset from the descriptive one."`
	History  HistoryCmd  `cmd:"" help:"List recorded forecast runs."`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("sunspots"),
		kong.Description("Sunspot activity dashboard and cycle forecast."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli.Globals))
}

// openStore opens and migrates the history database. It returns nil when
// history is disabled.
func (g *Globals) openStore() (*store.Store, func(), error) {
	if g.DB == "" {
		return nil, func() {}, nil
	}
	if dir := filepath.Dir(g.DB); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", g.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	log.Println("database migrated")
	return st, func() { db.Close() }, nil
}

type ServeCmd struct {
	Port         string `help:"HTTP server port." default:"8080" env:"SUNSPOTS_PORT"`
	ImageDir     string `help:"Directory for cached banner images." default:"data/images"`
	OpenAIAPIKey string `name:"openai-api-key" help:"Enables generated banner images." env:"OPENAI_API_KEY"`
}

func (c *ServeCmd) Run(g *Globals) error {
	st, closeDB, err := g.openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	cfg := api.Config{
		Port:         c.Port,
		DataPath:     g.Data,
		ForecastPath: g.ForecastData,
		ImageDir:     c.ImageDir,
		Forecast:     forecast.DefaultOptions(),
	}
	if c.OpenAIAPIKey != "" {
		gen, err := imagegen.NewGenerator(c.OpenAIAPIKey)
		if err != nil {
			return err
		}
		cfg.Generator = gen
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	server := api.NewServer(st, cfg)
	log.Printf("starting server on :%s", c.Port)
	return server.Run(ctx)
}

type DescribeCmd struct {
	Out        string  `help:"Output PNG path." default:"describe.png" short:"o"`
	Column     string  `help:"Activity column." default:"SUNACTIVITY"`
	YearMin    int     `help:"First year shown." default:"1764"`
	YearMax    int     `help:"Last year shown." default:"1928"`
	Bins       int     `help:"Histogram bins." default:"38"`
	Degree     int     `help:"Trend polynomial degree." default:"3"`
	PointSize  float64 `help:"Scatter point size." default:"26"`
	PointAlpha float64 `help:"Scatter point alpha." default:"0.5"`
	BoxFrom    int     `help:"First year of the boxplot range." default:"1900"`
	BoxTo      int     `help:"Last year of the boxplot range." default:"2000"`
}

func (c *DescribeCmd) Run(g *Globals) error {
	t, err := dataset.Load(context.Background(), g.Data)
	if err != nil {
		return fmt.Errorf("%w (%s)", err, dataset.Hint)
	}

	views, err := describe.Build(t, c.Column, describe.Config{
		YearMin:     c.YearMin,
		YearMax:     c.YearMax,
		HistBins:    c.Bins,
		TrendDegree: c.Degree,
		PointSize:   c.PointSize,
		PointAlpha:  c.PointAlpha,
		BoxFrom:     c.BoxFrom,
		BoxTo:       c.BoxTo,
	})
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := charts.Descriptive(&buf, views); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := os.WriteFile(c.Out, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", c.Out, err)
	}
	log.Printf("wrote %s (%d rows, %d-%d)", c.Out, views.Rows, views.Config.YearMin, views.Config.YearMax)

	if views.Box != nil {
		fmt.Printf("%s %d-%d\n", views.Column, views.Box.From, views.Box.To)
		printSummary(views.Box.Summary)
	}
	return nil
}

type ForecastCmd struct {
	Out     string `help:"Directory for forecast, components and residuals charts." short:"o"`
	XLSX    string `name:"xlsx" help:"Write residuals and summary to this workbook."`
	Record  bool   `help:"Record the run in the history database."`
	Horizon int    `help:"Future yearly steps." default:"30"`
}

func (c *ForecastCmd) Run(g *Globals) error {
	t, err := dataset.Load(context.Background(), g.ForecastData)
	if err != nil {
		return fmt.Errorf("%w (%s)", err, dataset.Hint)
	}

	opts := forecast.DefaultOptions()
	opts.Horizon = c.Horizon
	res, err := forecast.Run(t, opts)
	if err != nil {
		return err
	}

	fmt.Printf("cycle phase: %s\n", res.Phase.Label())
	fmt.Printf("%d history rows, %d forecast rows, %d residuals\n", res.History, len(res.Points), len(res.Residuals))
	printSummary(res.Summary)

	if c.Out != "" {
		if err := writeForecastCharts(c.Out, res); err != nil {
			return err
		}
	}

	if c.XLSX != "" {
		if err := export.SaveAs(c.XLSX, res); err != nil {
			return err
		}
		log.Printf("wrote %s", c.XLSX)
	}

	if c.Record {
		st, closeDB, err := g.openStore()
		if err != nil {
			return err
		}
		defer closeDB()
		if st == nil {
			return fmt.Errorf("--record needs a database (--db)")
		}

		var snapshot bytes.Buffer
		if err := dataset.WriteCSV(&snapshot, t); err != nil {
			log.Printf("snapshot dataset: %v", err)
			snapshot.Reset()
		}
		run, points := res.Record(g.ForecastData, time.Now())
		id, err := st.RecordForecastRun(run, points, snapshot.Bytes(), t.Len())
		if err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		log.Printf("recorded forecast run %d", id)
	}
	return nil
}

func writeForecastCharts(dir string, res *forecast.Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	renders := []struct {
		name   string
		render func(*bytes.Buffer) error
	}{
		{"forecast.png", func(b *bytes.Buffer) error { return charts.Forecast(b, res) }},
		{"components.png", func(b *bytes.Buffer) error { return charts.Components(b, res) }},
		{"residuals.png", func(b *bytes.Buffer) error { return charts.Residuals(b, res) }},
	}
	for _, r := range renders {
		var buf bytes.Buffer
		if err := r.render(&buf); err != nil {
			return fmt.Errorf("render %s: %w", r.name, err)
		}
		path := filepath.Join(dir, r.name)
		if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		log.Printf("wrote %s", path)
	}
	return nil
}

type PrepareCmd struct {
	Out    string `help:"Output CSV path." default:"sunspots_for_prophet.csv" short:"o"`
	Column string `help:"Activity column to use as y." default:"SUNACTIVITY"`
}

func (c *PrepareCmd) Run(g *Globals) error {
	t, err := dataset.Load(context.Background(), g.Data)
	if err != nil {
		return fmt.Errorf("%w (%s)", err, dataset.Hint)
	}
	frame, err := dataset.ProphetFrame(t, c.Column)
	if err != nil {
		return err
	}

	f, err := os.Create(c.Out)
	if err != nil {
		return fmt.Errorf("create %s: %w", c.Out, err)
	}
	if err := dataset.WriteCSV(f, frame); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", c.Out, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	log.Printf("wrote %s (%d rows)", c.Out, frame.Len())
	return nil
}

type HistoryCmd struct {
	Limit   int  `help:"Maximum runs to list." default:"20"`
	Cleanup bool `help:"Delete dataset snapshots no run refers to."`
}

func (c *HistoryCmd) Run(g *Globals) error {
	st, closeDB, err := g.openStore()
	if err != nil {
		return err
	}
	defer closeDB()
	if st == nil {
		return fmt.Errorf("history needs a database (--db)")
	}

	if c.Cleanup {
		n, err := st.CleanupUnreferencedSnapshots()
		if err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}
		log.Printf("removed %d unreferenced snapshots", n)
	}

	runs, err := st.ListForecastRuns(c.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRECORDED\tPHASE\tROWS\tHORIZON\tRESIDUAL MEAN\tRESIDUAL STD\tSOURCE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			r.ID, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Phase, r.HistoryRows, r.Horizon,
			nullString(r.ResidualMean), nullString(r.ResidualStd), r.Source)
	}
	return tw.Flush()
}

func printSummary(s stats.Summary) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	for _, row := range s.Rows() {
		fmt.Fprintf(tw, "%s\t%s\t\n", row.Label, row.Format())
	}
	tw.Flush()
}

func nullString(v sql.NullFloat64) string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf("%.4f", v.Float64)
}
