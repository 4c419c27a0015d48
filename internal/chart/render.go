package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/polyinsider/collector/internal/atomicfile"
	"github.com/polyinsider/collector/internal/dataset"
	"github.com/polyinsider/collector/internal/store"
)

const (
	// DefaultDPI is the output resolution
	DefaultDPI = 150

	figureWidth  = 14 * vg.Inch
	figureHeight = 10 * vg.Inch

	// markerScale maps one USDC to marker area in square points
	markerScale     = 10.0
	minMarkerRadius = 1.5
	maxMarkerRadius = 30.0

	timeFormat = "01-02 15:04"
)

var (
	colorUp       = color.NRGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}
	colorDown     = color.NRGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
	colorStatsBox = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xe0}
	colorFallback = color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}
)

// Renderer draws chart PNGs into a directory.
type Renderer struct {
	dir    string
	dpi    int
	logger *slog.Logger
}

// NewRenderer creates a Renderer writing to dir at dpi (DefaultDPI if zero).
func NewRenderer(dir string, dpi int, logger *slog.Logger) *Renderer {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{dir: dir, dpi: dpi, logger: logger}
}

// Path returns where the chart for slug is written.
func (r *Renderer) Path(slug string) string {
	return filepath.Join(r.dir, dataset.SafeName(slug)+".png")
}

// RenderFile reads a dataset, analyzes it and renders its chart.
func (r *Renderer) RenderFile(path string) (string, *Analysis, error) {
	records, err := dataset.ReadFile(path)
	if err != nil {
		return "", nil, err
	}

	slug := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if len(records) > 0 && records[0].MarketSlug != "" {
		slug = records[0].MarketSlug
	}

	a, err := Analyze(slug, records)
	if err != nil {
		var empty *store.EmptyDataError
		if errors.As(err, &empty) {
			empty.Path = path
		}
		return "", nil, err
	}

	out, err := r.Render(a)
	if err != nil {
		return "", nil, err
	}
	return out, a, nil
}

// Render draws the analysis and atomically replaces {dir}/{slug}.png.
func (r *Renderer) Render(a *Analysis) (string, error) {
	top, err := tradesPanel(a)
	if err != nil {
		return "", fmt.Errorf("build trades panel: %w", err)
	}
	bottom, err := cumulativePanel(a)
	if err != nil {
		return "", fmt.Errorf("build cumulative panel: %w", err)
	}

	img := vgimg.NewWith(vgimg.UseWH(figureWidth, figureHeight), vgimg.UseDPI(r.dpi))
	dc := draw.New(img)

	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadTop:    vg.Points(10),
		PadBottom: vg.Points(10),
		PadLeft:   vg.Points(10),
		PadRight:  vg.Points(20),
		PadY:      vg.Points(20),
	}
	plots := [][]*plot.Plot{{top}, {bottom}}
	canvases := plot.Align(plots, tiles, dc)
	top.Draw(canvases[0][0])
	bottom.Draw(canvases[1][0])
	drawStatsBox(bottom, canvases[1][0], a.Stats)

	path := r.Path(a.Slug)
	err = atomicfile.Write(path, func(w io.Writer) error {
		_, err := vgimg.PngCanvas{Canvas: img}.WriteTo(w)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("write chart %s: %w", path, err)
	}

	r.logger.Info("plot_rendered", "slug", a.Slug, "trades", a.Stats.TotalTrades, "path", path)
	return path, nil
}

func tradesPanel(a *Analysis) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = a.Slug
	if a.Title != "" {
		p.Title.Text = a.Title + " (" + a.Slug + ")"
	}
	p.X.Label.Text = "Time (UTC)"
	p.X.Tick.Marker = plot.TimeTicks{Format: timeFormat, Time: plot.UTCUnixTime}
	p.Y.Label.Text = "Trade size (USDC)"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for _, s := range a.Series {
		if len(s.Trades) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(s.Trades))
		for i, t := range s.Trades {
			xys[i].X = float64(t.Timestamp)
			xys[i].Y = t.UsdcSize.InexactFloat64()
		}

		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, err
		}
		clr := outcomeColor(s.Outcome)
		fill := color.NRGBA{R: clr.R, G: clr.G, B: clr.B, A: 0x99}
		trades := s.Trades
		sc.GlyphStyle = draw.GlyphStyle{Color: fill, Radius: vg.Points(4), Shape: draw.CircleGlyph{}}
		sc.GlyphStyleFunc = func(i int) draw.GlyphStyle {
			return draw.GlyphStyle{
				Color:  fill,
				Radius: markerRadius(trades[i].UsdcSize.InexactFloat64()),
				Shape:  draw.CircleGlyph{},
			}
		}

		p.Add(sc)
		p.Legend.Add(string(s.Outcome), sc)
	}

	return p, nil
}

func cumulativePanel(a *Analysis) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Cumulative contracts"
	p.X.Label.Text = "Time (UTC)"
	p.X.Tick.Marker = plot.TimeTicks{Format: timeFormat, Time: plot.UTCUnixTime}
	p.Y.Label.Text = "Contracts"
	p.Y.Min = 0
	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.YOffs = -vg.Points(80)
	p.Add(plotter.NewGrid())

	for _, s := range a.Series {
		if len(s.Cumulative) == 0 {
			continue
		}
		xys := make(plotter.XYs, len(s.Cumulative))
		for i, c := range s.Cumulative {
			xys[i].X = float64(c.Timestamp)
			xys[i].Y = c.Contracts.InexactFloat64()
		}

		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, err
		}
		line.StepStyle = plotter.PostStep
		line.LineStyle.Color = outcomeColor(s.Outcome)
		line.LineStyle.Width = vg.Points(2)

		p.Add(line)
		p.Legend.Add(string(s.Outcome), line)
	}

	return p, nil
}

// drawStatsBox writes the statistics summary in the top-left corner of the
// plot's data area.
func drawStatsBox(p *plot.Plot, c draw.Canvas, stats store.PlotStatistics) {
	da := p.DataCanvas(c)

	sty := p.Title.TextStyle
	sty.Font.Size = vg.Points(9)
	sty.XAlign = text.XLeft
	sty.YAlign = text.YTop
	sty.Color = color.Black

	body := StatsText(stats)
	pad := vg.Points(6)
	origin := vg.Point{X: da.Min.X + pad*2, Y: da.Max.Y - pad*2}
	w := sty.Width(body)
	h := sty.Height(body)

	da.FillPolygon(colorStatsBox, []vg.Point{
		{X: origin.X - pad, Y: origin.Y + pad},
		{X: origin.X + w + pad, Y: origin.Y + pad},
		{X: origin.X + w + pad, Y: origin.Y - h - pad},
		{X: origin.X - pad, Y: origin.Y - h - pad},
	})
	da.FillText(sty, origin, body)
}

// StatsText renders statistics as the multi-line chart caption.
func StatsText(stats store.PlotStatistics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total trades: %d", stats.TotalTrades)
	for _, outcome := range PlottedOutcomes {
		s := stats.PerOutcome[outcome]
		fmt.Fprintf(&b, "\n%s: %d trades, %s contracts, $%s",
			outcome, s.TradeCount, s.ContractTotal.StringFixed(2), s.UsdcTotal.StringFixed(2))
	}
	return b.String()
}

// markerRadius converts a USDC amount to a radius whose circle area is
// markerScale square points per USDC.
func markerRadius(usdc float64) vg.Length {
	r := math.Sqrt(math.Max(usdc, 0) * markerScale / math.Pi)
	r = math.Min(math.Max(r, minMarkerRadius), maxMarkerRadius)
	return vg.Points(r)
}

func outcomeColor(o store.Outcome) color.NRGBA {
	switch o {
	case store.OutcomeUp:
		return colorUp
	case store.OutcomeDown:
		return colorDown
	}
	return colorFallback
}
