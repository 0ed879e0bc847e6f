// Package charts renders PNG charts of a batch of analysis results.
package charts

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iwvelando/drone-power/internal/analysis"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// File names written by Render.
const (
	ValidationFile = "1_optimum_validation.png"
	EnergyFile     = "2_energy_distribution.png"
	VelocityFile   = "3_velocity_profiles.png"
	PowerFile      = "4_power_profiles.png"
	GridFile       = "5_maneuver_grid.png"
)

const (
	energyBins = 10
	gridCols   = 3
	dpi        = 96
)

// errNoData marks a chart that has nothing to draw.
var errNoData = errors.New("no data to plot")

// Render writes every chart for results into dir. Charts without data are
// skipped.
func Render(logger *zap.Logger, dir string, results []analysis.Result) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create plot directory %s: %w", dir, err)
	}

	charts := []struct {
		file   string
		width  float64
		height float64
		build  func([]analysis.Result) (*plot.Plot, error)
	}{
		{ValidationFile, 8, 8, ValidationPlot},
		{EnergyFile, 10, 6, EnergyHistogram},
		{VelocityFile, 12, 7, VelocityProfiles},
		{PowerFile, 12, 7, PowerProfiles},
	}

	for _, c := range charts {
		p, err := c.build(results)
		if errors.Is(err, errNoData) {
			logger.Debug(fmt.Sprintf("skipping %s: %v", c.file, err),
				zap.String("op", "charts.Render"),
			)
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to build %s: %w", c.file, err)
		}
		if err := savePNG(p, c.width, c.height, filepath.Join(dir, c.file)); err != nil {
			return err
		}
		logger.Info(fmt.Sprintf("plot %s saved", c.file),
			zap.String("op", "charts.Render"),
			zap.String("dir", dir),
		)
	}

	if err := saveGrid(results, filepath.Join(dir, GridFile)); err != nil {
		if errors.Is(err, errNoData) {
			return nil
		}
		return err
	}
	logger.Info(fmt.Sprintf("plot %s saved", GridFile),
		zap.String("op", "charts.Render"),
		zap.String("dir", dir),
	)
	return nil
}

// ValidationPlot scatters numeric against analytic optimum for converged
// cases, with the line of perfect agreement.
func ValidationPlot(results []analysis.Result) (*plot.Plot, error) {
	var pts plotter.XYs
	for _, r := range results {
		if r.Converged {
			pts = append(pts, plotter.XY{X: r.AnalyticOptimum, Y: r.Optimum})
		}
	}
	if len(pts) == 0 {
		return nil, errNoData
	}

	p := plot.New()
	p.Title.Text = "Optimal velocity: numeric vs. analytic"
	p.X.Label.Text = "analytic v_opt (m/s)"
	p.Y.Label.Text = "numeric v_opt (m/s)"
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, err
	}
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(4)

	xs := make([]float64, len(pts))
	for i := range pts {
		xs[i] = pts[i].X
	}
	lo, hi := floats.Min(xs), floats.Max(xs)
	ideal, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return nil, err
	}
	ideal.LineStyle.Color = plotutil.Color(1)
	ideal.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

	p.Add(scatter, ideal)
	p.Legend.Add("cases", scatter)
	p.Legend.Add("y = x", ideal)
	return p, nil
}

// EnergyHistogram bins the maneuver energies.
func EnergyHistogram(results []analysis.Result) (*plot.Plot, error) {
	values := make(plotter.Values, len(results))
	for i, r := range results {
		values[i] = r.Energy
	}
	if len(values) == 0 || floats.Min(values) == floats.Max(values) {
		return nil, errNoData
	}

	p := plot.New()
	p.Title.Text = "Maneuver energy distribution"
	p.X.Label.Text = "energy (J)"
	p.Y.Label.Text = "cases"

	hist, err := plotter.NewHist(values, energyBins)
	if err != nil {
		return nil, err
	}
	p.Add(hist)
	return p, nil
}

// VelocityProfiles overlays the sampled velocity of every case.
func VelocityProfiles(results []analysis.Result) (*plot.Plot, error) {
	return profilePlot(results, "Maneuver velocity profiles", "velocity (m/s)",
		func(r analysis.Result) []float64 { return r.Profile.Velocity })
}

// PowerProfiles overlays the sampled power of every case.
func PowerProfiles(results []analysis.Result) (*plot.Plot, error) {
	return profilePlot(results, "Maneuver power profiles", "power (W)",
		func(r analysis.Result) []float64 { return r.Profile.Power })
}

func profilePlot(results []analysis.Result, title, ylabel string, series func(analysis.Result) []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())

	drawn := 0
	for i, r := range results {
		ys := series(r)
		if len(ys) == 0 || len(ys) != len(r.Profile.Time) {
			continue
		}
		line, err := plotter.NewLine(xys(r.Profile.Time, ys))
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = plotutil.Color(i)
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("case %d", r.Index), line)
		drawn++
	}
	if drawn == 0 {
		return nil, errNoData
	}
	p.Legend.Top = true
	return p, nil
}

func xys(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}

// saveGrid draws one velocity panel per case, gridCols panels per row.
func saveGrid(results []analysis.Result, filename string) error {
	var panels []*plot.Plot
	for _, r := range results {
		if len(r.Profile.Time) == 0 {
			continue
		}
		p := plot.New()
		p.Title.Text = fmt.Sprintf("Case %d (v_opt=%.2f m/s)", r.Index, r.Optimum)
		p.X.Label.Text = "time (s)"
		p.Y.Label.Text = "velocity (m/s)"
		line, err := plotter.NewLine(xys(r.Profile.Time, r.Profile.Velocity))
		if err != nil {
			return err
		}
		line.LineStyle.Color = plotutil.Color(0)
		p.Add(plotter.NewGrid(), line)
		panels = append(panels, p)
	}
	if len(panels) == 0 {
		return errNoData
	}

	rows := (len(panels) + gridCols - 1) / gridCols
	table := make([][]*plot.Plot, rows)
	for i := range table {
		table[i] = make([]*plot.Plot, gridCols)
		for j := range table[i] {
			if k := i*gridCols + j; k < len(panels) {
				table[i][j] = panels[k]
				continue
			}
			blank := plot.New()
			blank.HideAxes()
			table[i][j] = blank
		}
	}

	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(5*gridCols)*vg.Inch, vg.Length(4*rows)*vg.Inch),
		vgimg.UseDPI(dpi),
	)
	dc := draw.New(c)
	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      gridCols,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(table, tiles, dc)
	for i := range table {
		for j := range table[i] {
			table[i][j].Draw(canvases[i][j])
		}
	}
	return writePNG(c, filename)
}

func savePNG(p *plot.Plot, widthIn, heightIn float64, filename string) error {
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(dpi),
	)
	p.Draw(draw.New(c))
	return writePNG(c, filename)
}

func writePNG(c *vgimg.Canvas, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}

	bw := bufio.NewWriter(f)
	pngc := vgimg.PngCanvas{Canvas: c}
	if _, err := pngc.WriteTo(bw); err != nil {
		_ = f.Close()
		return fmt.Errorf("cannot write png: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("cannot write png: %w", err)
	}
	return f.Close()
}
