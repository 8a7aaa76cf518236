// ffttool decodes Final Fantasy Tactics map data from a raw disc image.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/Faultbox/fftmap/internal/config"
	"github.com/Faultbox/fftmap/internal/export"
	"github.com/Faultbox/fftmap/internal/logger"
	"github.com/Faultbox/fftmap/internal/maps"
	"github.com/Faultbox/fftmap/pkg/disc"
	"github.com/Faultbox/fftmap/pkg/math"
)

var errUsage = errors.New("usage")

func main() {
	os.Exit(run())
}

// run executes one command and returns the process exit code. Deferred
// cleanup runs before main exits.
func run() int {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return 1
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Sugar.Debugf("config: %+v", cfg)

	args := config.Args()
	if len(args) < 1 {
		printUsage(os.Stderr)
		return 1
	}

	a := &app{cfg: cfg, out: os.Stdout}
	defer a.close()

	if err := a.run(args[0], args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		logger.Error("command failed", zap.String("command", args[0]), zap.Error(err))
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `ffttool - Final Fantasy Tactics map decoder

Usage:
  ffttool [flags] <command> [args]

Commands:
  maps                List maps known to the map table
  gns [map]           Show the resource directory of a map
  info [map]          Decode a map and print a summary
  export [map]        Write texture and palette images for a map
  ls [iso-path]       List a directory of the disc filesystem
  config [save]       Print the effective config, or save it

Flags:
  -config <path>      Config file
  -image <path>       Raw disc image (BIN)
  -map <n>            Default map number
  -format <fmt>       Export format: png, webp or tga
  -out <dir>          Export directory
  -debug              Debug logging

Examples:
  ffttool -image fft.bin maps
  ffttool -image fft.bin info 49
  ffttool -image fft.bin -format webp export 49`)
}

// app holds state shared by the commands.
type app struct {
	cfg    *config.Config
	out    io.Writer
	img    *disc.Image
	loader *maps.Loader
}

func (a *app) run(command string, args []string) error {
	switch command {
	case "maps":
		return a.cmdMaps()
	case "gns":
		return a.cmdGNS(args)
	case "info":
		return a.cmdInfo(args)
	case "export":
		return a.cmdExport(args)
	case "ls", "list":
		return a.cmdList(args)
	case "config":
		return a.cmdConfig(args)
	case "help", "-h", "--help":
		printUsage(a.out)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func (a *app) close() {
	if a.img != nil {
		a.img.Close()
	}
}

func (a *app) image() (*disc.Image, error) {
	if a.img != nil {
		return a.img, nil
	}
	img, err := disc.Open(a.cfg.Disc.Image)
	if err != nil {
		return nil, err
	}
	a.img = img
	return img, nil
}

// mapLoader builds the table from config when given, else from the disc.
func (a *app) mapLoader() (*maps.Loader, error) {
	if a.loader != nil {
		return a.loader, nil
	}
	img, err := a.image()
	if err != nil {
		return nil, err
	}

	var table *maps.Table
	if len(a.cfg.Maps.Table) > 0 {
		entries := make([]maps.Entry, len(a.cfg.Maps.Table))
		for i, e := range a.cfg.Maps.Table {
			entries[i] = maps.Entry{Map: e.Map, Sector: e.Sector, Name: e.Name}
		}
		table, err = maps.TableFromEntries(entries)
	} else {
		table, err = maps.TableFromISO(img, a.cfg.Maps.Directory)
	}
	if err != nil {
		return nil, fmt.Errorf("building map table: %w", err)
	}

	if table.Len() == 0 {
		logger.Warn("map table is empty", zap.String("directory", a.cfg.Maps.Directory))
	} else {
		logger.Debug("map table ready", zap.Int("maps", table.Len()))
	}
	a.loader = maps.NewLoader(img, table)
	return a.loader, nil
}

// mapArg returns the map number in args, or the configured default.
func (a *app) mapArg(args []string) (int, error) {
	if len(args) == 0 {
		return a.cfg.Maps.Default, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: map must be a number, got %q", errUsage, args[0])
	}
	return n, nil
}

func (a *app) cmdMaps() error {
	l, err := a.mapLoader()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MAP\tSECTOR\tNAME")
	for _, e := range l.Table().Entries() {
		fmt.Fprintf(tw, "%d\t%d\t%s\n", e.Map, e.Sector, e.Name)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "\n(%d maps)\n", l.Table().Len())
	return nil
}

func (a *app) cmdGNS(args []string) error {
	n, err := a.mapArg(args)
	if err != nil {
		return err
	}
	l, err := a.mapLoader()
	if err != nil {
		return err
	}

	records, err := l.Records(n)
	if err != nil {
		return err
	}
	for i, r := range records {
		fmt.Fprintf(a.out, "%3d  %s\n", i, r)
	}
	return nil
}

func (a *app) cmdInfo(args []string) error {
	n, err := a.mapArg(args)
	if err != nil {
		return err
	}
	l, err := a.mapLoader()
	if err != nil {
		return err
	}

	m, err := l.Load(n)
	if err != nil {
		return err
	}

	volume, err := a.img.VolumeID()
	if err != nil {
		volume = "(not ISO9660)"
	}

	min, max := math.Bounds(m.Vertices.Positions())
	fmt.Fprintf(a.out, "Volume:     %s\n", volume)
	fmt.Fprintf(a.out, "Map:        %d\n", m.Map)
	fmt.Fprintf(a.out, "Vertices:   %d (%d triangles)\n", len(m.Vertices), len(m.Vertices)/3)
	fmt.Fprintf(a.out, "Bounds:     %v .. %v\n", min, max)
	fmt.Fprintf(a.out, "Extent:     %v\n", max.Sub(min))
	fmt.Fprintf(a.out, "Center:     %v\n", m.CenterTransform)
	fmt.Fprintf(a.out, "Ambient:    %v\n", m.AmbientLight)
	fmt.Fprintf(a.out, "Background: top %v bottom %v\n", m.BackgroundTop, m.BackgroundBottom)
	for i, light := range m.Lights {
		fmt.Fprintf(a.out, "Light %d:    pos %v dir %v color %v\n",
			i, light.Position, light.Position.Normalize(), light.Color)
	}
	fmt.Fprintf(a.out, "Palettes:   %v\n", export.PaletteRows(m.Vertices))

	hits, misses := l.CacheStats()
	fmt.Fprintf(a.out, "Cache:      %d hits, %d misses\n", hits, misses)
	return nil
}

func (a *app) cmdExport(args []string) error {
	n, err := a.mapArg(args)
	if err != nil {
		return err
	}
	l, err := a.mapLoader()
	if err != nil {
		return err
	}

	m, err := l.Load(n)
	if err != nil {
		return err
	}

	paths, err := export.WriteMap(m, export.Options{
		Dir:          a.cfg.Export.Dir,
		Format:       a.cfg.Export.Format,
		PaletteScale: a.cfg.Export.PaletteScale,
	})
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(a.out, p)
	}
	logger.Info("map exported", zap.Int("map", n), zap.Int("files", len(paths)))
	return nil
}

func (a *app) cmdList(args []string) error {
	img, err := a.image()
	if err != nil {
		return err
	}

	dir := ""
	if len(args) > 0 {
		dir = args[0]
	}
	entries, err := img.ReadDir(dir)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		name := e.Name
		if e.Dir {
			name += "/"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\n", name, e.Sector, e.Size)
	}
	return tw.Flush()
}

func (a *app) cmdConfig(args []string) error {
	if len(args) > 0 && args[0] == "save" {
		path := config.ConfigPath()
		if path == "" {
			path = config.DefaultPath()
		}
		if err := a.cfg.SaveTo(path); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Fprintf(a.out, "Saved %s\n", path)
		return nil
	}

	data, err := a.cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = a.out.Write(data)
	return err
}
