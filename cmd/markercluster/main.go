// Command markercluster reads points as newline-delimited JSON on stdin,
// clusters the ones visible in a map view and writes the clusters to stdout
// as a GeoJSON FeatureCollection.
//
// Each input line is an object {"id": "...", "lat": 1.5, "lon": 2.5}.
// Records without an id are given a random one.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/TrevorS/markercluster"
)

type record struct {
	ID  string  `json:"id"`
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type options struct {
	lat, lng, zoom float64
	width, height  float64
	pad            float64
	cfg            markercluster.Config
	hulls          bool
	logLevel       string
}

func main() {
	opts, err := parseOptions(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := newLogger(opts.logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Sync()

	if err := run(os.Stdin, os.Stdout, opts, logger); err != nil {
		logger.Fatal("clustering failed", zap.Error(err))
	}
}

// parseOptions registers the flags on fs and parses args. Flags not given
// on the command line fall back to MARKERCLUSTER_* variables from the
// environment or the -env file.
func parseOptions(fs *flag.FlagSet, args []string) (options, error) {
	def := markercluster.DefaultConfig()

	var (
		o       options
		envFile string
	)
	fs.StringVar(&envFile, "env", ".env", "file with MARKERCLUSTER_* defaults")
	fs.Float64Var(&o.lat, "lat", 0, "latitude of the view centre")
	fs.Float64Var(&o.lng, "lng", 0, "longitude of the view centre")
	fs.Float64Var(&o.zoom, "zoom", 2, "zoom level")
	fs.Float64Var(&o.width, "width", 1024, "view width in pixels")
	fs.Float64Var(&o.height, "height", 768, "view height in pixels")
	fs.Float64Var(&o.pad, "pad", 1, "extra margin around the view, as a fraction of its size")
	fs.Float64Var(&o.cfg.Radius, "radius", def.Radius, "cluster radius in pixels")
	fs.Float64Var(&o.cfg.SeparationFactor, "separation", def.SeparationFactor, "fraction of the radius below which regions merge")
	fs.Float64Var(&o.cfg.DisableClusteringAtZoom, "disable-at", 0, "zoom level at which clustering stops (0 = never)")
	fs.BoolVar(&o.cfg.SingleMarkerMode, "single", false, "report lone points as one-member clusters")
	fs.BoolVar(&o.hulls, "hulls", false, "emit a coverage polygon for every cluster")
	fs.StringVar(&o.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	// a missing env file is fine; real environment variables still apply
	_ = godotenv.Load(envFile)

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["radius"] {
		r, err := envFloat("MARKERCLUSTER_RADIUS", def.Radius)
		if err != nil {
			return options{}, err
		}
		o.cfg.Radius = r
	}
	if lvl := os.Getenv("MARKERCLUSTER_LOG_LEVEL"); !set["log-level"] && lvl != "" {
		o.logLevel = lvl
	}
	return o, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	return cfg.Build()
}

func run(in io.Reader, out io.Writer, opts options, logger *zap.Logger) error {
	points, err := readInput(in)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	idx, err := markercluster.Build(points)
	if err != nil {
		return err
	}

	proj := markercluster.WebMercator{Zoom: opts.zoom}
	view := proj.Viewport(markercluster.LatLng{Lat: opts.lat, Lng: opts.lng}, opts.width, opts.height)
	view.Bounds = view.Bounds.Pad(opts.pad)

	clusters, err := markercluster.Aggregate(idx, view, opts.cfg)
	if err != nil {
		return err
	}
	logger.Info("clustered points",
		zap.Int("points", idx.Len()),
		zap.Int("clusters", len(clusters)),
		zap.Float64("zoom", opts.zoom))

	data, err := markercluster.FeatureCollection(clusters, idx, opts.hulls).MarshalJSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func readInput(r io.Reader) ([]markercluster.Point, error) {
	var pts []markercluster.Point
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		p := markercluster.Point{ID: rec.ID, Lat: rec.Lat, Lng: rec.Lon}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		pts = append(pts, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return pts, nil
}
