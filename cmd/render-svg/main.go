// 离线渲染工具：对 CSV 点集运行指定引擎若干步，把最终一帧写成独立 SVG 文件
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"geo-cluster/internal/config"
	"geo-cluster/internal/geo"
	"geo-cluster/internal/kcenter"
	"geo-cluster/internal/lloyd"
	"geo-cluster/internal/logger"
	"geo-cluster/internal/points"
	"geo-cluster/internal/render"
)

func main() {
	config.LoadEnvFiles()
	cfg := config.Load()
	engine := flag.String("engine", "lloyd", "lloyd | naive")
	k := flag.Int("k", 0, "number of centers (default from LLOYD_DEFAULT_K / NAIVE_DEFAULT_K)")
	steps := flag.Int("steps", 10, "lloyd iterations; ignored by naive (solves in one shot)")
	in := flag.String("csv", cfg.PointsCSV, "input file with LON/LAT columns")
	out := flag.String("out", "", "output file (default stdout)")
	seed := flag.Int64("seed", cfg.RandomSeed, "lloyd sampling seed, 0 = time")
	flag.Parse()
	l := logger.Setup()

	proj := geo.NewAlbersUSA(float64(cfg.ProjWidth), float64(cfg.ProjHeight), cfg.ProjScale)
	pts, stats, err := points.LoadCSVFile(*in, proj)
	if err != nil {
		l.Error("points_load_error", "path", *in, "err", err)
		os.Exit(1)
	}

	var frame render.Frame
	var status string
	switch *engine {
	case "lloyd":
		frame, status, err = runLloyd(pts, pick(*k, cfg.LloydDefaultK), *steps, *seed)
	case "naive":
		frame, status, err = runNaive(pts, pick(*k, cfg.NaiveDefaultK), cfg)
	default:
		err = fmt.Errorf("unknown engine %q", *engine)
	}
	if err != nil {
		l.Error("render_failed", "engine", *engine, "err", err)
		os.Exit(1)
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			l.Error("output_open_error", "path", *out, "err", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}
	render.WriteSVG(w, frame, cfg.ProjWidth, cfg.ProjHeight)
	l.Info("render_done", "engine", *engine, "rows", stats.Rows, "dropped", stats.Dropped, "status", status)
}

func pick(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func runLloyd(pts []points.Point, k, steps int, seed int64) (render.Frame, string, error) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	e := lloyd.New(points.NewStore(pts), lloyd.WithRand(rand.New(rand.NewSource(seed))))
	if err := e.Init(k); err != nil {
		return render.Frame{}, "", err
	}
	var rep lloyd.StepReport
	for i := 0; i < steps; i++ {
		r, err := e.Step()
		if err != nil {
			return render.Frame{}, "", err
		}
		rep = r
	}
	status := render.LloydStatus(len(pts), k, rep.Iteration, rep.Changed, rep.Empty)
	return render.Build(e.Points(), e.Centers(), nil), status, nil
}

func runNaive(pts []points.Point, k int, cfg config.Config) (render.Frame, string, error) {
	sample := points.Sample(pts, cfg.NaiveSampleSize, cfg.NaiveSampleSeed)
	e := kcenter.NewEngine(points.NewStore(sample), kcenter.WithLimit(cfg.NaiveMaxCombinations))
	if _, err := e.Solve(context.Background(), k); err != nil {
		return render.Frame{}, "", err
	}
	rep := e.Report()
	status := render.NaiveStatus(e.N(), k, rep.Step, rep.Total, rep.Radius, rep.Best)
	return render.Build(e.Points(), e.Centers(), e.Cover()), status, nil
}
