package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	echoes "github.com/amenocturne/infinite-echoes"
	"github.com/amenocturne/infinite-echoes/internal/audio"
	"github.com/amenocturne/infinite-echoes/internal/chainfile"
	"github.com/amenocturne/infinite-echoes/internal/config"
	"github.com/amenocturne/infinite-echoes/internal/graph"
	"github.com/amenocturne/infinite-echoes/internal/midiexport"
	"github.com/amenocturne/infinite-echoes/internal/pattern"
	"github.com/amenocturne/infinite-echoes/internal/report"
	"github.com/amenocturne/infinite-echoes/internal/synth"
)

const defaultPattern = "l8 o3 a > c e < g a4 r4"

func main() {
	var (
		configPath = flag.String("config", "", "path to a config file (default ~/.config/infinite-echoes/config.yaml)")
		chainPath  = flag.String("chain", "", "path to a chain YAML file")
		patternSrc = flag.String("pattern", "", "inline pattern; used when -chain is empty")
		wave       = flag.String("wave", "sine", "tone for -pattern: sine|square|triangle|sawtooth")
		seconds    = flag.Float64("seconds", 10, "how long to play or render; 0 plays until interrupted")
		wavPath    = flag.String("wav", "", "render to a WAV file instead of playing")
		midiPath   = flag.String("midi", "", "export the flattened loop as a MIDI file")
		repeats    = flag.Int("repeats", 4, "loop repeats in the MIDI export")
		summary    = flag.Bool("report", false, "print a summary of the chain")
		volume     = flag.Float64("volume", -1, "master volume 0-1; overrides the config")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *volume >= 0 {
		cfg.Audio.Volume = min(*volume, 1)
	}
	level, err := cfg.Level()
	if err != nil {
		log.Fatal(err)
	}
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	name, nodes, err := resolveChain(cfg, *chainPath, *patternSrc, *wave)
	if err != nil {
		log.Fatal(err)
	}
	if *summary {
		if err := report.Summary(os.Stdout, name, nodes, cfg.Engine); err != nil {
			log.Fatal(err)
		}
	}
	if *midiPath != "" {
		opt := midiexport.DefaultOptions()
		opt.Name = name
		opt.BPM = cfg.Engine.BPM
		opt.TicksPerQuarter = cfg.Engine.TicksPerQuarter
		opt.Repeats = *repeats
		if err := midiexport.WriteFile(*midiPath, graph.Flatten(nodes), opt); err != nil {
			log.Fatal(err)
		}
		logger.Info("midi written", "path", *midiPath)
	}
	if *wavPath != "" {
		start := time.Now()
		samples, err := echoes.RenderSamples(nodes, cfg.Engine, cfg.Audio.SampleRate, *seconds)
		if err != nil {
			log.Fatal(err)
		}
		if err := echoes.WriteWAVFile(*wavPath, samples, cfg.Audio.SampleRate, 2); err != nil {
			log.Fatal(err)
		}
		logger.Info("wav written", "path", *wavPath, "took", report.Elapsed(time.Since(start)))
		return
	}
	if *summary || *midiPath != "" {
		return
	}
	if err := play(cfg, nodes, *seconds, logger); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		log.Fatal(err)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if strings.TrimSpace(path) == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return config.Default(), nil
		}
		path = p
	}
	return config.Load(path)
}

func resolveChain(cfg *config.Config, path, src, wave string) (string, []graph.Node, error) {
	pcfg := pattern.DefaultConfig()
	pcfg.TicksPerQuarter = cfg.Engine.TicksPerQuarter
	parser := pattern.NewParser(pcfg)
	if strings.TrimSpace(path) != "" {
		doc, err := chainfile.Load(path)
		if err != nil {
			return "", nil, err
		}
		nodes, err := doc.Nodes(parser)
		if err != nil {
			return "", nil, fmt.Errorf("%s: %w", path, err)
		}
		return doc.Name, nodes, nil
	}
	if strings.TrimSpace(src) == "" {
		src = defaultPattern
	}
	gen, err := parser.Parse(src)
	if err != nil {
		return "", nil, err
	}
	shape, err := graph.ParseWaveShape(wave)
	if err != nil {
		return "", nil, err
	}
	return "pattern", []graph.Node{graph.GeneratorNode{Generator: gen}, graph.ToneNode{Wave: shape}}, nil
}

func play(cfg *config.Config, nodes []graph.Node, seconds float64, logger *slog.Logger) error {
	r := synth.New(cfg.Audio.SampleRate, synth.Params{MaxVoices: cfg.Audio.MaxVoices, Volume: cfg.Audio.Volume})
	dev, err := audio.Open(cfg.Audio.SampleRate, r, cfg.BufferSize())
	if err != nil {
		return err
	}
	defer dev.Close()

	pl, err := echoes.NewPlayer(r, echoes.WithConfig(cfg.Engine), echoes.WithLogger(logger))
	if err != nil {
		return err
	}
	notices := pl.Watch()
	go func() {
		for n := range notices {
			switch n.Kind {
			case echoes.NoticeBatch:
				fmt.Printf("gen %d: %d notes %v..%v\n", n.Generation, n.Commands, n.Start.Round(time.Millisecond), n.End.Round(time.Millisecond))
			case echoes.NoticeChainRejected:
				fmt.Println("chain is not playable")
			case echoes.NoticeIdle:
				fmt.Println("loop is empty, nothing to play")
			case echoes.NoticeBackendError:
				fmt.Printf("backend error: %v\n", n.Err)
			}
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if seconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(seconds*float64(time.Second)))
		defer cancel()
	}

	pl.SetChain(nodes)
	pl.Play()
	dev.Play()
	err = pl.Run(ctx, cfg.FrameInterval())
	if stopErr := pl.Stop(); stopErr != nil {
		logger.Warn("stop failed", "err", stopErr)
	}
	return err
}
