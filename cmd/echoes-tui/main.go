package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	echoes "github.com/amenocturne/infinite-echoes"
	"github.com/amenocturne/infinite-echoes/internal/audio"
	"github.com/amenocturne/infinite-echoes/internal/chainfile"
	"github.com/amenocturne/infinite-echoes/internal/config"
	"github.com/amenocturne/infinite-echoes/internal/pattern"
	"github.com/amenocturne/infinite-echoes/internal/synth"
	"github.com/amenocturne/infinite-echoes/internal/tui"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a config file (default ~/.config/infinite-echoes/config.yaml)")
		chainPath  = flag.String("chain", "chain.yaml", "chain file to load on start and write with s")
		logPath    = flag.String("log", "", "write logs to this file")
	)
	flag.Parse()

	path := *configPath
	if strings.TrimSpace(path) == "" {
		if p, err := config.DefaultPath(); err == nil {
			path = p
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal(err)
	}
	level, err := cfg.Level()
	if err != nil {
		log.Fatal(err)
	}
	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		logOut = f
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	pcfg := pattern.DefaultConfig()
	pcfg.TicksPerQuarter = cfg.Engine.TicksPerQuarter
	parser := pattern.NewParser(pcfg)
	palette, err := tui.DefaultPalette(parser)
	if err != nil {
		log.Fatal(err)
	}

	r := synth.New(cfg.Audio.SampleRate, synth.Params{MaxVoices: cfg.Audio.MaxVoices, Volume: cfg.Audio.Volume})
	dev, err := audio.Open(cfg.Audio.SampleRate, r, cfg.BufferSize())
	if err != nil {
		log.Fatal(err)
	}
	defer dev.Close()
	pl, err := echoes.NewPlayer(r, echoes.WithConfig(cfg.Engine), echoes.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}

	m := tui.NewModel(pl, palette, cfg.FrameInterval(), *chainPath)
	if doc, err := chainfile.Load(*chainPath); err == nil {
		nodes, err := doc.Nodes(parser)
		if err != nil {
			log.Fatal(err)
		}
		m = m.WithChain(nodes)
	} else if !errors.Is(err, os.ErrNotExist) {
		logger.Warn("chain not loaded", "path", *chainPath, "err", err)
	}

	dev.Play()
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
