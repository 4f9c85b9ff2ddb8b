package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/naminx/mcomix/internal/archive"
	cfgpkg "github.com/naminx/mcomix/internal/config"
	logpkg "github.com/naminx/mcomix/internal/logger"
	"github.com/naminx/mcomix/internal/metrics"
	"github.com/naminx/mcomix/internal/pdfrpc"
	"github.com/naminx/mcomix/internal/pdfworker"
)

func main() {
	_ = godotenv.Load()
	cfg := cfgpkg.FromEnv()

	// Worker mode: this binary re-execs itself as the isolated worker
	// process. Must be checked before anything touches stdout.
	if len(os.Args) > 1 && os.Args[1] == pdfrpc.WorkerArg {
		runWorker(cfg)
		return
	}

	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	if len(os.Args) < 3 {
		usage()
		os.Exit(2)
	}
	command, path := os.Args[1], os.Args[2]

	arc := archive.New(path, cfg)
	defer arc.CloseAll()
	if !arc.Available() {
		log.Error().Msg("pdf backend is disabled (PDF_MULTI_DISABLE)")
		os.Exit(1)
	}

	// Tear the worker processes down on interrupt.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		arc.CloseAll()
		os.Exit(1)
	}()

	session := arc.Session("cli")

	var err error
	switch command {
	case "pages":
		err = runPages(session)
	case "list":
		err = runList(session)
	case "extract":
		if len(os.Args) < 4 {
			usage()
			os.Exit(2)
		}
		err = runExtract(session, os.Args[3], os.Args[4:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error().Err(err).Str("command", command).Str("path", path).Msg("command failed")
		arc.CloseAll()
		os.Exit(1)
	}
}

func runWorker(cfg cfgpkg.Config) {
	// stdout belongs to the RPC channel; all logging goes to stderr
	// and is forwarded into the parent's log.
	_ = logpkg.Init(logpkg.Options{
		Level:  cfg.Logging.Level,
		Worker: true,
	})
	defer logpkg.Close()
	metrics.Init()

	open := func(path string) (*pdfworker.Worker, error) {
		return pdfworker.Open(path, pdfworker.Config{
			RenderDPI:   cfg.Render.DPI,
			AutoRotate:  cfg.Extract.AutoRotate,
			JPEGQuality: cfg.Extract.JPEGQuality,
		})
	}
	if err := pdfrpc.Serve(os.Stdin, os.Stdout, open); err != nil {
		log.Error().Err(err).Msg("worker serve failed")
		os.Exit(1)
	}
}

func runPages(s *archive.Session) error {
	n, err := s.PageCount()
	if err != nil {
		return err
	}
	fmt.Println(n)
	return nil
}

func runList(s *archive.Session) error {
	it, err := s.ListContents()
	if err != nil {
		return err
	}
	for {
		name, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		fmt.Println(name)
	}
}

func runExtract(s *archive.Session, dest string, entries []string) error {
	if len(entries) == 0 {
		it, err := s.ListContents()
		if err != nil {
			return err
		}
		for {
			name, ok, err := it.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			entries = append(entries, name)
		}
	}

	it, err := s.ExtractMany(entries, dest)
	if err != nil {
		return err
	}
	for {
		name, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		fmt.Println(name)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  pdfarchive pages <file.pdf>
  pdfarchive list <file.pdf>
  pdfarchive extract <file.pdf> <dest-dir> [entry ...]
`)
}
