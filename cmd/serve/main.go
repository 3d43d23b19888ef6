package main

import (
	"flag"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/danielpatrickdp/spa-engine/internal/codec"
	"github.com/danielpatrickdp/spa-engine/internal/logging"
	"github.com/danielpatrickdp/spa-engine/internal/replay"
	"github.com/danielpatrickdp/spa-engine/internal/store"
)

// #region main
func main() {
	addr := flag.String("addr", envOr("SPA_ADDR", "localhost:50061"), "listen address")
	fixturePath := flag.String("fixture", "", "fixture declaring the model (.json, .yaml)")
	dbPath := flag.String("db", envOr("SPA_DB", ""), "optional spa.db to record selections in")
	flag.Parse()

	if *fixturePath == "" {
		log.Fatalf("usage: serve --fixture path/to/model.yaml [--addr host:port] [--db spa.db]")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	f, err := replay.LoadFixture(*fixturePath)
	if err != nil {
		log.Fatalf("failed to load fixture: %v", err)
	}
	network, err := f.Build()
	if err != nil {
		log.Fatalf("failed to build model: %v", err)
	}

	var opts []codec.ServerOption
	if *dbPath != "" {
		st, err := store.NewStore(*dbPath)
		if err != nil {
			log.Fatalf("failed to open store: %v", err)
		}
		defer st.Close()
		if err := logging.EnsureSchema(st.DB()); err != nil {
			log.Fatalf("failed to migrate selection log: %v", err)
		}
		opts = append(opts, codec.WithSelectionLog(st.DB()))
	}

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", *addr, err)
	}
	srv := grpc.NewServer(grpc.UnaryInterceptor(codec.LoggingInterceptor(logger)))
	codec.Register(srv, codec.NewServer(network, logger, opts...))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Printf("shutting down")
		srv.GracefulStop()
	}()

	log.Printf("serving %s on %s (vocabularies %v, states %v)", codec.ServiceName, lis.Addr(), network.Vocabularies(), network.States())
	if err := srv.Serve(lis); err != nil {
		log.Fatalf("serve: %v", err)
	}
}
// #endregion main

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
// #endregion helpers
