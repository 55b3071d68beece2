package main

import (
	"errors"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/ignition/internal/ledger"
	"github.com/danielpatrickdp/ignition/internal/state"
)

// openSinks truncates the two NDJSON files in dir and, when dbPath is set,
// also appends to the SQLite log under a new run for source.
func openSinks(dir, traceName, replayName, dbPath, source string) (ledger.Sink, func() error, error) {
	files, err := ledger.CreateFiles(dir, traceName, replayName)
	if err != nil {
		return nil, nil, err
	}
	if dbPath == "" {
		return files, files.Close, nil
	}

	store, err := state.NewStore(dbPath)
	if err != nil {
		files.Close()
		return nil, nil, err
	}
	storeSink, err := ledger.NewStoreSink(store, source)
	if err != nil {
		files.Close()
		store.Close()
		return nil, nil, err
	}
	logger.Info("logging run", zap.String("db", dbPath), zap.String("run_id", storeSink.RunID()))

	sink := ledger.MultiSink{files, storeSink}
	return sink, func() error { return errors.Join(sink.Close(), store.Close()) }, nil
}
