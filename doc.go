// Package skylark is a feature store for machine learning serving: a
// feature computation engine with dual persistence across an online
// low-latency key-value store and an offline partitioned columnar store.
//
// Features are declared as definitions combining lifecycle metadata, an
// optional transformation over raw source fields, and validation rules.
// Definitions are grouped per entity type into feature groups, and groups
// are registered with a central registry that coordinates computation and
// persistence.
//
// # Architecture
//
// Ingestion follows a single path:
//
//	raw payload -> compute (transform + validate) -> offline append -> online refresh
//
// The offline store is authoritative: a record is durable once its parquet
// append succeeds. The online store is a best-effort cache refresh; a
// failed refresh is surfaced as a warning, never as an ingest failure.
// Validation failures abort the whole ingest before anything is written.
//
// # Layout
//
//   - pkg/feature: definitions, groups, transformations, validation
//   - pkg/registry: the coordinator over both stores
//   - pkg/store/online: Redis-backed key-value serving store
//   - pkg/store/offline: date-partitioned parquet store (Apache Arrow)
//   - internal/server: HTTP API (fiber)
//   - cmd/skylark: the server binary
//
// # Quick Start
//
//	cfg, err := config.Load("skylark.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	app, err := bootstrap.New(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer app.Close()
//	srv := server.New(cfg, app.Registry)
//	log.Fatal(srv.Listen())
package skylark
