// Package testutil provides testing utilities for numidx.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded random source and helpers that generate record
// datasets, write them as framed data files and remember the true offset of
// every record.
//
// # Datasets
//
//	rng := testutil.NewRNG(seed)
//	ds := rng.Dataset(10_000, testutil.DatasetOptions{MaxGap: 5, PayloadSize: 32})
//	err := ds.WriteFile("events.dat", record.CompressionNone)
//	off, ok := ds.OffsetOf(ds.IDs[42])
//
// # Query Workloads
//
//	ids := rng.Queries(ds, 1000, 0.1)   // 10% ids that are not in ds
//	hot := rng.ZipfQueries(ds, 1000, 1.5)
package testutil
