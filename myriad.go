// Package myriad is the core of a dimensional event explorer.
// Every event in the store is a cluster: a value recorded against a subject
// (its Property), classified by dimension measures, with an author and a
// tick timestamp.
//
// Usage:
//
//	import "github.com/spektr-org/myriad/engine"
//
//	session := engine.NewSession(client,
//	    engine.WithMultiValued("Property", "Region"),
//	    engine.WithQueryTimeout(10*time.Second),
//	)
//	if err := session.Reset(ctx); err != nil { ... }
//	session.Select("Region", "EU")
//	result, err := session.Query(ctx)
//
// The client is any store.Client: store/memory for CSV fixtures,
// store/influx for InfluxDB 2.x. The engine keeps no observers; shells
// drain session.Events() instead.
package myriad

// Version is reported by the explorer CLI.
const Version = "0.3.0"
