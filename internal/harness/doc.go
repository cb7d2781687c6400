// Package harness runs query scenarios against a seeded store.
//
// A scenario seeds a fresh in-memory store from fixture files, runs
// queries through the full provider stack and checks each result.
//
// # Scenario Format
//
//	name: documents_by_type
//	description: "Safe casts over the document hierarchy"
//	model: model.cue            # optional; the default model otherwise
//	fixtures:
//	  - northwind.yaml
//	queries:
//	  - name: non_orders
//	    set: Documents
//	    filter: "as Order == null"
//	    expect:
//	      keys: [4]
//	  - name: open_total
//	    set: Orders
//	    filter: "OrderStatus == 'New'"
//	    aggregate: sum
//	    field: Total
//	    expect:
//	      value: 15.75
//	assertions:
//	  - type: record_count
//	    entity: Order
//	    count: 3
//	  - type: record
//	    entity: Customer
//	    key: ALFKI
//	    expect: { Country: Germany }
//
// Paths are relative to the scenario file.
//
// # Expectations
//
//   - keys: row keys in result order; first and firstOrDefault yield zero or one row
//   - value: the value of count, any or sum; decimals compare numerically
//   - error: a substring of the expected error
//
// # Assertion Types
//
//   - record_count: number of stored records of exactly one entity type
//   - record: one stored record, subset match on fields
//
// Each query appends one TraceEvent. RunWithGolden compares the trace,
// serialized as canonical JSON, against testdata/golden/{name}.golden.
package harness
