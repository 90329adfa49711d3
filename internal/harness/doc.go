// Package harness runs YAML scenarios against a real engine.
//
// Each scenario gets a fresh store, an in-memory remote, a memory snapshot
// cache and an event recorder, with a frozen clock and sequential ids so
// traces are reproducible.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	signed_in: u1          # optional, start with a session for this user
//	seed: demo             # demo (default) or empty
//	setup:
//	  - invoke: add_product
//	    args: { id: p1, name: Mesa, stock: 5 }
//	flow:
//	  - invoke: create_order
//	    args: { id: "#1", client: Ana, origin: ONLINE, items: [...] }
//	    expect:
//	      outcome: OK
//	      missing: [ghost]
//	assertions:
//	  - type: stock
//	    id: p1
//	    value: 3
//	  - type: events
//	    events: [product.created, order.created, stock.adjusted]
//
// Setup steps must succeed. Flow steps are traced and compared against
// their expect clause when one is given.
//
// # Invocations
//
// Intents: create_order, delete_order, update_order_status, add_product,
// update_product, delete_product, adjust_stock, add_material,
// update_material, delete_material, update_settings, import, reset.
//
// Session: sign_in (args: user), refresh, sign_out. Their outcome is
// RELOADED or UNCHANGED.
//
// Remote control: fail_remote (args: op, table, optional id), heal_remote.
//
// # Outcomes
//
// OK, REMOTE_WRITE_FAILED, NOT_FOUND, INVALID_INTENT, PARTIAL (stock
// adjustment stopped part way), REJECTED (import refused).
//
// # Assertions
//
//   - stock: product id has stock value
//   - material_stock: material id has stock value
//   - count: collection (orders|products|materials) has value entries
//   - exists / absent: collection contains / lacks id
//   - field: order/product/material id (or settings) has field == value,
//     field is a dotted JSON path such as appearance.theme
//   - events: published event types, in order
//   - remote_writes: number of write calls issued to the remote
package harness
