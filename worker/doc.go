// Package worker connects a worker to a deployment and exchanges component
// state with it.
//
// Parameters describe the worker and where to connect; they load from YAML
// or TOML files. Connect returns a future that yields a Connection once the
// native connection attempt finishes. A Connection sends component updates,
// command requests and responses and log messages, and receives op lists:
// batches of operations decoded through a component registry. An op naming
// a component the registry does not know carries an unknown component error
// and the rest of the list still decodes.
//
// A Locator queries the deployments of a project through the same future
// protocol.
package worker
