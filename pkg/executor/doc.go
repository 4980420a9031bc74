// Package executor runs a decision plan's actions against the external
// systems in pkg/external: each action becomes eligible once its
// dependencies have succeeded, eligible actions run up to a configured
// concurrency per destination system, failures are retried or
// propagated according to the action's failure policy, and a
// workflow-level abort rolls back whatever already succeeded in
// reverse completion order.
package executor
