/*
Package observability turns orchestrator lifecycle hooks into Prometheus
metrics and structured audit logs.

Both helpers return domain.LifecycleHooks, so they compose with Merge:

	hooks := observability.NewMetrics(reg).Hooks().Merge(observability.AuditHooks(logger))
	orch := orchestrator.New(engine, orchestrator.WithHooks(hooks))
*/
package observability
