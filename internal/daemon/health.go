package daemon

import (
	"context"
	"fmt"

	"appdl/internal/api"
	"appdl/internal/deps"
)

const minFreeBytes = 512 << 20

// Health runs readiness probes: database integrity, library writability and
// free space, and fetcher availability.
func (d *Daemon) Health(ctx context.Context) api.HealthResponse {
	checks := make([]api.HealthCheck, 0, 4)

	db, err := d.store.CheckHealth(ctx)
	dbCheck := api.HealthCheck{Name: "database", OK: err == nil && db.DatabaseReadable && db.IntegrityCheck}
	switch {
	case err != nil:
		dbCheck.Detail = err.Error()
	case db.Error != "":
		dbCheck.Detail = db.Error
	default:
		dbCheck.Detail = fmt.Sprintf("schema v%d, %d jobs", db.SchemaVersion, db.TotalJobs)
	}
	checks = append(checks, dbCheck)

	lib := d.library.CheckHealth()
	libCheck := api.HealthCheck{Name: "library", OK: lib.Healthy() && lib.FreeBytes >= minFreeBytes}
	switch {
	case lib.Error != "":
		libCheck.Detail = lib.Error
	case lib.FreeBytes < minFreeBytes:
		libCheck.Detail = fmt.Sprintf("only %d bytes free in %s", lib.FreeBytes, lib.Path)
	default:
		libCheck.Detail = fmt.Sprintf("%d bytes free", lib.FreeBytes)
	}
	checks = append(checks, libCheck)

	for _, dep := range deps.CheckBinaries(deps.Requirements(d.cfg)) {
		checks = append(checks, api.HealthCheck{Name: dep.Name, OK: dep.Available || dep.Optional, Detail: dep.Detail})
	}

	resp := api.HealthResponse{Status: "healthy", Checks: checks}
	for _, check := range checks {
		if !check.OK {
			resp.Status = "unhealthy"
			break
		}
	}
	return resp
}

// APIStatus converts Status for the HTTP API.
func (d *Daemon) APIStatus(ctx context.Context) api.DaemonStatus {
	status := d.Status(ctx)
	depsOut := make([]api.DependencyStatus, len(status.Dependencies))
	for i, dep := range status.Dependencies {
		depsOut[i] = api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		}
	}
	return api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		QueueDBPath:  status.QueueDBPath,
		LockFilePath: status.LockFilePath,
		LibraryDir:   status.LibraryDir,
		Workflow:     api.FromStatusSummary(status.Workflow),
		Dependencies: depsOut,
	}
}
