package cron

import "context"

// Job is a unit of scheduled maintenance work. Run must be safe to call
// repeatedly; the service reruns every registered job each tick.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs a cron worker executes, keyed by name so the
// same job cannot be scheduled twice.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry builds a registry preloaded with the provided jobs.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{names: make(map[string]struct{})}
	for _, job := range jobs {
		registry.Register(job)
	}
	return registry
}

// Register adds a job, ignoring nils and duplicate names.
func (r *Registry) Register(job Job) {
	if job == nil {
		return
	}
	if _, exists := r.names[job.Name()]; exists {
		return
	}
	r.names[job.Name()] = struct{}{}
	r.jobs = append(r.jobs, job)
}

// Jobs returns the registered jobs in registration order.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
