package release

import "context"

// Reporter receives one call per pipeline state transition. Implementations
// must not block the pipeline on delivery failures.
type Reporter interface {
	Report(ctx context.Context, step Step, status Status, message string)
}

type ReporterFunc func(ctx context.Context, step Step, status Status, message string)

func (f ReporterFunc) Report(ctx context.Context, step Step, status Status, message string) {
	f(ctx, step, status, message)
}

type NopReporter struct{}

func (NopReporter) Report(context.Context, Step, Status, string) {}

type MultiReporter []Reporter

func (mr MultiReporter) Report(ctx context.Context, step Step, status Status, message string) {
	for _, r := range mr {
		if r != nil {
			r.Report(ctx, step, status, message)
		}
	}
}
