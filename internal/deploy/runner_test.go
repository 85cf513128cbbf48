package deploy

import (
	"context"
	"strings"
)

// fakeRunner records every command and replays scripted outputs and errors,
// keyed by the full command line.
type fakeRunner struct {
	calls   []string
	inputs  map[string]string
	outputs map[string]string
	errs    map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		inputs:  make(map[string]string),
		outputs: make(map[string]string),
		errs:    make(map[string]error),
	}
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	return r.RunInput(ctx, "", name, args...)
}

func (r *fakeRunner) RunInput(ctx context.Context, stdin, name string, args ...string) (string, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, key)
	if stdin != "" {
		r.inputs[key] = stdin
	}
	return r.outputs[key], r.errs[key]
}
