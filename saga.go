package onboarding

import "context"

// SagaStep pairs a forward action with its compensation. Compensate
// may be nil for read-only or self-cleaning steps.
type SagaStep struct {
	Name       string
	Forward    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga runs an ordered list of steps. On a failure at step i it runs
// the compensations of steps 1..i-1 in reverse and returns the
// original error. Compensation failures are logged, never returned:
// a rollback must not mask the failure that triggered it.
type Saga struct {
	name   string
	steps  []SagaStep
	logger Logger
}

// NewSaga creates an empty saga.
func NewSaga(name string) *Saga {
	return &Saga{
		name:   name,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger.
func (s *Saga) WithLogger(logger Logger) *Saga {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Step appends a step.
func (s *Saga) Step(step SagaStep) *Saga {
	s.steps = append(s.steps, step)
	return s
}

// Then appends a step without a compensation.
func (s *Saga) Then(name string, forward func(ctx context.Context) error) *Saga {
	return s.Step(SagaStep{Name: name, Forward: forward})
}

// Run executes the steps in order.
func (s *Saga) Run(ctx context.Context) error {
	for i, step := range s.steps {
		if step.Forward == nil {
			continue
		}
		if err := step.Forward(ctx); err != nil {
			s.logger.Error("saga %s failed at step %s: %v", s.name, step.Name, err)
			s.compensate(ctx, i-1)
			return err
		}
	}
	return nil
}

// compensate unwinds completed steps in reverse order. It runs on a
// cancellation-free context so a caller timeout cannot abandon the
// rollback halfway.
func (s *Saga) compensate(ctx context.Context, from int) {
	ctx = context.WithoutCancel(ctx)

	for i := from; i >= 0; i-- {
		step := s.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			s.logger.Error("saga %s compensation for step %s failed: %v", s.name, step.Name, err)
		}
	}
}
