package dataset

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/jsalazar/toolforge/internal/domain/tool"
)

// Scenario is one scripted exchange used to seed the dataset: a user prompt,
// the tool calls the assistant should make, and the final answer.
type Scenario struct {
	Name      string         `yaml:"name"`
	User      string         `yaml:"user"`
	Assistant string         `yaml:"assistant"`
	Calls     []ScenarioCall `yaml:"calls"`
}

// ScenarioCall scripts a single invocation within a scenario.
type ScenarioCall struct {
	Tool      string         `yaml:"tool"`
	Arguments map[string]any `yaml:"arguments"`
}

type scenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// LoadScenarios parses a YAML scenario file.
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios %s: %w", path, err)
	}
	var file scenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse scenarios %s: %w", path, err)
	}
	for i, sc := range file.Scenarios {
		if sc.Name == "" {
			return nil, fmt.Errorf("scenarios %s: entry %d has no name", path, i)
		}
		if sc.User == "" {
			return nil, fmt.Errorf("scenario %q: user prompt is required", sc.Name)
		}
	}
	return file.Scenarios, nil
}

// CallRunner dispatches a turn's calls. Satisfied by dispatch.Dispatcher.
type CallRunner interface {
	Dispatch(ctx context.Context, turnID string, calls []tool.Call) ([]tool.Result, error)
}

// Seeder runs scripted scenarios through live tool dispatch and appends the
// assembled examples to a store.
type Seeder struct {
	runner CallRunner
	store  *Store
	clock  func() time.Time
	logger *zap.Logger
}

// NewSeeder wires a seeder. clock may be nil (defaults to time.Now).
func NewSeeder(runner CallRunner, store *Store, clock func() time.Time, logger *zap.Logger) *Seeder {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{runner: runner, store: store, clock: clock, logger: logger}
}

// Seed executes every scenario and appends one example per scenario.
// Returns the number of examples written; stops at the first failure.
func (s *Seeder) Seed(ctx context.Context, scenarios []Scenario) (int, error) {
	written := 0
	for _, sc := range scenarios {
		calls := make([]tool.Call, len(sc.Calls))
		for i, c := range sc.Calls {
			calls[i] = tool.Call{
				ID:        fmt.Sprintf("call_%s_%d", sc.Name, i),
				Name:      c.Tool,
				Arguments: c.Arguments,
			}
		}

		results, err := s.runner.Dispatch(ctx, "seed:"+sc.Name, calls)
		if err != nil {
			return written, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		ex, err := Assemble(sc.User, sc.Assistant, calls, results, s.clock())
		if err != nil {
			return written, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		if err := s.store.Append(ex); err != nil {
			return written, fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
		written++
		s.logger.Info("seeded example",
			zap.String("scenario", sc.Name),
			zap.Int("calls", len(calls)))
	}
	return written, nil
}
