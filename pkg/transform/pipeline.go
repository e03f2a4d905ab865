package transform

import (
	"errors"
	"fmt"
)

// Pipeline applies its stages 0..N on Apply and N..0 on Reverse.
type Pipeline struct {
	stages []Transform
}

// NewPipeline requires at least one stage; use NewNoOpTransform for an
// explicitly empty pipeline.
func NewPipeline(stages ...Transform) (*Pipeline, error) {
	if len(stages) == 0 {
		return nil, errors.New("pipeline requires at least one stage; use NewNoOpTransform() for an empty pipeline")
	}
	return &Pipeline{stages: append([]Transform(nil), stages...)}, nil
}

func (p *Pipeline) Apply(payload []byte) ([]byte, error) {
	var err error
	for i, stage := range p.stages {
		payload, err = stage.Apply(payload)
		if err != nil {
			return nil, fmt.Errorf("apply: stage %d (%T): %w", i, stage, err)
		}
	}
	return payload, nil
}

func (p *Pipeline) Reverse(payload []byte) ([]byte, error) {
	var err error
	for i := len(p.stages) - 1; i >= 0; i-- {
		payload, err = p.stages[i].Reverse(payload)
		if err != nil {
			return nil, fmt.Errorf("reverse: stage %d (%T): %w", i, p.stages[i], err)
		}
	}
	return payload, nil
}
