package conveyor

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// pipeline holds systems grouped into numbered stages. Stage indices are
// ideally contiguous from 0; gaps are tolerated and dispatch nothing.
type pipeline struct {
	stages [][]System
}

func (p *pipeline) add(system System, stage int) {
	for len(p.stages) <= stage {
		p.stages = append(p.stages, nil)
	}
	p.stages[stage] = append(p.stages[stage], system)
}

// run executes every stage in ascending order. Within a stage each system
// updates on its own goroutine and the stage barriers before the next one
// begins. The first system error aborts the pass after its stage's barrier.
func (p *pipeline) run() error {
	for stage, systems := range p.stages {
		if len(systems) == 0 {
			continue
		}
		var group errgroup.Group
		for _, system := range systems {
			group.Go(system.Update)
		}
		if err := group.Wait(); err != nil {
			return fmt.Errorf("stage %d: %w", stage, err)
		}
	}
	return nil
}
