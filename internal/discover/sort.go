package discover

import (
	"fmt"

	gitpmerrors "gitpm.dev/gitpm/internal/errors"
)

// visit markers for the three-color DFS.
type visitState int

const (
	unvisited visitState = iota
	inProgress
	done
)

// TopologicalOrder sorts the graph so every dependency appears strictly
// before its dependents. Roots are taken in registration order, so the output
// is reproducible across runs on the same input.
//
// Discovery already drops cyclic edges, so finding a cycle here means the
// graph construction is broken; that is a fatal defect, not an input error.
func TopologicalOrder(g *Graph) ([]string, error) {
	state := make(map[string]visitState, g.Len())
	order := make([]string, 0, g.Len())

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case inProgress:
			return fmt.Errorf("%w: at package %s", gitpmerrors.ErrGraphCycle, name)
		}
		state[name] = inProgress

		pkg := g.Get(name)
		for _, dep := range pkg.Dependencies {
			if !g.Has(dep) {
				continue // dependency failed discovery; edge has nowhere to go
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range g.Names() {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}
